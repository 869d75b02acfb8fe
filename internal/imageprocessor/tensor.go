package imageprocessor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

const (
	// InputSize is the square edge the classifier expects.
	InputSize = 224
	// Channels is the color depth of every tensor.
	Channels = 3

	tensorHeaderLen = 8
)

// Tensor holds one NHWC float32 image with values in [0,1]. The batch
// dimension is always 1.
type Tensor struct {
	Height int
	Width  int
	Data   []float32
}

// NewTensor converts img to RGB, resizes it to InputSize×InputSize with
// Catmull-Rom resampling and scales the pixels by 1/255.
func NewTensor(img image.Image) *Tensor {
	rgb := ToRGB(img)
	resized := imaging.Resize(rgb, InputSize, InputSize, imaging.CatmullRom)

	t := &Tensor{
		Height: InputSize,
		Width:  InputSize,
		Data:   make([]float32, InputSize*InputSize*Channels),
	}
	i := 0
	for y := 0; y < InputSize; y++ {
		row := resized.Pix[y*resized.Stride : y*resized.Stride+InputSize*4]
		for x := 0; x < InputSize; x++ {
			px := row[x*4 : x*4+3]
			t.Data[i] = float32(px[0]) / 255.0
			t.Data[i+1] = float32(px[1]) / 255.0
			t.Data[i+2] = float32(px[2]) / 255.0
			i += Channels
		}
	}
	return t
}

// ToRGB returns an opaque NRGBA copy of img. Alpha is dropped rather than
// composited, so transparent pixels keep their stored color.
func ToRGB(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	return out
}

// Shape is the NHWC shape including the batch dimension.
func (t *Tensor) Shape() []int64 {
	return []int64{1, int64(t.Height), int64(t.Width), Channels}
}

// CHW returns a channel-first copy of the data for models exported with
// NCHW inputs.
func (t *Tensor) CHW() []float32 {
	plane := t.Height * t.Width
	out := make([]float32, len(t.Data))
	for p := 0; p < plane; p++ {
		for c := 0; c < Channels; c++ {
			out[c*plane+p] = t.Data[p*Channels+c]
		}
	}
	return out
}

// MarshalBinary encodes the tensor as height, width (uint32) followed by the
// float32 data, all little-endian.
func (t *Tensor) MarshalBinary() ([]byte, error) {
	if len(t.Data) != t.Height*t.Width*Channels {
		return nil, fmt.Errorf("tensor data length %d does not match %dx%dx%d", len(t.Data), t.Height, t.Width, Channels)
	}
	buf := make([]byte, tensorHeaderLen+4*len(t.Data))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(t.Height))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(t.Width))
	for i, v := range t.Data {
		binary.LittleEndian.PutUint32(buf[tensorHeaderLen+4*i:], math.Float32bits(v))
	}
	return buf, nil
}

// UnmarshalBinary is the inverse of MarshalBinary.
func (t *Tensor) UnmarshalBinary(buf []byte) error {
	if len(buf) < tensorHeaderLen {
		return errors.New("tensor payload too short")
	}
	h := int(binary.LittleEndian.Uint32(buf[0:4]))
	w := int(binary.LittleEndian.Uint32(buf[4:8]))
	n := h * w * Channels
	if h <= 0 || w <= 0 || len(buf)-tensorHeaderLen != 4*n {
		return fmt.Errorf("tensor payload of %d bytes does not match %dx%dx%d", len(buf), h, w, Channels)
	}
	data := make([]float32, n)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[tensorHeaderLen+4*i:]))
	}
	t.Height, t.Width, t.Data = h, w, data
	return nil
}
