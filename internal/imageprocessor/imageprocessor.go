// Package imageprocessor turns raw upload bytes into the two representations
// the detector works on: a normalized classifier tensor and the raw pixel
// array used by the heuristic analyzer.
package imageprocessor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrDecode reports bytes that cannot be parsed as a raster image.
var ErrDecode = errors.New("could not decode image")

// MaxPixels bounds the raster size accepted by Decode. Headers declaring more
// pixels are rejected before any pixel data is allocated.
const MaxPixels = 89_478_485

// Decoded is a parsed image together with the codec that produced it.
// ColorModel is the model declared by the file header, which can differ from
// Image.ColorModel() when the codec widens the layout on decode.
type Decoded struct {
	Image      image.Image
	Format     string
	ColorModel color.Model
}

// Raw returns the pixel array for heuristic analysis. A truecolor PNG whose
// only transparency is a tRNS color key keeps three channels even though it
// decodes to NRGBA.
func (d *Decoded) Raw() *RawImage {
	channels := channelCount(d.Image)
	if channels == 4 && (d.ColorModel == color.RGBAModel || d.ColorModel == color.RGBA64Model) {
		channels = 3
	}
	return newRawImage(d.Image, channels)
}

// Decode parses an encoded image. Any failure wraps ErrDecode.
func Decode(data []byte) (*Decoded, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}
	return decodeReader(bytes.NewReader(data))
}

// DecodeFile parses the image stored at path.
func DecodeFile(path string) (*Decoded, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer f.Close()
	return decodeReader(f)
}

func decodeReader(r io.ReadSeeker) (*Decoded, error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty raster %dx%d", ErrDecode, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: raster %dx%d exceeds %d pixels", ErrDecode, cfg.Width, cfg.Height, MaxPixels)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty raster %dx%d", ErrDecode, b.Dx(), b.Dy())
	}
	return &Decoded{Image: img, Format: format, ColorModel: cfg.ColorModel}, nil
}

// Preprocess decodes data and returns the classifier tensor.
func Preprocess(data []byte) (*Tensor, error) {
	decoded, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return NewTensor(decoded.Image), nil
}
