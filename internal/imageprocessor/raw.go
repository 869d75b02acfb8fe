package imageprocessor

import (
	"image"
	"image/color"
)

// RawImage is the decoded image as an H×W×C array of 8-bit samples in
// row-major order. Channels follows the source color model, the way an
// array view of the decoded file would: gray and paletted images have one
// channel, images with alpha or CMYK have four.
type RawImage struct {
	Height   int
	Width    int
	Channels int
	Pix      []uint8
}

// NewRawImage copies img into a RawImage without converting its layout.
func NewRawImage(img image.Image) *RawImage {
	return newRawImage(img, channelCount(img))
}

func newRawImage(img image.Image, channels int) *RawImage {
	b := img.Bounds()
	raw := &RawImage{
		Height:   b.Dy(),
		Width:    b.Dx(),
		Channels: channels,
	}
	raw.Pix = make([]uint8, raw.Height*raw.Width*raw.Channels)

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.At(x, y)
			switch raw.Channels {
			case 1:
				raw.Pix[i] = color.GrayModel.Convert(c).(color.Gray).Y
			case 3:
				n := color.NRGBAModel.Convert(c).(color.NRGBA)
				raw.Pix[i], raw.Pix[i+1], raw.Pix[i+2] = n.R, n.G, n.B
			default:
				if cm, ok := c.(color.CMYK); ok {
					raw.Pix[i], raw.Pix[i+1], raw.Pix[i+2], raw.Pix[i+3] = cm.C, cm.M, cm.Y, cm.K
				} else {
					n := color.NRGBAModel.Convert(c).(color.NRGBA)
					raw.Pix[i], raw.Pix[i+1], raw.Pix[i+2], raw.Pix[i+3] = n.R, n.G, n.B, n.A
				}
			}
			i += raw.Channels
		}
	}
	return raw
}

// RGB returns the red, green and blue samples at row y, column x. Callers
// must have checked Channels == 3.
func (r *RawImage) RGB(y, x int) (uint8, uint8, uint8) {
	i := (y*r.Width + x) * r.Channels
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2]
}

func channelCount(img image.Image) int {
	switch img.(type) {
	case *image.Gray, *image.Gray16, *image.Paletted, *image.Alpha, *image.Alpha16:
		return 1
	case *image.NRGBA, *image.NRGBA64, *image.NYCbCrA, *image.CMYK:
		return 4
	}
	return 3
}
