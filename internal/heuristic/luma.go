package heuristic

import "github.com/example/ai-check/internal/imageprocessor"

// Luma is a grayscale plane in row-major order.
type Luma struct {
	Height int
	Width  int
	Pix    []float64
}

// Luminance converts an RGB raster with the 0.2989/0.5870/0.1140 weighting.
func Luminance(raw *imageprocessor.RawImage) *Luma {
	l := &Luma{Height: raw.Height, Width: raw.Width, Pix: make([]float64, raw.Height*raw.Width)}
	for y := 0; y < raw.Height; y++ {
		for x := 0; x < raw.Width; x++ {
			r, g, b := raw.RGB(y, x)
			l.Pix[y*raw.Width+x] = 0.2989*float64(r) + 0.5870*float64(g) + 0.1140*float64(b)
		}
	}
	return l
}

// region appends the size×size block whose top-left corner is (top, left)
// to dst.
func (l *Luma) region(dst []float64, top, left, size int) []float64 {
	for y := top; y < top+size; y++ {
		row := l.Pix[y*l.Width+left : y*l.Width+left+size]
		dst = append(dst, row...)
	}
	return dst
}

func constant(values []float64) bool {
	if len(values) == 0 {
		return true
	}
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
