package heuristic

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	noiseWindow = 32
	noiseStride = 64
	noiseOffset = 32
	noiseScale  = 10.0
)

// Noise samples 32×32 windows centred on a stride-64 grid that starts 32
// pixels in from the top-left corner, averages their standard deviation and
// divides by 10. Sensor noise keeps real photos above generated ones.
func Noise(l *Luma) float64 {
	var levels []float64
	window := make([]float64, 0, noiseWindow*noiseWindow)
	half := noiseWindow / 2
	for cy := noiseOffset; cy < l.Height-noiseOffset; cy += noiseStride {
		for cx := noiseOffset; cx < l.Width-noiseOffset; cx += noiseStride {
			window = l.region(window[:0], cy-half, cx-half, noiseWindow)
			levels = append(levels, math.Sqrt(stat.PopVariance(window, nil)))
		}
	}
	if len(levels) == 0 {
		return neutral
	}
	return normalize(stat.Mean(levels, nil), noiseScale)
}
