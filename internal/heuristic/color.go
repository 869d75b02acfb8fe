package heuristic

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/example/ai-check/internal/imageprocessor"
)

const (
	histogramBins    = 32
	balanceWeight    = 0.6
	smoothnessWeight = 0.4
	smoothnessGain   = 10.0
)

// Color combines channel balance with histogram smoothness:
//
//	0.6·(1 − (max mean − min mean)/255) + 0.4·max(0, mean smoothness)
//
// where a channel's smoothness is 1 − 10·stddev of its normalized 32-bin
// histogram over [0,255]. raw must hold three channels.
func Color(raw *imageprocessor.RawImage) float64 {
	n := raw.Height * raw.Width
	if n == 0 || raw.Channels != 3 || len(raw.Pix) != 3*n {
		return neutral
	}

	var sums [3]float64
	var hist [3][]float64
	for c := range hist {
		hist[c] = make([]float64, histogramBins)
	}
	for i := 0; i < len(raw.Pix); i += 3 {
		for c := 0; c < 3; c++ {
			v := raw.Pix[i+c]
			sums[c] += float64(v)
			hist[c][binOf(v)]++
		}
	}

	means := []float64{sums[0] / float64(n), sums[1] / float64(n), sums[2] / float64(n)}
	balance := 1 - (floats.Max(means)-floats.Min(means))/255.0

	smoothness := make([]float64, 3)
	for c := range hist {
		floats.Scale(1/float64(n), hist[c])
		smoothness[c] = 1 - math.Sqrt(stat.PopVariance(hist[c], nil))*smoothnessGain
	}
	avg := stat.Mean(smoothness, nil)

	return clamp01(balanceWeight*balance + smoothnessWeight*math.Max(0, avg))
}

// binOf places v into one of 32 equal-width bins spanning [0,255]; 255
// falls into the last bin.
func binOf(v uint8) int {
	b := int(float64(v) * histogramBins / 255.0)
	if b >= histogramBins {
		b = histogramBins - 1
	}
	return b
}
