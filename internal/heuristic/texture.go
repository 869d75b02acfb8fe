package heuristic

import "gonum.org/v1/gonum/stat"

const (
	tileSize     = 32
	textureScale = 500.0
)

// Texture averages the variance of non-overlapping 32×32 tiles and divides
// by 500. Flat tiles are skipped; an image without a textured tile scores
// neutral. Generated images tend to have smoother local texture.
func Texture(l *Luma) float64 {
	var variances []float64
	tile := make([]float64, 0, tileSize*tileSize)
	for top := 0; top < l.Height-tileSize; top += tileSize {
		for left := 0; left < l.Width-tileSize; left += tileSize {
			tile = l.region(tile[:0], top, left, tileSize)
			if constant(tile) {
				continue
			}
			variances = append(variances, stat.PopVariance(tile, nil))
		}
	}
	if len(variances) == 0 {
		return neutral
	}
	return normalize(stat.Mean(variances, nil), textureScale)
}
