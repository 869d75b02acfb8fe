// Package heuristic scores an image on texture, color distribution and
// noise statistics. Each score is in [0,1]; values near 0 look generated,
// values near 1 look camera-captured. All functions are pure.
package heuristic

import (
	"errors"
	"math"

	"github.com/example/ai-check/internal/imageprocessor"
)

// ErrInvalidFormat reports a raster that does not have exactly three color
// channels.
var ErrInvalidFormat = errors.New("invalid image format")

// Label is the interpretation of a combined heuristic score.
type Label string

const (
	LabelAIGenerated Label = "AI Generated"
	LabelOriginal    Label = "Original Image"
	LabelUncertain   Label = "Uncertain - Likely Original"
)

// Empirical weights and cut-offs carried over unchanged from the model that
// was tuned against them.
const (
	textureWeight = 0.4
	colorWeight   = 0.3
	noiseWeight   = 0.3

	aiBelow       = 0.3
	originalAbove = 0.7

	neutral = 0.5
)

// Scores holds the three independent sub-scores.
type Scores struct {
	Texture float64
	Color   float64
	Noise   float64
}

// Combined is the weighted average 0.4·texture + 0.3·color + 0.3·noise.
func (s Scores) Combined() float64 {
	return textureWeight*s.Texture + colorWeight*s.Color + noiseWeight*s.Noise
}

// Result is a full heuristic evaluation.
type Result struct {
	Scores   Scores
	Combined float64
	Label    Label
}

// Interpret maps a combined score to a label.
func Interpret(combined float64) Label {
	switch {
	case combined < aiBelow:
		return LabelAIGenerated
	case combined > originalAbove:
		return LabelOriginal
	default:
		return LabelUncertain
	}
}

// Analyze computes the score triple. It fails only with ErrInvalidFormat;
// numeric trouble inside a sub-analysis yields the neutral 0.5 for that
// score instead.
func Analyze(raw *imageprocessor.RawImage) (Scores, error) {
	if err := validate(raw); err != nil {
		return Scores{}, err
	}
	luma := Luminance(raw)
	return Scores{
		Texture: Texture(luma),
		Color:   Color(raw),
		Noise:   Noise(luma),
	}, nil
}

// Evaluate runs Analyze and interprets the combined score.
func Evaluate(raw *imageprocessor.RawImage) (Result, error) {
	scores, err := Analyze(raw)
	if err != nil {
		return Result{}, err
	}
	combined := scores.Combined()
	return Result{Scores: scores, Combined: combined, Label: Interpret(combined)}, nil
}

func validate(raw *imageprocessor.RawImage) error {
	if raw == nil || raw.Channels != 3 || raw.Height <= 0 || raw.Width <= 0 {
		return ErrInvalidFormat
	}
	if len(raw.Pix) != raw.Height*raw.Width*raw.Channels {
		return ErrInvalidFormat
	}
	return nil
}

// normalize divides v by scale and clamps to [0,1]; non-finite values
// become neutral.
func normalize(v, scale float64) float64 {
	return clamp01(v / scale)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return neutral
	}
	return math.Max(0, math.Min(1, v))
}
