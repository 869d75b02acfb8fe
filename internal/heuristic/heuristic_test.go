package heuristic

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/example/ai-check/internal/imageprocessor"
)

func uniformRaw(h, w int, r, g, b uint8) *imageprocessor.RawImage {
	raw := &imageprocessor.RawImage{Height: h, Width: w, Channels: 3, Pix: make([]uint8, h*w*3)}
	for i := 0; i < len(raw.Pix); i += 3 {
		raw.Pix[i], raw.Pix[i+1], raw.Pix[i+2] = r, g, b
	}
	return raw
}

func checkerLuma(h, w int, amplitude float64) *Luma {
	l := &Luma{Height: h, Width: w, Pix: make([]float64, h*w)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 1 {
				l.Pix[y*w+x] = amplitude
			}
		}
	}
	return l
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAnalyzeRejectsWrongChannelCount(t *testing.T) {
	tests := []struct {
		name string
		raw  *imageprocessor.RawImage
	}{
		{"nil", nil},
		{"gray", &imageprocessor.RawImage{Height: 2, Width: 2, Channels: 1, Pix: make([]uint8, 4)}},
		{"rgba", &imageprocessor.RawImage{Height: 2, Width: 2, Channels: 4, Pix: make([]uint8, 16)}},
		{"short buffer", &imageprocessor.RawImage{Height: 2, Width: 2, Channels: 3, Pix: make([]uint8, 5)}},
		{"empty", &imageprocessor.RawImage{Channels: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Analyze(tt.raw); !errors.Is(err, ErrInvalidFormat) {
				t.Fatalf("expected ErrInvalidFormat, got %v", err)
			}
		})
	}
}

func TestScoresClampedForExtremeImages(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	noisy := uniformRaw(256, 256, 0, 0, 0)
	for i := range noisy.Pix {
		noisy.Pix[i] = uint8(rng.Intn(256))
	}

	inputs := map[string]*imageprocessor.RawImage{
		"all zero":  uniformRaw(256, 256, 0, 0, 0),
		"all 255":   uniformRaw(256, 256, 255, 255, 255),
		"pure red":  uniformRaw(130, 70, 255, 0, 0),
		"tiny":      uniformRaw(3, 5, 12, 200, 7),
		"one pixel": uniformRaw(1, 1, 255, 255, 255),
		"noise":     noisy,
	}
	for name, raw := range inputs {
		t.Run(name, func(t *testing.T) {
			scores, err := Analyze(raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for label, v := range map[string]float64{"texture": scores.Texture, "color": scores.Color, "noise": scores.Noise} {
				if v < 0 || v > 1 || math.IsNaN(v) {
					t.Fatalf("%s score %f outside [0,1]", label, v)
				}
			}
		})
	}
}

func TestUniformImageScores(t *testing.T) {
	scores, err := Analyze(uniformRaw(256, 256, 0, 0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scores.Texture != neutral {
		t.Fatalf("flat image should have neutral texture, got %f", scores.Texture)
	}
	if !almostEqual(scores.Color, 0.6) {
		t.Fatalf("expected color 0.6, got %f", scores.Color)
	}
	if scores.Noise != 0 {
		t.Fatalf("expected zero noise, got %f", scores.Noise)
	}
	if got := Interpret(scores.Combined()); got != LabelUncertain {
		t.Fatalf("expected uncertain label, got %s", got)
	}
}

func TestNoisyImageLooksOriginal(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	raw := uniformRaw(256, 256, 0, 0, 0)
	for i := range raw.Pix {
		raw.Pix[i] = uint8(rng.Intn(256))
	}
	result, err := Evaluate(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Scores.Texture != 1 || result.Scores.Noise != 1 {
		t.Fatalf("expected saturated texture and noise, got %+v", result.Scores)
	}
	if result.Label != LabelOriginal {
		t.Fatalf("expected original label, got %s (combined %f)", result.Label, result.Combined)
	}
}

func TestTextureAveragesTileVariance(t *testing.T) {
	if got := Texture(checkerLuma(64, 64, 20)); !almostEqual(got, 0.2) {
		t.Fatalf("expected 0.2, got %f", got)
	}
	if got := Texture(checkerLuma(32, 32, 20)); got != neutral {
		t.Fatalf("image without full interior tile should be neutral, got %f", got)
	}
	if got := Texture(checkerLuma(64, 64, 200)); got != 1 {
		t.Fatalf("expected clamp to 1, got %f", got)
	}
}

func TestNoiseAveragesWindowStdDev(t *testing.T) {
	if got := Noise(checkerLuma(96, 96, 10)); !almostEqual(got, 0.5) {
		t.Fatalf("expected 0.5, got %f", got)
	}
	if got := Noise(checkerLuma(64, 64, 10)); got != neutral {
		t.Fatalf("image without sample window should be neutral, got %f", got)
	}
}

func TestColorPenalizesChannelDominance(t *testing.T) {
	if got := Color(uniformRaw(10, 10, 255, 0, 0)); got != 0 {
		t.Fatalf("expected 0 for pure red, got %f", got)
	}

	gradient := &imageprocessor.RawImage{Height: 1, Width: 256, Channels: 3, Pix: make([]uint8, 256*3)}
	for x := 0; x < 256; x++ {
		gradient.Pix[x*3], gradient.Pix[x*3+1], gradient.Pix[x*3+2] = uint8(x), uint8(x), uint8(x)
	}
	if got := Color(gradient); got < 0.95 {
		t.Fatalf("expected smooth balanced histogram to score high, got %f", got)
	}
}

func TestBinOf(t *testing.T) {
	cases := map[uint8]int{0: 0, 7: 0, 8: 1, 127: 15, 254: 31, 255: 31}
	for v, want := range cases {
		if got := binOf(v); got != want {
			t.Fatalf("binOf(%d) = %d, want %d", v, got, want)
		}
	}
}

func TestInterpretThresholds(t *testing.T) {
	cases := []struct {
		combined float64
		want     Label
	}{
		{0.0, LabelAIGenerated},
		{0.29, LabelAIGenerated},
		{0.3, LabelUncertain},
		{0.7, LabelUncertain},
		{0.71, LabelOriginal},
	}
	for _, tc := range cases {
		if got := Interpret(tc.combined); got != tc.want {
			t.Fatalf("Interpret(%f) = %s, want %s", tc.combined, got, tc.want)
		}
	}
}

func TestCombinedWeights(t *testing.T) {
	s := Scores{Texture: 1, Color: 0.5, Noise: 0.2}
	if got := s.Combined(); !almostEqual(got, 0.4+0.15+0.06) {
		t.Fatalf("unexpected combined %f", got)
	}
}
