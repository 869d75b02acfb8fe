package fusion

import (
	"errors"
	"math"
	"testing"

	"github.com/example/ai-check/internal/heuristic"
)

type countingHeuristic struct {
	label heuristic.Label
	err   error
	calls int
}

func (c *countingHeuristic) analyze() (heuristic.Label, error) {
	c.calls++
	return c.label, c.err
}

func TestConfidentScoresSkipHeuristic(t *testing.T) {
	cases := []struct {
		score float64
		want  Verdict
	}{
		{0.61, AIGenerated},
		{0.9, AIGenerated},
		{1.0, AIGenerated},
		{0.39, Original},
		{0.1, Original},
		{0.0, Original},
	}
	for _, tc := range cases {
		h := &countingHeuristic{label: heuristic.LabelOriginal}
		d := DefaultPolicy().Decide(tc.score, h.analyze)
		if d.Verdict != tc.want {
			t.Fatalf("score %f: expected %s, got %s", tc.score, tc.want, d.Verdict)
		}
		if h.calls != 0 || d.HeuristicInvoked {
			t.Fatalf("score %f: heuristic invoked %d times", tc.score, h.calls)
		}
	}
}

func TestBlendDoesNotLetHeuristicOverrideMidScore(t *testing.T) {
	h := &countingHeuristic{label: heuristic.Interpret(0.9)}
	d := DefaultPolicy().Decide(0.5, h.analyze)

	if h.calls != 1 {
		t.Fatalf("expected one heuristic call, got %d", h.calls)
	}
	if d.Signal != 0.8 {
		t.Fatalf("expected original signal 0.8, got %f", d.Signal)
	}
	if math.Abs(d.Combined-0.59) > 1e-9 {
		t.Fatalf("expected combined 0.59, got %f", d.Combined)
	}
	if d.Verdict != AIGenerated {
		t.Fatalf("expected %s, got %s", AIGenerated, d.Verdict)
	}
}

func TestNeutralHeuristicLeansOriginal(t *testing.T) {
	h := &countingHeuristic{label: heuristic.LabelUncertain}
	d := DefaultPolicy().Decide(0.45, h.analyze)

	if math.Abs(d.Combined-0.465) > 1e-9 {
		t.Fatalf("expected combined 0.465, got %f", d.Combined)
	}
	if d.Verdict != Original {
		t.Fatalf("expected %s, got %s", Original, d.Verdict)
	}
}

func TestBandEdgesAreUncertain(t *testing.T) {
	for _, score := range []float64{0.4, 0.6} {
		h := &countingHeuristic{label: heuristic.LabelUncertain}
		DefaultPolicy().Decide(score, h.analyze)
		if h.calls != 1 {
			t.Fatalf("score %f should consult the heuristic", score)
		}
	}
}

func TestHeuristicSignals(t *testing.T) {
	cases := []struct {
		label heuristic.Label
		score float64
		want  Verdict
	}{
		{heuristic.LabelAIGenerated, 0.6, Original},
		{heuristic.LabelOriginal, 0.4, Original},
		{heuristic.LabelOriginal, 0.6, AIGenerated},
		{heuristic.LabelUncertain, 0.6, AIGenerated},
		{heuristic.LabelUncertain, 0.55, Original},
	}
	for _, tc := range cases {
		h := &countingHeuristic{label: tc.label}
		if got := Decide(tc.score, h.analyze); got != tc.want {
			t.Fatalf("label %s score %f: expected %s, got %s", tc.label, tc.score, tc.want, got)
		}
	}
}

func TestHeuristicFailureIsNeutral(t *testing.T) {
	h := &countingHeuristic{label: heuristic.LabelAIGenerated, err: heuristic.ErrInvalidFormat}
	d := DefaultPolicy().Decide(0.5, h.analyze)

	if !errors.Is(d.HeuristicErr, heuristic.ErrInvalidFormat) {
		t.Fatalf("expected heuristic error to be recorded, got %v", d.HeuristicErr)
	}
	if d.Signal != 0.5 {
		t.Fatalf("expected neutral signal, got %f", d.Signal)
	}
	if d.Verdict != Original {
		t.Fatalf("expected %s, got %s", Original, d.Verdict)
	}
}
