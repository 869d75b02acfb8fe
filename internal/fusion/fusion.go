// Package fusion combines the classifier score with the heuristic signal
// into the final verdict.
package fusion

import "github.com/example/ai-check/internal/heuristic"

// Verdict is the only result exposed to callers.
type Verdict string

const (
	AIGenerated Verdict = "AI Generated"
	Original    Verdict = "Original Image"
)

// Policy holds the decision thresholds and blend weights. The values in
// DefaultPolicy are empirical; they are kept exactly for behavioral
// compatibility and are not exposed as runtime configuration.
type Policy struct {
	// Scores above AIAbove are AI without consulting the heuristic.
	AIAbove float64
	// Scores below OriginalBelow are original without consulting the heuristic.
	OriginalBelow float64

	ClassifierWeight float64
	HeuristicWeight  float64
	// A blended score above FusedAIAbove is AI.
	FusedAIAbove float64

	AISignal       float64
	OriginalSignal float64
	NeutralSignal  float64
}

// DefaultPolicy returns the production thresholds.
func DefaultPolicy() Policy {
	return Policy{
		AIAbove:          0.6,
		OriginalBelow:    0.4,
		ClassifierWeight: 0.7,
		HeuristicWeight:  0.3,
		FusedAIAbove:     0.55,
		AISignal:         0.2,
		OriginalSignal:   0.8,
		NeutralSignal:    0.5,
	}
}

// HeuristicFunc runs the heuristic analysis on demand. It is called at most
// once per decision and only inside the uncertain band.
type HeuristicFunc func() (heuristic.Label, error)

// Decision records how a verdict was reached.
type Decision struct {
	Verdict          Verdict
	ClassifierScore  float64
	HeuristicInvoked bool
	HeuristicLabel   heuristic.Label
	HeuristicErr     error
	Signal           float64
	Combined         float64
}

// Decide applies the policy. A failing heuristic contributes the neutral
// signal rather than aborting the decision.
func (p Policy) Decide(score float64, analyze HeuristicFunc) Decision {
	d := Decision{ClassifierScore: score}
	switch {
	case score > p.AIAbove:
		d.Verdict = AIGenerated
		return d
	case score < p.OriginalBelow:
		d.Verdict = Original
		return d
	}

	d.HeuristicInvoked = true
	if analyze != nil {
		d.HeuristicLabel, d.HeuristicErr = analyze()
	}
	d.Signal = p.Signal(d.HeuristicLabel)
	if d.HeuristicErr != nil {
		d.Signal = p.NeutralSignal
	}

	d.Combined = p.ClassifierWeight*score + p.HeuristicWeight*d.Signal
	if d.Combined > p.FusedAIAbove {
		d.Verdict = AIGenerated
	} else {
		d.Verdict = Original
	}
	return d
}

// Signal converts a heuristic label to its numeric contribution.
func (p Policy) Signal(label heuristic.Label) float64 {
	switch label {
	case heuristic.LabelAIGenerated:
		return p.AISignal
	case heuristic.LabelOriginal:
		return p.OriginalSignal
	default:
		return p.NeutralSignal
	}
}

// Decide applies DefaultPolicy and returns only the verdict.
func Decide(score float64, analyze HeuristicFunc) Verdict {
	return DefaultPolicy().Decide(score, analyze).Verdict
}
