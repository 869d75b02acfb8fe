// Package classifier resolves and wraps the model that scores a tensor with
// the probability that the image is AI generated.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/example/ai-check/internal/imageprocessor"
)

// ErrInvalidScore reports a model output outside [0,1].
var ErrInvalidScore = errors.New("classifier produced an invalid score")

// Scorer produces a probability in [0,1]; closer to 1 means AI generated.
// Implementations must be safe for concurrent use and must not mutate the
// tensor.
type Scorer interface {
	Score(ctx context.Context, t *imageprocessor.Tensor) (float64, error)
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(ctx context.Context, t *imageprocessor.Tensor) (float64, error)

// Score calls f.
func (f ScorerFunc) Score(ctx context.Context, t *imageprocessor.Tensor) (float64, error) {
	return f(ctx, t)
}

// Classifier is a resolved scorer together with where it came from. It is
// read-only after construction.
type Classifier struct {
	source  ModelSource
	scorer  Scorer
	loadErr error
}

// New wraps an already constructed scorer. Tests use it to inject fakes.
func New(source ModelSource, scorer Scorer) *Classifier {
	return &Classifier{source: source, scorer: scorer}
}

// Source reports which step of the resolution cascade produced the model.
func (c *Classifier) Source() ModelSource {
	return c.source
}

// LoadErr is the failure that forced a fallback to the stub, if any.
func (c *Classifier) LoadErr() error {
	return c.loadErr
}

// Score runs the model and validates its output.
func (c *Classifier) Score(ctx context.Context, t *imageprocessor.Tensor) (float64, error) {
	if t == nil {
		return 0, errors.New("nil tensor")
	}
	score, err := c.scorer.Score(ctx, t)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(score) || score < 0 || score > 1 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidScore, score)
	}
	return score, nil
}

// Close releases runtime resources held by the scorer.
func (c *Classifier) Close() error {
	if closer, ok := c.scorer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
