package classifier

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/example/ai-check/internal/imageprocessor"
)

const stubInputs = imageprocessor.InputSize * imageprocessor.InputSize * imageprocessor.Channels

// Stub is a single sigmoid unit over the flattened tensor. It keeps the
// service answering when no real model could be built.
type Stub struct {
	weights []float64
	bias    float64
}

// NewStub initialises the weights Glorot-uniform from seed.
func NewStub(seed int64) *Stub {
	rng := rand.New(rand.NewSource(seed))
	limit := math.Sqrt(6 / float64(stubInputs+1))
	w := make([]float64, stubInputs)
	for i := range w {
		w[i] = (rng.Float64()*2 - 1) * limit
	}
	return &Stub{weights: w}
}

// Score implements Scorer.
func (s *Stub) Score(_ context.Context, t *imageprocessor.Tensor) (float64, error) {
	if len(t.Data) != len(s.weights) {
		return 0, fmt.Errorf("stub expects %d inputs, got %d", len(s.weights), len(t.Data))
	}
	x := make([]float64, len(t.Data))
	for i, v := range t.Data {
		x[i] = float64(v)
	}
	return sigmoid(floats.Dot(s.weights, x) + s.bias), nil
}
