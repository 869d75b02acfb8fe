package classifier

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	headHidden  = 128
	batchNormEp = 1e-3
)

// Head is the trainable classifier on top of the frozen backbone:
// BN → dropout → dense(128, relu) → BN → dropout → dense(1, sigmoid).
// Dropout is the identity at inference time and is not materialised.
type Head struct {
	bn1    batchNorm
	dense1 dense
	bn2    batchNorm
	dense2 dense
}

// NewHead builds a head for the given feature width with Glorot-uniform
// kernels, zero biases and identity batch-norm statistics, all drawn from a
// PRNG seeded with seed.
func NewHead(features int, seed int64) *Head {
	rng := rand.New(rand.NewSource(seed))
	return &Head{
		bn1:    newBatchNorm(features),
		dense1: newDense(rng, features, headHidden),
		bn2:    newBatchNorm(headHidden),
		dense2: newDense(rng, headHidden, 1),
	}
}

// Forward maps pooled features to a probability.
func (h *Head) Forward(features []float64) float64 {
	x := h.bn1.apply(features)
	x = h.dense1.apply(x)
	for i, v := range x {
		x[i] = math.Max(0, v)
	}
	x = h.bn2.apply(x)
	return sigmoid(h.dense2.apply(x)[0])
}

type dense struct {
	weights *mat.Dense // out × in
	bias    []float64
}

func newDense(rng *rand.Rand, in, out int) dense {
	limit := math.Sqrt(6 / float64(in+out))
	w := make([]float64, in*out)
	for i := range w {
		w[i] = (rng.Float64()*2 - 1) * limit
	}
	return dense{weights: mat.NewDense(out, in, w), bias: make([]float64, out)}
}

func (d dense) apply(x []float64) []float64 {
	out, _ := d.weights.Dims()
	res := make([]float64, out)
	mat.NewVecDense(out, res).MulVec(d.weights, mat.NewVecDense(len(x), x))
	floats.Add(res, d.bias)
	return res
}

type batchNorm struct {
	gamma, beta, mean, variance []float64
}

func newBatchNorm(n int) batchNorm {
	bn := batchNorm{
		gamma:    make([]float64, n),
		beta:     make([]float64, n),
		mean:     make([]float64, n),
		variance: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		bn.gamma[i] = 1
		bn.variance[i] = 1
	}
	return bn
}

func (bn batchNorm) apply(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = bn.gamma[i]*(v-bn.mean[i])/math.Sqrt(bn.variance[i]+batchNormEp) + bn.beta[i]
	}
	return out
}
