package diagnostics

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/CraigKelly/hmc2d/model"
)

// Precondition failures. Callers that only want "a value or nothing" can
// treat any of these as nothing.
var (
	ErrInsufficientChains  = errors.New("Not enough chains for diagnostic")
	ErrInsufficientSamples = errors.New("Not enough samples for diagnostic")
)

// minLength returns the length of the shortest chain
func minLength(chains [][]model.Vec) int {
	n := len(chains[0])
	for _, ch := range chains[1:] {
		if len(ch) < n {
			n = len(ch)
		}
	}
	return n
}

// GelmanRubin returns the potential scale reduction factor R-hat for each
// axis. Chains are truncated to the shortest chain's length. At least 2
// chains of at least 2 samples are required.
//
// When within-chain variance is zero, R-hat is 1 if the chains also agree
// (identical constants) and +Inf if they don't.
func GelmanRubin(chains [][]model.Vec) (model.Vec, error) {
	if len(chains) < 2 {
		return model.Vec{}, errors.Wrapf(ErrInsufficientChains, "R-hat needs 2 chains, got %d", len(chains))
	}

	n := minLength(chains)
	if n < 2 {
		return model.Vec{}, errors.Wrapf(ErrInsufficientSamples, "R-hat needs 2 samples per chain, got %d", n)
	}

	return model.Vec{
		X: gelmanRubinAxis(chains, n, 0),
		Y: gelmanRubinAxis(chains, n, 1),
	}, nil
}

func gelmanRubinAxis(chains [][]model.Vec, n int, axis int) float64 {
	m := len(chains)
	fn, fm := float64(n), float64(m)

	means := make([]float64, m)
	w := 0.0
	for j, ch := range chains {
		mu, s2 := meanVar(ch[:n], axis)
		means[j] = mu
		w += s2
	}
	w /= fm

	grand := 0.0
	for _, mu := range means {
		grand += mu
	}
	grand /= fm

	b := 0.0
	for _, mu := range means {
		d := mu - grand
		b += d * d
	}
	b *= fn / (fm - 1)

	if w == 0 {
		if b == 0 {
			return 1.0
		}
		return math.Inf(1)
	}

	v := ((fn-1)/fn)*w + b/fn
	return math.Sqrt(v / w)
}

// meanVar returns the mean and the unbiased (n-1) sample variance. A single
// sample has variance 0.
func meanVar(samples []model.Vec, axis int) (float64, float64) {
	vals := axisValues(samples, axis)
	if len(vals) < 2 {
		return stat.Mean(vals, nil), 0
	}
	mu, v := stat.MeanVariance(vals, nil)
	return mu, math.Max(v, 0)
}

// axisValues copies one coordinate out of every sample
func axisValues(samples []model.Vec, axis int) []float64 {
	vals := make([]float64, len(samples))
	for i, s := range samples {
		vals[i] = s.Axis(axis)
	}
	return vals
}
