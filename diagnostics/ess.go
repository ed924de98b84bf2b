package diagnostics

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/CraigKelly/hmc2d/model"
)

// ESS estimates the effective sample size for each axis over all chains
// (truncated to a common length n >= 2). Autocorrelations are pooled across
// chains and summed with Geyer's initial positive sequence: pairs
// rho(2t-1)+rho(2t) are accumulated until a pair is non-positive or the lag
// passes n/2. The result never exceeds the total sample count.
func ESS(chains [][]model.Vec) (model.Vec, error) {
	if len(chains) < 1 {
		return model.Vec{}, errors.Wrap(ErrInsufficientChains, "ESS needs at least one chain")
	}

	n := minLength(chains)
	if n < 2 {
		return model.Vec{}, errors.Wrapf(ErrInsufficientSamples, "ESS needs 2 samples per chain, got %d", n)
	}

	return model.Vec{
		X: essAxis(chains, n, 0),
		Y: essAxis(chains, n, 1),
	}, nil
}

func essAxis(chains [][]model.Vec, n int, axis int) float64 {
	m := len(chains)
	total := float64(m * n)
	fn := float64(n)

	// Centered copies of each chain
	centered := make([][]float64, m)
	for j, ch := range chains {
		c := axisValues(ch[:n], axis)
		floats.AddConst(-stat.Mean(c, nil), c)
		centered[j] = c
	}

	autocov := func(k int) float64 {
		acc := 0.0
		for _, c := range centered {
			s := 0.0
			for t := 0; t < n-k; t++ {
				s += c[t] * c[t+k]
			}
			acc += s / fn
		}
		return acc / float64(m)
	}

	gamma0 := autocov(0)
	if gamma0 == 0 {
		return total
	}
	rho := func(k int) float64 {
		return autocov(k) / gamma0
	}

	sum := 0.0
	for t := 1; 2*t <= n/2; t++ {
		pair := rho(2*t-1) + rho(2*t)
		if pair <= 0 {
			break
		}
		sum += pair
	}

	tau := 1.0 + 2.0*sum
	return math.Min(total/tau, total)
}
