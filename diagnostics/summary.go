package diagnostics

import (
	"math"

	"github.com/pkg/errors"

	"github.com/CraigKelly/hmc2d/model"
)

// Summary holds per-axis moments for a set of samples
type Summary struct {
	Count    int       `json:"count"`
	Mean     model.Vec `json:"mean"`
	Variance model.Vec `json:"variance"` // Unbiased (n-1)
	StdDev   model.Vec `json:"stddev"`
}

// Summarize returns per-axis moments. Variance needs 2 samples; with only 1
// it is reported as 0.
func Summarize(samples []model.Vec) (Summary, error) {
	if len(samples) < 1 {
		return Summary{}, errors.Wrap(ErrInsufficientSamples, "Nothing to summarize")
	}

	mx, vx := meanVar(samples, 0)
	my, vy := meanVar(samples, 1)

	return Summary{
		Count:    len(samples),
		Mean:     model.Vec{X: mx, Y: my},
		Variance: model.Vec{X: vx, Y: vy},
		StdDev:   model.Vec{X: math.Sqrt(vx), Y: math.Sqrt(vy)},
	}, nil
}

// MCSE is the Monte Carlo standard error of the mean on each axis:
// sd / sqrt(ESS)
func MCSE(s Summary, ess model.Vec) model.Vec {
	se := func(sd, n float64) float64 {
		if n <= 0 {
			return math.Inf(1)
		}
		return sd / math.Sqrt(n)
	}
	return model.Vec{X: se(s.StdDev.X, ess.X), Y: se(s.StdDev.Y, ess.Y)}
}

// BurnIn returns views of each chain with the first n samples skipped. The
// stored chains are never modified; chains shorter than n come back empty.
func BurnIn(chains [][]model.Vec, n int) [][]model.Vec {
	if n < 0 {
		n = 0
	}

	out := make([][]model.Vec, len(chains))
	for i, ch := range chains {
		if n >= len(ch) {
			out[i] = ch[len(ch):]
		} else {
			out[i] = ch[n:]
		}
	}
	return out
}
