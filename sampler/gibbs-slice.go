package sampler

import (
	"github.com/pkg/errors"

	"github.com/CraigKelly/hmc2d/model"
)

// GibbsSlice is a Gibbs sampler that updates x then y, each from its full
// conditional, using univariate slice sampling. Every step is accepted.
type GibbsSlice struct {
	rng    RNG
	params Params

	// Fallbacks counts slice updates that hit the shrinkage cap
	Fallbacks int64
}

// NewGibbsSlice creates a new sampler. The RNG is required.
func NewGibbsSlice(rng RNG, opts ...Option) (*GibbsSlice, error) {
	if rng == nil {
		return nil, errors.New("No RNG supplied")
	}

	params, err := applyOptions(DefaultParams(), opts)
	if err != nil {
		return nil, errors.Wrap(err, "Invalid Gibbs parameters")
	}

	return &GibbsSlice{rng: rng, params: params}, nil
}

// Params returns the current parameters
func (g *GibbsSlice) Params() Params {
	return g.params
}

// SetParams implements Sampler. Step size and step count are accepted but
// have no effect.
func (g *GibbsSlice) SetParams(opts ...Option) error {
	params, err := applyOptions(g.params, opts)
	if err != nil {
		return errors.Wrap(err, "Invalid Gibbs parameters")
	}
	g.params = params
	return nil
}

// SetSeed implements Sampler
func (g *GibbsSlice) SetSeed(seed *int64) error {
	return reseed(g.rng, seed)
}

// Step implements Sampler. The trajectory is the Manhattan path
// (x0,y0) -> (x1,y0) -> (x1,y1).
func (g *GibbsSlice) Step(state Particle, target model.Density) (StepResult, error) {
	q0 := state.Q

	x1, err := g.update("x", func(x float64) (float64, error) {
		return target.LogProbability(x, q0.Y)
	}, q0.X)
	if err != nil {
		return StepResult{}, err
	}

	y1, err := g.update("y", func(y float64) (float64, error) {
		return target.LogProbability(x1, y)
	}, q0.Y)
	if err != nil {
		return StepResult{}, err
	}

	q1 := model.Vec{X: x1, Y: y1}
	return StepResult{
		Q:          q1,
		P:          model.Vec{},
		Accepted:   true,
		Trajectory: []model.Vec{q0, {X: x1, Y: q0.Y}, q1},
	}, nil
}

func (g *GibbsSlice) update(axis string, f LogDensity1D, v0 float64) (float64, error) {
	v1, exhausted, err := SliceSample(f, v0, g.params.SliceWidth, g.rng)
	if err != nil {
		return v0, errors.Wrapf(err, "Gibbs %s update failed", axis)
	}
	if exhausted {
		g.Fallbacks++
		g.params.Logger.Printf("WARNING: slice sampler exhausted shrinkage on %s at %g: keeping current value\n", axis, v0)
	}
	return v1, nil
}
