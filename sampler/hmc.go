package sampler

import (
	"math"

	"github.com/pkg/errors"

	"github.com/CraigKelly/hmc2d/model"
)

// HamiltonianMC proposes moves by simulating Hamiltonian dynamics with the
// leapfrog integrator and accepts them with a Metropolis test on the change
// in total energy. Momentum is redrawn every step.
type HamiltonianMC struct {
	rng    RNG
	params Params
}

// NewHMC creates a new HMC sampler. The RNG is required.
func NewHMC(rng RNG, opts ...Option) (*HamiltonianMC, error) {
	if rng == nil {
		return nil, errors.New("No RNG supplied")
	}

	params, err := applyOptions(DefaultParams(), opts)
	if err != nil {
		return nil, errors.Wrap(err, "Invalid HMC parameters")
	}

	return &HamiltonianMC{rng: rng, params: params}, nil
}

// Params returns the current parameters
func (h *HamiltonianMC) Params() Params {
	return h.params
}

// SetParams implements Sampler
func (h *HamiltonianMC) SetParams(opts ...Option) error {
	params, err := applyOptions(h.params, opts)
	if err != nil {
		return errors.Wrap(err, "Invalid HMC parameters")
	}
	h.params = params
	return nil
}

// SetSeed implements Sampler
func (h *HamiltonianMC) SetSeed(seed *int64) error {
	return reseed(h.rng, seed)
}

// Step implements Sampler. Only q in state is used: the incoming momentum is
// discarded and resampled.
func (h *HamiltonianMC) Step(state Particle, target model.Density) (StepResult, error) {
	q0 := state.Q
	if !q0.IsValid() {
		return StepResult{}, errors.Errorf("HMC can't start from %+v", q0)
	}
	p0 := model.Vec{X: h.rng.NormFloat64(), Y: h.rng.NormFloat64()}

	potential := func(q model.Vec) (float64, error) {
		if !q.IsValid() {
			return math.NaN(), nil
		}
		lp, err := target.LogProbability(q.X, q.Y)
		if err != nil {
			return 0, errors.Wrapf(err, "HMC potential failed at %+v", q)
		}
		return -lp, nil
	}
	gradU := func(q model.Vec) (model.Vec, error) {
		if !q.IsValid() {
			return model.Vec{X: math.NaN(), Y: math.NaN()}, nil
		}
		g, err := target.LogProbabilityGradient(q.X, q.Y)
		if err != nil {
			return model.Vec{}, errors.Wrapf(err, "HMC gradient failed at %+v", q)
		}
		return g.Neg(), nil
	}

	u0, err := potential(q0)
	if err != nil {
		return StepResult{}, err
	}
	h0 := 0.5*p0.NormSq() + u0

	steps := h.params.Steps
	traj := make([]model.Vec, 1, steps+1)
	traj[0] = q0

	// Once the trajectory leaves finite territory we stop integrating (the
	// density is never asked about Inf/NaN points) and pad the remainder so
	// the trajectory keeps its L+1 shape. Such a proposal is never accepted.
	// Overflow inside the density (a NaN energy or gradient at a finite
	// point) ends up here too.
	q, p := q0, p0
	diverged := math.IsNaN(h0)
	for i := 0; i < steps; i++ {
		if !diverged {
			nq, np, err := Leapfrog(q, p, h.params.StepSize, gradU)
			if err != nil {
				return StepResult{}, err
			}
			if nq.IsValid() && np.IsValid() {
				q, p = nq, np
			} else {
				diverged = true
			}
		}
		traj = append(traj, q)
	}

	p = p.Neg()

	alpha := 0.0
	if !diverged {
		u1, err := potential(q)
		if err != nil {
			return StepResult{}, err
		}
		h1 := 0.5*p.NormSq() + u1
		alpha = math.Min(1.0, math.Exp(h0-h1))
		if math.IsNaN(alpha) {
			alpha = 0.0
		}
	}

	if h.rng.Float64() < alpha {
		return StepResult{Q: q, P: p, Accepted: true, Trajectory: traj}, nil
	}
	return StepResult{Q: q0, P: model.Vec{}, Accepted: false, Trajectory: traj}, nil
}
