package sampler

import (
	"github.com/CraigKelly/hmc2d/buffer"
	"github.com/CraigKelly/hmc2d/model"
)

// DefaultRecentWindow is the number of recent samples a chain keeps for
// live displays and drift checks
const DefaultRecentWindow = 200

// ChainConfig describes one chain. A nil Seed means one is derived from the
// controller's run seed.
type ChainConfig struct {
	Kind     Kind      `yaml:"kind" json:"kind"`
	Seed     *int64    `yaml:"seed,omitempty" json:"seed,omitempty"`
	Start    model.Vec `yaml:"start" json:"start"`
	Disabled bool      `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

// Chain is a single Markov chain: its sampler, its current particle, and
// everything it has produced. The chain owns its particle; nothing else
// writes to it.
type Chain struct {
	ID          int
	Config      ChainConfig
	Sampler     Sampler
	InitialSeed int64 // Seed restored on Reset

	State       Particle            // Current particle
	Samples     []model.Vec         // Accepted samples only, oldest first
	Accepted    int64               // Accepted transitions
	Rejected    int64               // Rejected transitions
	Transitions int64               // Accepted + Rejected
	Trajectory  []model.Vec         // Path of the most recent transition (replaced, never accumulated)
	Recent      *buffer.CircularVec // Window of the latest accepted samples
}

// Enabled is true if the controller should step this chain
func (c *Chain) Enabled() bool {
	return !c.Config.Disabled
}

// AcceptanceRate is Accepted / Transitions, or 0 before the first transition
func (c *Chain) AcceptanceRate() float64 {
	if c.Transitions < 1 {
		return 0
	}
	return float64(c.Accepted) / float64(c.Transitions)
}

// reset puts the chain back at its start with no history
func (c *Chain) reset() error {
	c.State = Particle{Q: c.Config.Start}
	c.Samples = nil
	c.Accepted = 0
	c.Rejected = 0
	c.Transitions = 0
	c.Trajectory = []model.Vec{c.Config.Start}
	c.Recent.Reset()

	seed := c.InitialSeed
	return c.Sampler.SetSeed(&seed)
}

// oneStep takes a single transition and updates the chain state.
func (c *Chain) oneStep(target model.Density) (StepResult, error) {
	res, err := c.Sampler.Step(c.State, target)
	if err != nil {
		return res, err
	}

	c.Transitions++
	c.Trajectory = res.Trajectory

	if res.Accepted {
		c.Accepted++
		c.State = res.Particle()
		c.Samples = append(c.Samples, res.Q)
		c.Recent.Add(res.Q)
	} else {
		c.Rejected++
		c.State = Particle{Q: c.State.Q}
	}

	return res, nil
}
