package sampler

import (
	"io/ioutil"
	"log"
	"strings"

	"github.com/pkg/errors"

	"github.com/CraigKelly/hmc2d/model"
	"github.com/CraigKelly/hmc2d/rand"
)

// RNG is the random source a sampler draws from. *rand.Generator is the
// implementation we use everywhere, but tests are free to swap in something
// more predictable.
type RNG interface {
	Float64() float64
	NormFloat64() float64
	Seed() int64
	SetSeed(seed int64) error
}

var _ RNG = (*rand.Generator)(nil)

// Particle is the state carried from one transition to the next. It is owned
// by a single chain and handed to Step explicitly.
type Particle struct {
	Q model.Vec `json:"q"`
	P model.Vec `json:"p"`
}

// StepResult is the outcome of one Markov transition. Trajectory is always
// populated, even when the proposal was rejected, and always starts with the
// position the step started from.
type StepResult struct {
	Q          model.Vec   `json:"q"`
	P          model.Vec   `json:"p"`
	Accepted   bool        `json:"accepted"`
	Trajectory []model.Vec `json:"trajectory"`
}

// Particle returns the state to feed into the next Step
func (r StepResult) Particle() Particle {
	return Particle{Q: r.Q, P: r.P}
}

// A Sampler produces one Markov transition at a time. Both HMC and Gibbs
// satisfy it, and the controller only ever talks to samplers through it.
type Sampler interface {
	// SetParams applies a partial parameter update
	SetParams(opts ...Option) error
	// SetSeed reseeds the sampler's RNG. A nil seed reseeds from the
	// generator's own next draw.
	SetSeed(seed *int64) error
	// Step performs one transition from the given state
	Step(state Particle, target model.Density) (StepResult, error)
}

// Defaults for Params
const (
	DefaultStepSize   = 0.1
	DefaultSteps      = 10
	DefaultSliceWidth = 1.0
)

// Params are the tuning parameters for all sampler kinds. A sampler only
// reads the fields it understands.
type Params struct {
	StepSize   float64     // HMC leapfrog step size (epsilon)
	Steps      int         // HMC leapfrog steps per transition (L)
	SliceWidth float64     // Gibbs initial slice bracket width
	Logger     *log.Logger // Destination for non-fatal warnings
}

// DefaultParams returns the parameters a new sampler starts with
func DefaultParams() Params {
	return Params{
		StepSize:   DefaultStepSize,
		Steps:      DefaultSteps,
		SliceWidth: DefaultSliceWidth,
		Logger:     log.New(ioutil.Discard, "", 0),
	}
}

// Check returns an error if any parameter is invalid
func (p Params) Check() error {
	if !(p.StepSize > 0) {
		return errors.Errorf("Step size must be positive, got %g", p.StepSize)
	}
	if p.Steps < 0 {
		return errors.Errorf("Leapfrog step count must be >= 0, got %d", p.Steps)
	}
	if !(p.SliceWidth > 0) {
		return errors.Errorf("Slice width must be positive, got %g", p.SliceWidth)
	}
	if p.Logger == nil {
		return errors.New("No logger supplied")
	}
	return nil
}

// An Option is a partial update to Params
type Option func(*Params)

// WithStepSize sets the HMC step size
func WithStepSize(eps float64) Option {
	return func(p *Params) { p.StepSize = eps }
}

// WithSteps sets the number of HMC leapfrog steps
func WithSteps(n int) Option {
	return func(p *Params) { p.Steps = n }
}

// WithSliceWidth sets the slice sampler's bracket width
func WithSliceWidth(w float64) Option {
	return func(p *Params) { p.SliceWidth = w }
}

// WithLogger sets where warnings go
func WithLogger(l *log.Logger) Option {
	return func(p *Params) { p.Logger = l }
}

// applyOptions returns a copy of p with opts applied, or an error (and p
// untouched) if the result is invalid.
func applyOptions(p Params, opts []Option) (Params, error) {
	np := p
	for _, o := range opts {
		o(&np)
	}
	if err := np.Check(); err != nil {
		return p, err
	}
	return np, nil
}

// reseed implements the shared SetSeed logic
func reseed(rng RNG, seed *int64) error {
	if seed == nil {
		next := int64(rng.Float64() * (1 << 32))
		return rng.SetSeed(next)
	}
	return rng.SetSeed(*seed)
}

// Kind selects a concrete sampler
type Kind int

// Available sampler kinds
const (
	HMC Kind = iota
	Gibbs
)

func (k Kind) String() string {
	switch k {
	case HMC:
		return "hmc"
	case Gibbs:
		return "gibbs"
	}
	return "unknown"
}

// ParseKind maps a name (case insensitive) to a Kind
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hmc", "":
		return HMC, nil
	case "gibbs", "slice":
		return Gibbs, nil
	}
	return HMC, errors.Errorf("Unknown sampler kind %q", name)
}

// MarshalText lets Kind appear by name in YAML and JSON
func (k Kind) MarshalText() ([]byte, error) {
	if k != HMC && k != Gibbs {
		return nil, errors.Errorf("Invalid sampler kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText is the inverse of MarshalText
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// New creates a sampler of the given kind
func New(kind Kind, rng RNG, opts ...Option) (Sampler, error) {
	switch kind {
	case HMC:
		return NewHMC(rng, opts...)
	case Gibbs:
		return NewGibbsSlice(rng, opts...)
	}
	return nil, errors.Errorf("Invalid sampler kind %d", int(kind))
}
