package rand

import (
	"math"

	"github.com/pkg/errors"
)

// A Generator is a Mulberry32 PRNG. It is tiny (one 32 bit word of state),
// fast, and most importantly gives bit-identical sequences on every platform
// for a given seed. All arithmetic is uint32 with wraparound.
//
// A Generator is not safe for concurrent use: each sampler owns its own.
type Generator struct {
	seed  uint32
	state uint32
}

// NewGenerator returns a generator seeded with seed, which must fit in 32
// unsigned bits.
func NewGenerator(seed int64) (*Generator, error) {
	g := &Generator{}
	if err := g.SetSeed(seed); err != nil {
		return nil, err
	}
	return g, nil
}

// SetSeed resets both the seed and the running state
func (g *Generator) SetSeed(seed int64) error {
	if seed < 0 || seed > math.MaxUint32 {
		return errors.Errorf("Invalid seed %d: must be in [0, %d]", seed, uint32(math.MaxUint32))
	}
	g.seed = uint32(seed)
	g.state = g.seed
	return nil
}

// Seed returns the seed last passed to SetSeed (not the running state)
func (g *Generator) Seed() int64 {
	return int64(g.seed)
}

// Uint32 advances the state and returns the next raw 32 bit output
func (g *Generator) Uint32() uint32 {
	g.state += 0x6D2B79F5
	t := g.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

// Float64 returns a uniform value in [0, 1). There are only 2^32 possible
// values, which is plenty for our purposes.
func (g *Generator) Float64() float64 {
	return float64(g.Uint32()) / (1 << 32)
}

// NormFloat64 returns a standard normal variate using Box-Muller. Only the
// cosine branch is used, so every call consumes at least two uniforms.
func (g *Generator) NormFloat64() float64 {
	u1 := g.Float64()
	for u1 == 0 {
		u1 = g.Float64() // ln(0) guard
	}
	u2 := g.Float64()
	return math.Sqrt(-2.0*math.Log(u1)) * math.Cos(2.0*math.Pi*u2)
}
