package sampler

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/CraigKelly/hmc2d/model"
	"github.com/CraigKelly/hmc2d/rand"
)

// fixedRNG always returns the same uniform, which makes accept/reject
// decisions completely predictable
type fixedRNG struct {
	u float64
}

func (f *fixedRNG) Float64() float64 { return f.u }
func (f *fixedRNG) NormFloat64() float64 {
	return math.Sqrt(-2.0*math.Log(f.u)) * math.Cos(2.0*math.Pi*f.u)
}
func (f *fixedRNG) Seed() int64              { return 0 }
func (f *fixedRNG) SetSeed(seed int64) error { return nil }

func testGen(seed int64) *rand.Generator {
	gen, err := rand.NewGenerator(seed)
	if err != nil {
		panic(err)
	}
	return gen
}

// standardNormal has U(x,y) = 0.5(x^2+y^2), so gradU = (x, y)
func standardNormal() model.Density {
	d, err := model.NewFunc(
		"std-normal",
		func(x, y float64) float64 { return -0.5 * (x*x + y*y) },
		func(x, y float64) model.Vec { return model.Vec{X: -x, Y: -y} },
	)
	if err != nil {
		panic(err)
	}
	return d
}

var errBroken = errors.New("outside the domain")

// brokenDensity fails for any x > limit
type brokenDensity struct {
	limit float64
}

func (b brokenDensity) LogProbability(x, y float64) (float64, error) {
	if x > b.limit {
		return 0, errBroken
	}
	return -0.5 * (x*x + y*y), nil
}

func (b brokenDensity) LogProbabilityGradient(x, y float64) (model.Vec, error) {
	if x > b.limit {
		return model.Vec{}, errBroken
	}
	return model.Vec{X: -x, Y: -y}, nil
}

func TestParseKind(t *testing.T) {
	assert := assert.New(t)

	cases := map[string]Kind{
		"hmc":    HMC,
		"HMC":    HMC,
		"":       HMC,
		"gibbs":  Gibbs,
		" Slice": Gibbs,
	}
	for name, exp := range cases {
		k, err := ParseKind(name)
		assert.NoError(err, name)
		assert.Equal(exp, k, name)
	}

	_, err := ParseKind("nuts")
	assert.Error(err)

	assert.Equal("hmc", HMC.String())
	assert.Equal("gibbs", Gibbs.String())
	assert.Equal("unknown", Kind(9).String())

	txt, err := Gibbs.MarshalText()
	assert.NoError(err)
	assert.Equal("gibbs", string(txt))
	_, err = Kind(9).MarshalText()
	assert.Error(err)

	var k Kind
	assert.NoError(k.UnmarshalText([]byte("gibbs")))
	assert.Equal(Gibbs, k)
	assert.Error(k.UnmarshalText([]byte("bogus")))
}

func TestNewByKind(t *testing.T) {
	assert := assert.New(t)

	s, err := New(HMC, testGen(1))
	assert.NoError(err)
	_, isHMC := s.(*HamiltonianMC)
	assert.True(isHMC)

	s, err = New(Gibbs, testGen(1))
	assert.NoError(err)
	_, isGibbs := s.(*GibbsSlice)
	assert.True(isGibbs)

	s, err = New(Kind(7), testGen(1))
	assert.Nil(s)
	assert.Error(err)

	s, err = New(HMC, nil)
	assert.Nil(s)
	assert.Error(err)

	s, err = New(Gibbs, nil)
	assert.Nil(s)
	assert.Error(err)

	s, err = New(HMC, testGen(1), WithStepSize(-1))
	assert.Nil(s)
	assert.Error(err)
}

func TestPartialParams(t *testing.T) {
	assert := assert.New(t)

	h, err := NewHMC(testGen(1))
	assert.NoError(err)
	assert.Equal(DefaultStepSize, h.Params().StepSize)
	assert.Equal(DefaultSteps, h.Params().Steps)

	assert.NoError(h.SetParams(WithSteps(3)))
	assert.Equal(DefaultStepSize, h.Params().StepSize)
	assert.Equal(3, h.Params().Steps)

	assert.NoError(h.SetParams(WithStepSize(0.25)))
	assert.Equal(0.25, h.Params().StepSize)
	assert.Equal(3, h.Params().Steps)

	// Bad updates leave everything alone
	assert.Error(h.SetParams(WithStepSize(0.5), WithSteps(-1)))
	assert.Equal(0.25, h.Params().StepSize)
	assert.Equal(3, h.Params().Steps)

	assert.Error(h.SetParams(WithStepSize(math.NaN())))
	assert.Error(h.SetParams(WithLogger(nil)))

	g, err := NewGibbsSlice(testGen(1), WithSliceWidth(2))
	assert.NoError(err)
	assert.Equal(2.0, g.Params().SliceWidth)
	assert.NoError(g.SetParams(WithStepSize(0.3))) // Accepted but unused
	assert.Error(g.SetParams(WithSliceWidth(0)))
	assert.Equal(2.0, g.Params().SliceWidth)
}

// Every sampler must be reproducible through SetSeed, including nil
func TestSetSeed(t *testing.T) {
	assert := assert.New(t)

	target := standardNormal()

	for _, kind := range []Kind{HMC, Gibbs} {
		run := func(s Sampler) []model.Vec {
			out := make([]model.Vec, 0, 10)
			state := Particle{}
			for i := 0; i < 10; i++ {
				res, err := s.Step(state, target)
				assert.NoError(err)
				state = res.Particle()
				out = append(out, res.Q)
			}
			return out
		}

		s, err := New(kind, testGen(5))
		assert.NoError(err)
		first := run(s)

		seed := int64(5)
		assert.NoError(s.SetSeed(&seed))
		assert.Equal(first, run(s), kind.String())

		bad := int64(-1)
		assert.Error(s.SetSeed(&bad))

		// nil reseeds from the stream itself, so it's still deterministic
		s1, _ := New(kind, testGen(9))
		s2, _ := New(kind, testGen(9))
		assert.NoError(s1.SetSeed(nil))
		assert.NoError(s2.SetSeed(nil))
		assert.Equal(run(s1), run(s2), kind.String())
	}
}
