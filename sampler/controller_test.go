package sampler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/CraigKelly/hmc2d/model"
)

func seedPtr(s int64) *int64 {
	return &s
}

func twoChains() []ChainConfig {
	return []ChainConfig{
		{Kind: HMC, Seed: seedPtr(42), Start: model.Vec{X: -1, Y: 1}},
		{Kind: Gibbs, Seed: seedPtr(43), Start: model.Vec{X: 1, Y: -1}},
	}
}

func copySamples(c *Controller) [][]model.Vec {
	out := make([][]model.Vec, 0)
	for _, ch := range c.Chains() {
		out = append(out, append([]model.Vec(nil), ch.Samples...))
	}
	return out
}

func TestNewControllerErrors(t *testing.T) {
	assert := assert.New(t)

	target := standardNormal()

	c, err := NewController(nil, twoChains(), 1)
	assert.Nil(c)
	assert.Error(err)

	c, err = NewController(target, nil, 1)
	assert.Nil(c)
	assert.Error(err)

	three := append(twoChains(), ChainConfig{Kind: HMC})
	c, err = NewController(target, three, 1)
	assert.Nil(c)
	assert.Error(err)

	c, err = NewController(target, []ChainConfig{{Kind: HMC, Seed: seedPtr(-1)}}, 1)
	assert.Nil(c)
	assert.Error(err)

	c, err = NewController(target, []ChainConfig{{Kind: Kind(5)}}, 1)
	assert.Nil(c)
	assert.Error(err)

	c, err = NewController(target, twoChains(), 1, WithSteps(-2))
	assert.Nil(c)
	assert.Error(err)
}

func TestControllerInitialState(t *testing.T) {
	assert := assert.New(t)

	c, err := NewController(standardNormal(), twoChains(), 1)
	assert.NoError(err)

	assert.Equal(int64(0), c.Iteration())
	for i, ch := range c.Chains() {
		assert.Equal(i, ch.ID)
		assert.Equal(ch.Config.Start, ch.State.Q)
		assert.Equal([]model.Vec{ch.Config.Start}, ch.Trajectory)
		assert.Empty(ch.Samples)
		assert.Equal(0.0, ch.AcceptanceRate())
	}
	assert.Equal(int64(42), c.Chains()[0].InitialSeed)
	assert.Equal(int64(43), c.Chains()[1].InitialSeed)
}

func TestControllerRun(t *testing.T) {
	assert := assert.New(t)

	c, err := NewController(standardNormal(), twoChains(), 1)
	assert.NoError(err)

	var order []int
	err = c.Run(context.Background(), 50, func(p Progress) {
		order = append(order, p.Chain)
		assert.NoError(p.Err)
	})
	assert.NoError(err)
	assert.Equal(int64(50), c.Iteration())

	// Chain 0 always goes before chain 1
	assert.Len(order, 100)
	for i, idx := range order {
		assert.Equal(i%2, idx)
	}

	hmc, gibbs := c.Chains()[0], c.Chains()[1]

	assert.Equal(int64(50), hmc.Transitions)
	assert.Equal(hmc.Transitions, hmc.Accepted+hmc.Rejected)
	assert.Equal(int(hmc.Accepted), len(hmc.Samples))
	assert.Len(hmc.Trajectory, DefaultSteps+1)

	assert.Equal(int64(50), gibbs.Transitions)
	assert.Equal(int64(50), gibbs.Accepted)
	assert.Equal(int64(0), gibbs.Rejected)
	assert.Equal(1.0, gibbs.AcceptanceRate())
	assert.Len(gibbs.Samples, 50)
	assert.Len(gibbs.Trajectory, 3)
	assert.Equal(gibbs.Samples[49], gibbs.State.Q)

	assert.NoError(c.Step())
	assert.Equal(int64(51), c.Iteration())

	assert.Error(c.Run(context.Background(), -1, nil))
}

func TestControllerReset(t *testing.T) {
	assert := assert.New(t)

	target := standardNormal()
	c, err := NewController(target, twoChains(), 1)
	assert.NoError(err)

	assert.NoError(c.Run(context.Background(), 30, nil))
	first := copySamples(c)

	assert.NoError(c.Reset())
	assert.Equal(int64(0), c.Iteration())
	assert.Equal(target, c.Target())
	for _, ch := range c.Chains() {
		assert.Empty(ch.Samples)
		assert.Equal(int64(0), ch.Transitions)
		assert.Equal(int64(0), ch.Accepted)
		assert.Equal(int64(0), ch.Rejected)
		assert.Equal(ch.Config.Start, ch.State.Q)
		assert.Equal(0, ch.Recent.Count)
	}

	assert.NoError(c.Run(context.Background(), 30, nil))
	assert.Equal(first, copySamples(c))
}

func TestControllerDerivedSeeds(t *testing.T) {
	assert := assert.New(t)

	configs := []ChainConfig{{Kind: HMC}, {Kind: HMC}}

	c1, err := NewController(standardNormal(), configs, 77)
	assert.NoError(err)
	c2, err := NewController(standardNormal(), configs, 77)
	assert.NoError(err)
	c3, err := NewController(standardNormal(), configs, 78)
	assert.NoError(err)

	assert.Equal(c1.Chains()[0].InitialSeed, c2.Chains()[0].InitialSeed)
	assert.NotEqual(c1.Chains()[0].InitialSeed, c1.Chains()[1].InitialSeed)
	assert.NotEqual(c1.Chains()[0].InitialSeed, c3.Chains()[0].InitialSeed)

	// An explicit seed on chain 0 doesn't change chain 1's derived seed
	mixed := []ChainConfig{{Kind: HMC, Seed: seedPtr(5)}, {Kind: HMC}}
	c4, err := NewController(standardNormal(), mixed, 77)
	assert.NoError(err)
	assert.Equal(int64(5), c4.Chains()[0].InitialSeed)
	assert.Equal(c1.Chains()[1].InitialSeed, c4.Chains()[1].InitialSeed)

	assert.NoError(c1.Run(context.Background(), 20, nil))
	assert.NoError(c2.Run(context.Background(), 20, nil))
	assert.Equal(copySamples(c1), copySamples(c2))
}

func TestControllerBurnInIsReadOnly(t *testing.T) {
	assert := assert.New(t)

	c, err := NewController(standardNormal(), twoChains(), 1)
	assert.NoError(err)
	assert.NoError(c.Run(context.Background(), 40, nil))

	before := copySamples(c)
	cut := c.Samples(10)
	assert.Len(cut, 2)
	assert.Len(cut[1], 30)
	assert.Equal(before[1][10], cut[1][0])

	r := c.Report(10)
	assert.Equal(10, r.BurnIn)
	assert.Equal(before, copySamples(c))

	all := c.Samples(0)
	assert.Len(all[1], 40)
}

func TestControllerCancel(t *testing.T) {
	assert := assert.New(t)

	c, err := NewController(standardNormal(), twoChains(), 1)
	assert.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	units := 0
	err = c.Run(ctx, 100, func(p Progress) {
		units++
		if units == 5 {
			cancel()
		}
	})
	assert.Equal(context.Canceled, err)

	// Units 1-4 made 2 full iterations, unit 5 was chain 0 of the third
	assert.Equal(int64(2), c.Iteration())
	assert.Equal(int64(3), c.Chains()[0].Transitions)
	assert.Equal(int64(2), c.Chains()[1].Transitions)

	// Resuming picks up with chain 1
	var order []int
	assert.NoError(c.Run(context.Background(), 1, func(p Progress) {
		order = append(order, p.Chain)
	}))
	assert.Equal([]int{1}, order)
	assert.Equal(int64(3), c.Iteration())
	assert.Equal(int64(3), c.Chains()[1].Transitions)
}

func TestControllerDisabled(t *testing.T) {
	assert := assert.New(t)

	configs := twoChains()
	configs[1].Disabled = true

	c, err := NewController(standardNormal(), configs, 1)
	assert.NoError(err)
	assert.NoError(c.Run(context.Background(), 10, nil))

	assert.Equal(int64(10), c.Iteration())
	assert.Equal(int64(10), c.Chains()[0].Transitions)
	assert.Equal(int64(0), c.Chains()[1].Transitions)
	assert.Len(c.Samples(0), 1)

	r := c.Report(0)
	assert.Len(r.Chains, 1)
	assert.Nil(r.RHat)
	assert.Nil(r.Divergence)

	configs[0].Disabled = true
	c, err = NewController(standardNormal(), configs, 1)
	assert.NoError(err)
	assert.Error(c.Run(context.Background(), 1, nil))
}

func TestControllerSetParams(t *testing.T) {
	assert := assert.New(t)

	c, err := NewController(standardNormal(), twoChains(), 1)
	assert.NoError(err)

	assert.NoError(c.SetParams(WithSteps(3), WithStepSize(0.2)))
	assert.NoError(c.Step())
	assert.Len(c.Chains()[0].Trajectory, 4)
	assert.Len(c.Chains()[1].Trajectory, 3)

	assert.Error(c.SetParams(WithStepSize(0)))
	assert.Equal(0.2, c.Chains()[0].Sampler.(*HamiltonianMC).Params().StepSize)
}

func TestControllerSetDensity(t *testing.T) {
	assert := assert.New(t)

	c, err := NewController(standardNormal(), twoChains(), 1)
	assert.NoError(err)
	assert.NoError(c.Run(context.Background(), 5, nil))

	donut, err := model.NewDensity("donut", nil)
	assert.NoError(err)

	assert.Error(c.SetDensity(nil))
	assert.NoError(c.SetDensity(donut))
	assert.Equal(donut, c.Target())
	assert.Equal(int64(0), c.Iteration())
	assert.Empty(c.Chains()[0].Samples)
}

func TestControllerOracleError(t *testing.T) {
	assert := assert.New(t)

	// Chain 0 starts outside the density's domain
	configs := []ChainConfig{
		{Kind: Gibbs, Seed: seedPtr(2), Start: model.Vec{X: 3}},
		{Kind: HMC, Seed: seedPtr(1)},
	}
	c, err := NewController(brokenDensity{limit: 2}, configs, 1)
	assert.NoError(err)

	err = c.Run(context.Background(), 5, nil)
	assert.Error(err)
	assert.True(errors.Is(err, errBroken))
	assert.Equal(int64(0), c.Iteration())
	assert.Equal(int64(0), c.Chains()[0].Transitions)

	// The failed chain is retried, not skipped
	err = c.Run(context.Background(), 1, nil)
	assert.Error(err)
	assert.Equal(int64(0), c.Chains()[1].Transitions)
}

func TestControllerAdvance(t *testing.T) {
	assert := assert.New(t)

	c, err := NewController(standardNormal(), twoChains(), 1)
	assert.NoError(err)

	var wg sync.WaitGroup
	count := 0
	var last Progress
	for p := range c.Advance(context.Background(), 30, &wg) {
		assert.NoError(p.Err)
		count++
		last = p
	}
	wg.Wait()

	assert.Equal(60, count)
	assert.Equal(int64(30), last.Iteration)
	assert.Equal(1, last.Chain)
	assert.Equal(int64(30), c.Iteration())
}

func TestControllerAdvanceError(t *testing.T) {
	assert := assert.New(t)

	c, err := NewController(brokenDensity{limit: 0}, []ChainConfig{{Kind: Gibbs, Start: model.Vec{X: 1}}}, 1)
	assert.NoError(err)

	var wg sync.WaitGroup
	var errs []error
	for p := range c.Advance(context.Background(), 10, &wg) {
		if p.Err != nil {
			errs = append(errs, p.Err)
		}
	}
	wg.Wait()

	assert.Len(errs, 1)
}

func TestControllerAdvanceAbandoned(t *testing.T) {
	assert := assert.New(t)

	c, err := NewController(standardNormal(), twoChains(), 1)
	assert.NoError(err)

	// Read nothing: the buffer fills and the sampler blocks until we cancel
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	progress := c.Advance(ctx, 1000, &wg)
	cancel()

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		assert.Fail("Advance goroutine still running after cancel")
		return
	}

	// Whatever made it into the buffer is still readable and the channel
	// is closed
	count := 0
	for range progress {
		count++
	}
	assert.True(count <= 65)
	assert.True(c.Iteration() < 1000)
}

func TestControllerReport(t *testing.T) {
	assert := assert.New(t)

	c, err := NewController(standardNormal(), twoChains(), 1)
	assert.NoError(err)

	r := c.Report(0)
	assert.Len(r.Chains, 2)
	assert.Nil(r.RHat)
	assert.Nil(r.ESS)
	assert.Nil(r.Chains[0].Summary)

	assert.NoError(c.Run(context.Background(), 500, nil))
	r = c.Report(100)

	assert.Equal(int64(500), r.Iteration)
	assert.NotNil(r.RHat)
	assert.NotNil(r.ESS)
	assert.NotNil(r.Divergence)
	assert.True(r.RHat.X < 1.5 && r.RHat.Y < 1.5, "R-hat %+v", *r.RHat)

	hmc, gibbs := r.Chains[0], r.Chains[1]
	assert.Equal(HMC, hmc.Kind)
	assert.Equal(int64(42), hmc.Seed)
	assert.True(hmc.AcceptanceRate > 0.5)
	assert.Equal(1.0, gibbs.AcceptanceRate)

	assert.NotNil(gibbs.Summary)
	assert.Equal(400, gibbs.Summary.Count)
	assert.NotNil(gibbs.ESS)
	assert.NotNil(gibbs.MCSE)
	assert.NotNil(gibbs.Drift) // window is full after 500 samples
}
