package sampler

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/CraigKelly/hmc2d/buffer"
	"github.com/CraigKelly/hmc2d/diagnostics"
	"github.com/CraigKelly/hmc2d/model"
	"github.com/CraigKelly/hmc2d/rand"
)

// MaxChains is the most chains a controller will run side by side
const MaxChains = 2

// Progress describes one committed transition
type Progress struct {
	Iteration int64      // Completed iterations after this transition
	Chain     int        // Chain that moved
	Result    StepResult // What happened
	Err       error      // Only set on the final message from Advance
}

// Controller drives one or two chains over a shared target density and
// shared hyperparameters. Work is broken into units of one transition each:
// an iteration is one unit per enabled chain, in chain order. Stopping
// between units is always safe and committed transitions are never undone.
//
// A Controller is not safe for concurrent use.
type Controller struct {
	target    model.Density
	chains    []*Chain
	iteration int64
	cursor    int // Index of the chain whose unit runs next in this iteration
}

// NewController creates chains for each config. Chains without an explicit
// seed get one derived from runSeed. opts are applied to every sampler.
func NewController(target model.Density, configs []ChainConfig, runSeed int64, opts ...Option) (*Controller, error) {
	if target == nil {
		return nil, errors.New("No target density supplied")
	}
	if len(configs) < 1 || len(configs) > MaxChains {
		return nil, errors.Errorf("Controller supports 1 to %d chains, got %d", MaxChains, len(configs))
	}

	seeds := rand.NewSeedSequence(runSeed)
	c := &Controller{
		target: target,
		chains: make([]*Chain, len(configs)),
	}

	for i, cfg := range configs {
		// Always draw so chain 2's derived seed doesn't depend on whether
		// chain 1 had an explicit one
		seed := seeds.Next()
		if cfg.Seed != nil {
			seed = *cfg.Seed
		}

		gen, err := rand.NewGenerator(seed)
		if err != nil {
			return nil, errors.Wrapf(err, "Chain %d has a bad seed", i)
		}

		samp, err := New(cfg.Kind, gen, opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "Could not create %v sampler for chain %d", cfg.Kind, i)
		}

		ch := &Chain{
			ID:          i,
			Config:      cfg,
			Sampler:     samp,
			InitialSeed: seed,
			Recent:      buffer.NewCircularVec(DefaultRecentWindow),
		}
		if err := ch.reset(); err != nil {
			return nil, errors.Wrapf(err, "Could not initialize chain %d", i)
		}
		c.chains[i] = ch
	}

	return c, nil
}

// Chains returns the controller's chains. Treat them as read only.
func (c *Controller) Chains() []*Chain {
	return c.chains
}

// Target returns the current density
func (c *Controller) Target() model.Density {
	return c.target
}

// Iteration is the number of completed iterations
func (c *Controller) Iteration() int64 {
	return c.iteration
}

// SetParams applies shared hyperparameters to every chain's sampler. If any
// sampler rejects them, no later sampler is updated.
func (c *Controller) SetParams(opts ...Option) error {
	for _, ch := range c.chains {
		if err := ch.Sampler.SetParams(opts...); err != nil {
			return errors.Wrapf(err, "Chain %d rejected parameters", ch.ID)
		}
	}
	return nil
}

// SetDensity swaps the target density and resets every chain
func (c *Controller) SetDensity(target model.Density) error {
	if target == nil {
		return errors.New("No target density supplied")
	}
	c.target = target
	return c.Reset()
}

// Reset puts every chain back at its start position with its initial seed
// and clears all counters. The target density is kept.
func (c *Controller) Reset() error {
	for _, ch := range c.chains {
		if err := ch.reset(); err != nil {
			return errors.Wrapf(err, "Could not reset chain %d", ch.ID)
		}
	}
	c.iteration = 0
	c.cursor = 0
	return nil
}

// unit runs the next scheduling unit: one transition of the chain under the
// cursor. Disabled chains take up a slot but don't move (moved is false). On
// error the cursor stays put so the same chain is retried next time.
func (c *Controller) unit() (p Progress, moved bool, err error) {
	idx := c.cursor
	ch := c.chains[idx]

	if ch.Enabled() {
		res, err := ch.oneStep(c.target)
		if err != nil {
			return Progress{}, false, errors.Wrapf(err, "Chain %d failed at iteration %d", idx, c.iteration)
		}
		p = Progress{Chain: idx, Result: res}
		moved = true
	}

	c.cursor++
	if c.cursor >= len(c.chains) {
		c.cursor = 0
		c.iteration++
	}

	p.Iteration = c.iteration
	return p, moved, nil
}

func (c *Controller) anyEnabled() bool {
	for _, ch := range c.chains {
		if ch.Enabled() {
			return true
		}
	}
	return false
}

// Step completes the current iteration (normally one transition per enabled
// chain).
func (c *Controller) Step() error {
	return c.Run(context.Background(), 1, nil)
}

// Run completes n more iterations, calling observe (if not nil) after every
// transition. The context is checked before each unit; on cancellation the
// work done so far stands and ctx.Err() is returned.
func (c *Controller) Run(ctx context.Context, n int, observe func(Progress)) error {
	if n < 0 {
		return errors.Errorf("Invalid iteration count %d", n)
	}
	if !c.anyEnabled() {
		return errors.New("No enabled chains")
	}

	goal := c.iteration + int64(n)
	for c.iteration < goal {
		if err := ctx.Err(); err != nil {
			return err
		}

		p, moved, err := c.unit()
		if err != nil {
			return err
		}
		if moved && observe != nil {
			observe(p)
		}
	}

	return nil
}

// Advance runs n iterations on a background goroutine and streams progress.
// The channel is closed when the run ends; if the run failed (or was
// cancelled) the last message carries the error. The controller must not be
// used by anyone else until the channel is closed.
//
// Callers should drain the channel. A caller that stops reading early must
// cancel ctx: sends give up once ctx is done, so wg still completes, but
// progress (and possibly the final error) is dropped.
func (c *Controller) Advance(ctx context.Context, n int, wg *sync.WaitGroup) <-chan Progress {
	out := make(chan Progress, 64)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(out)

		err := c.Run(ctx, n, func(p Progress) {
			select {
			case out <- p:
			case <-ctx.Done():
			}
		})
		if err != nil {
			final := Progress{Iteration: c.iteration, Chain: -1, Err: err}
			select {
			case out <- final:
			default:
				select {
				case out <- final:
				case <-ctx.Done():
				}
			}
		}
	}()

	return out
}

// Samples returns each chain's accepted samples with the first burnIn
// dropped. Disabled chains are skipped. Nothing is copied or discarded.
func (c *Controller) Samples(burnIn int) [][]model.Vec {
	all := make([][]model.Vec, 0, len(c.chains))
	for _, ch := range c.chains {
		if ch.Enabled() {
			all = append(all, ch.Samples)
		}
	}
	return diagnostics.BurnIn(all, burnIn)
}
