package cmd

import (
	"expvar"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/CraigKelly/hmc2d/config"
	"github.com/CraigKelly/hmc2d/sampler"
)

// monitor publishes run progress as expvar values. Diagnostics come from the
// latest report handed to Update, which the run loop refreshes between
// batches while sampling is still going.
type monitor struct {
	info    *expvar.Map
	stopped chan struct{}
	server  *http.Server

	mu   sync.Mutex
	last *sampler.Report

	Density      *expvar.String
	StepSize     *expvar.Float
	Steps        *expvar.Int
	SliceWidth   *expvar.Float
	BurnIn       *expvar.Int
	ChainCount   *expvar.Int
	MaxIters     *expvar.Int
	RunTime      *expvar.Float
	TotalSamples *expvar.Int
	Iterations   *expvar.Int

	Accepted *expvar.Map // Per chain
	Rejected *expvar.Map // Per chain
}

// Start begins the monitor listening on addr
func (m *monitor) Start(addr string) error {
	if m.info != nil {
		return errors.Errorf("BUG: You may only start the process monitor once")
	}

	m.info = expvar.NewMap("hmc2d-progress")
	m.stopped = make(chan struct{})
	m.server = &http.Server{
		Addr: addr,
	}

	// Help the user and redirect to the only thing currently available:
	// the handler from the expvar package
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/debug/vars", http.StatusTemporaryRedirect)
	})

	m.Density = expvar.NewString("Density")
	m.StepSize = expvar.NewFloat("Step-Size")
	m.Steps = expvar.NewInt("Leapfrog-Steps")
	m.SliceWidth = expvar.NewFloat("Slice-Width")
	m.BurnIn = expvar.NewInt("Burn-In")
	m.ChainCount = expvar.NewInt("Chain-Count")
	m.MaxIters = expvar.NewInt("Max-Iterations")
	m.RunTime = expvar.NewFloat("Run-Time")
	m.TotalSamples = expvar.NewInt("Total-Samples")
	m.Iterations = expvar.NewInt("Iterations")

	m.Accepted = expvar.NewMap("Accepted")
	m.Rejected = expvar.NewMap("Rejected")

	// R-hat is +Inf when chains disagree, which expvar.Float can't encode.
	// model.Vec can, so publish the vectors themselves.
	expvar.Publish("Last-Report-Iteration", expvar.Func(func() interface{} {
		if r := m.lastReport(); r != nil {
			return r.Iteration
		}
		return nil
	}))
	expvar.Publish("Last-RHat", expvar.Func(func() interface{} {
		if r := m.lastReport(); r != nil {
			return r.RHat
		}
		return nil
	}))
	expvar.Publish("Last-ESS", expvar.Func(func() interface{} {
		if r := m.lastReport(); r != nil {
			return r.ESS
		}
		return nil
	}))

	// Actual server that will close the stopped channel on exit
	started := make(chan struct{})
	go func() {
		defer close(m.stopped)
		fmt.Fprintf(os.Stderr, "HTTP now available at %v (see debug/vars/)\n", m.server.Addr)
		close(started)
		m.server.ListenAndServe()
	}()

	<-started
	return nil
}

// Configure publishes the run settings
func (m *monitor) Configure(cfg *config.Config, chains int) {
	m.Density.Set(cfg.Density.Name)
	m.StepSize.Set(cfg.StepSize)
	m.Steps.Set(int64(cfg.Steps))
	m.SliceWidth.Set(cfg.SliceWidth)
	m.BurnIn.Set(int64(cfg.BurnIn))
	m.ChainCount.Set(int64(chains))
	m.MaxIters.Set(int64(cfg.Iterations))
}

// Observe records one transition
func (m *monitor) Observe(p sampler.Progress, elapsed time.Duration) {
	key := fmt.Sprintf("chain-%d", p.Chain)
	if p.Result.Accepted {
		m.Accepted.Add(key, 1)
		m.TotalSamples.Add(1)
	} else {
		m.Rejected.Add(key, 1)
	}
	m.Iterations.Set(p.Iteration)
	m.RunTime.Set(elapsed.Seconds())
}

// Update publishes the diagnostics in r
func (m *monitor) Update(r *sampler.Report, elapsed time.Duration) {
	m.mu.Lock()
	m.last = r
	m.mu.Unlock()

	m.Iterations.Set(r.Iteration)
	m.RunTime.Set(elapsed.Seconds())
}

func (m *monitor) lastReport() *sampler.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func (m *monitor) Stop() {
	if m.info == nil {
		return
	}

	m.server.Close()

	select {
	case <-m.stopped:
		fmt.Fprintf(os.Stderr, "HTTP Info Stopped\n")
	case <-time.After(2 * time.Second):
		fmt.Fprintf(os.Stderr, "HTTP would NOT stop: just continuing on\n")
	}
}
