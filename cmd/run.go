package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/CraigKelly/hmc2d/config"
	"github.com/CraigKelly/hmc2d/sampler"
)

var runFlags struct {
	density     string
	iterations  int
	burnIn      int
	stepSize    float64
	steps       int
	sliceWidth  float64
	reportEvery int
	jsonOut     bool
	plot        bool
	monitor     bool
	monitorAddr string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured chains and report diagnostics",
	RunE: func(cmd *cobra.Command, args []string) error {
		sp, err := newStartupParams(cmd)
		if err != nil {
			return err
		}
		defer sp.Close()

		if err := applyRunFlags(cmd, sp.cfg); err != nil {
			return err
		}

		return RunChains(sp)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.density, "density", "d", config.DefaultDensity, "Built-in density to sample (see the densities command)")
	f.IntVarP(&runFlags.iterations, "iterations", "n", config.DefaultIterations, "Iterations to run")
	f.IntVarP(&runFlags.burnIn, "burn-in", "b", config.DefaultBurnIn, "Samples per chain skipped in summaries (never discarded)")
	f.Float64VarP(&runFlags.stepSize, "step-size", "e", sampler.DefaultStepSize, "HMC leapfrog step size")
	f.IntVarP(&runFlags.steps, "steps", "l", sampler.DefaultSteps, "HMC leapfrog steps per transition")
	f.Float64VarP(&runFlags.sliceWidth, "width", "w", sampler.DefaultSliceWidth, "Slice sampler bracket width")
	f.IntVar(&runFlags.reportEvery, "report-every", 0, "Print an interim report every N iterations (0 for none)")
	f.BoolVar(&runFlags.jsonOut, "json", false, "Print the final report as JSON")
	f.BoolVar(&runFlags.plot, "plot", false, "Draw ASCII trace plots of each chain")
	f.BoolVar(&runFlags.monitor, "monitor", false, "Serve progress over HTTP (expvar)")
	f.StringVar(&runFlags.monitorAddr, "monitor-addr", ":8000", "Address for --monitor")
}

// applyRunFlags copies explicitly set flags over the config
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("density") {
		cfg.Density = config.DensityConfig{Name: runFlags.density}
	}
	if f.Changed("iterations") {
		cfg.Iterations = runFlags.iterations
	}
	if f.Changed("burn-in") {
		cfg.BurnIn = runFlags.burnIn
	}
	if f.Changed("step-size") {
		cfg.StepSize = runFlags.stepSize
	}
	if f.Changed("steps") {
		cfg.Steps = runFlags.steps
	}
	if f.Changed("width") {
		cfg.SliceWidth = runFlags.sliceWidth
	}
	return cfg.Validate()
}

// traceRecord is one line in the trace file
type traceRecord struct {
	Iteration int64              `json:"iteration"`
	Chain     int                `json:"chain"`
	Step      sampler.StepResult `json:"step"`
}

// RunChains builds the controller from sp.cfg and runs it to completion (or
// until interrupted), then reports.
func RunChains(sp *startupParams) error {
	cfg := sp.cfg

	target, err := cfg.NewDensity()
	if err != nil {
		return err
	}

	opts := append(cfg.SamplerOptions(), sampler.WithLogger(sp.out))
	ctrl, err := sampler.NewController(target, cfg.Chains, cfg.Seed, opts...)
	if err != nil {
		return errors.Wrap(err, "Could not create chains")
	}

	sp.verb.Printf("Density: %s %v\n", cfg.Density.Name, cfg.Density.Params)
	sp.verb.Printf("Eps=%g L=%d Width=%g Iterations=%d BurnIn=%d Seed=%d\n",
		cfg.StepSize, cfg.Steps, cfg.SliceWidth, cfg.Iterations, cfg.BurnIn, cfg.Seed)
	for _, ch := range ctrl.Chains() {
		sp.verb.Printf("Chain %d: %v seed=%d start=%+v disabled=%v\n",
			ch.ID, ch.Config.Kind, ch.InitialSeed, ch.Config.Start, ch.Config.Disabled)
	}

	var mon *monitor
	if runFlags.monitor {
		mon = &monitor{}
		if err := mon.Start(runFlags.monitorAddr); err != nil {
			return err
		}
		defer mon.Stop()
		mon.Configure(cfg, len(ctrl.Chains()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Chains can only be read while the sampling goroutine is idle, so
	// interim reports (printed or monitored) happen between batches
	batch := cfg.Iterations
	if runFlags.reportEvery > 0 {
		batch = runFlags.reportEvery
	} else if mon != nil {
		batch = monitorBatch
	}

	startTime := time.Now()
	var runErr error
	for done := 0; done < cfg.Iterations && runErr == nil; {
		n := cfg.Iterations - done
		if n > batch {
			n = batch
		}
		runErr = advanceBatch(ctx, sp, ctrl, mon, n, startTime)
		done += n

		if runErr == nil && done < cfg.Iterations {
			interim := ctrl.Report(cfg.BurnIn)
			if mon != nil {
				mon.Update(interim, time.Since(startTime))
			}
			if runFlags.reportEvery > 0 {
				sp.out.Printf("Iteration %d: R-hat %s ESS %s\n",
					interim.Iteration, fmtVec(interim.RHat), fmtVec(interim.ESS))
			}
		}
	}

	sp.verb.Printf("Run time: %v\n", time.Since(startTime))

	report := ctrl.Report(cfg.BurnIn)
	if mon != nil {
		mon.Update(report, time.Since(startTime))
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return errors.Wrapf(runErr, "Run stopped after %d iterations", ctrl.Iteration())
	}
	if runErr != nil {
		sp.out.Printf("Interrupted after %d iterations\n", ctrl.Iteration())
	}

	if runFlags.jsonOut {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return errors.Wrap(err, "Could not encode report")
		}
		sp.out.Println(string(data))
	} else {
		writeReport(sp.out, cfg, report)
	}

	if runFlags.plot {
		plotChains(sp.out, ctrl.Samples(0))
	}

	return nil
}

// monitorBatch is the number of iterations between monitor updates when no
// report interval is given
const monitorBatch = 100

// advanceBatch runs n more iterations, tracing every transition and feeding
// the monitor. It always drains the progress channel and waits for the
// sampling goroutine, so the controller is safe to read once it returns.
func advanceBatch(ctx context.Context, sp *startupParams, ctrl *sampler.Controller, mon *monitor, n int, startTime time.Time) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var runErr error
	for p := range ctrl.Advance(ctx, n, &wg) {
		if p.Err != nil {
			if runErr == nil {
				runErr = p.Err
			}
			continue
		}

		if len(sp.traceFile) > 0 && runErr == nil {
			line, err := json.Marshal(traceRecord{p.Iteration, p.Chain, p.Result})
			if err != nil {
				runErr = errors.Wrap(err, "Could not encode trace record")
				cancel()
				continue
			}
			sp.trace.Println(string(line))
		}

		if mon != nil {
			mon.Observe(p, time.Since(startTime))
		}
	}
	wg.Wait()

	return runErr
}
