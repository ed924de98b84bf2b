package cmd

import (
	"io/ioutil"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/CraigKelly/hmc2d/config"
)

// startupParams is everything a command needs once flags are parsed
type startupParams struct {
	cfg       *config.Config
	verbose   bool
	traceFile string

	out     *log.Logger // Normal output
	verb    *log.Logger // Only written when verbose
	trace   *log.Logger // Trace file (discarded if there isn't one)
	closers []func() error
}

// newStartupParams loads the config (or the defaults) and applies any
// explicitly set persistent flags on top
func newStartupParams(cmd *cobra.Command) (*startupParams, error) {
	sp := &startupParams{
		verbose:   verbose,
		traceFile: traceFile,
		out:       log.New(os.Stdout, "", 0),
		verb:      log.New(ioutil.Discard, "", 0),
		trace:     log.New(ioutil.Discard, "", 0),
	}

	if verbose {
		sp.verb = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)
	}

	var err error
	if len(cfgFile) > 0 {
		sp.cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		sp.verb.Printf("Read config from %s\n", cfgFile)
	} else {
		sp.cfg = config.DefaultConfig()
	}

	if cmd.Flags().Changed("seed") {
		sp.cfg.Seed = randomSeed
	}

	if len(traceFile) > 0 {
		f, err := os.Create(traceFile)
		if err != nil {
			return nil, errors.Wrapf(err, "Could not create trace file %s", traceFile)
		}
		sp.trace = log.New(f, "", 0)
		sp.closers = append(sp.closers, f.Close)
	}

	return sp, nil
}

// Close releases anything opened by newStartupParams
func (sp *startupParams) Close() error {
	var first error
	for _, c := range sp.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	sp.closers = nil
	return first
}
