package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string
var verbose bool
var traceFile string
var randomSeed int64

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hmc2d",
	Short: "MCMC sampling from 2D densities",
	Long: `hmc2d draws samples from unnormalized 2D densities.
Among other features:

  - A Hamiltonian Monte Carlo sampler (leapfrog integrator)
  - A Gibbs sampler built on univariate slice sampling
  - Side by side chains with Gelman-Rubin R-hat and effective sample size
`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML run config file (default is built in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging (default is much more parsimonious)")
	rootCmd.PersistentFlags().StringVarP(&traceFile, "trace", "t", "", "Write every step result as a JSON line to this file")
	rootCmd.PersistentFlags().Int64VarP(&randomSeed, "seed", "r", 0, "Run seed used to derive chain seeds (default from config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(densitiesCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
