package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/CraigKelly/hmc2d/model"
	"github.com/CraigKelly/hmc2d/sampler"
)

// Defaults for a run
const (
	DefaultDensity    = "gaussian"
	DefaultIterations = 1000
	DefaultBurnIn     = 100
	DefaultSeed       = 42
)

// DensityConfig picks a built-in density and its parameters
type DensityConfig struct {
	Name   string       `yaml:"name"`
	Params model.Params `yaml:"params,omitempty"`
}

// Config is everything needed to describe a run
type Config struct {
	Density    DensityConfig         `yaml:"density"`
	StepSize   float64               `yaml:"step_size"`
	Steps      int                   `yaml:"steps"`
	SliceWidth float64               `yaml:"slice_width"`
	Iterations int                   `yaml:"iterations"`
	BurnIn     int                   `yaml:"burn_in"`
	Seed       int64                 `yaml:"seed"`
	Chains     []sampler.ChainConfig `yaml:"chains"`
}

// DefaultConfig is an HMC chain and a Gibbs chain on a standard normal,
// started on opposite sides of the mode
func DefaultConfig() *Config {
	return &Config{
		Density:    DensityConfig{Name: DefaultDensity},
		StepSize:   sampler.DefaultStepSize,
		Steps:      sampler.DefaultSteps,
		SliceWidth: sampler.DefaultSliceWidth,
		Iterations: DefaultIterations,
		BurnIn:     DefaultBurnIn,
		Seed:       DefaultSeed,
		Chains: []sampler.ChainConfig{
			{Kind: sampler.HMC, Start: model.Vec{X: -2, Y: 2}},
			{Kind: sampler.Gibbs, Start: model.Vec{X: 2, Y: -2}},
		},
	}
}

// Load reads a YAML config. Anything missing from the file keeps its
// default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not READ config from %s", path)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "Could not PARSE config %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "Config %s is not valid", path)
	}
	return cfg, nil
}

// Save writes the config as YAML
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "Could not encode config")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "Could not WRITE config to %s", path)
	}
	return nil
}

// Validate returns an error if there is a problem with the config
func (c *Config) Validate() error {
	if _, err := c.NewDensity(); err != nil {
		return err
	}

	params := sampler.DefaultParams()
	for _, o := range c.SamplerOptions() {
		o(&params)
	}
	if err := params.Check(); err != nil {
		return errors.Wrap(err, "Invalid sampler parameters")
	}

	if c.Iterations < 0 {
		return errors.Errorf("Iterations must be >= 0, got %d", c.Iterations)
	}
	if c.BurnIn < 0 {
		return errors.Errorf("Burn in must be >= 0, got %d", c.BurnIn)
	}
	if len(c.Chains) < 1 || len(c.Chains) > sampler.MaxChains {
		return errors.Errorf("Need 1 to %d chains, got %d", sampler.MaxChains, len(c.Chains))
	}
	for i, ch := range c.Chains {
		if ch.Seed != nil && (*ch.Seed < 0 || *ch.Seed > 0xFFFFFFFF) {
			return errors.Errorf("Chain %d seed %d is out of range", i, *ch.Seed)
		}
	}

	return nil
}

// NewDensity builds the configured target density
func (c *Config) NewDensity() (model.Density, error) {
	return model.NewDensity(c.Density.Name, c.Density.Params)
}

// SamplerOptions returns the shared sampler parameters as options
func (c *Config) SamplerOptions() []sampler.Option {
	return []sampler.Option{
		sampler.WithStepSize(c.StepSize),
		sampler.WithSteps(c.Steps),
		sampler.WithSliceWidth(c.SliceWidth),
	}
}
