// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/wateringhole/traits"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all simulation configuration parameters.
type Config struct {
	Ecosystem  EcosystemConfig  `yaml:"ecosystem"`
	Traits     TraitsConfig     `yaml:"traits"`
	Growth     GrowthConfig     `yaml:"growth"`
	Simulation SimulationConfig `yaml:"simulation"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// EcosystemConfig holds the watering hole and species bounds.
type EcosystemConfig struct {
	PopulationMax  int    `yaml:"population_max"`
	BodySizeMax    int    `yaml:"body_size_max"`
	InitialFood    int    `yaml:"initial_food"`
	FoodAddRange   [2]int `yaml:"food_add_range,flow"` // [lower, upper) food delta per turn
	InitialSpecies int    `yaml:"initial_species"`     // Traitless founders created at genesis
	SpawnIndex     int    `yaml:"spawn_index"`         // List position new species are inserted at
}

// TraitsConfig holds the trait catalog.
type TraitsConfig struct {
	Catalog []string `yaml:"catalog"`
}

// GrowthConfig holds growth phase parameters.
type GrowthConfig struct {
	AvoidRepeat bool `yaml:"avoid_repeat"` // Never pick the same growth option twice in a row for a species
}

// SimulationConfig holds driver loop parameters.
type SimulationConfig struct {
	Turns              int  `yaml:"turns"`
	ReseedOnExtinction bool `yaml:"reseed_on_extinction"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         int `yaml:"stats_window"`          // Turns between logged stats lines
	BookmarkHistorySize int `yaml:"bookmark_history_size"` // Rolling turns kept by the bookmark detector
	HallOfFameSize      int `yaml:"hall_of_fame_size"`
	PerfWindow          int `yaml:"perf_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Catalog traits.Catalog
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are broken: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks bounds and rebuilds derived values. Callers that edit a
// loaded config must call it again before use.
func (c *Config) Validate() error {
	eco := c.Ecosystem
	if eco.PopulationMax <= 0 {
		return fmt.Errorf("%w: population_max must be positive, got %d", ErrInvalidConfig, eco.PopulationMax)
	}
	if eco.BodySizeMax <= 0 {
		return fmt.Errorf("%w: body_size_max must be positive, got %d", ErrInvalidConfig, eco.BodySizeMax)
	}
	if eco.FoodAddRange[0] >= eco.FoodAddRange[1] {
		return fmt.Errorf("%w: food_add_range lower %d must be below upper %d",
			ErrInvalidConfig, eco.FoodAddRange[0], eco.FoodAddRange[1])
	}
	if eco.InitialFood < 0 {
		return fmt.Errorf("%w: initial_food must not be negative, got %d", ErrInvalidConfig, eco.InitialFood)
	}
	if eco.InitialSpecies < 0 {
		return fmt.Errorf("%w: initial_species must not be negative, got %d", ErrInvalidConfig, eco.InitialSpecies)
	}
	if eco.SpawnIndex < 0 {
		return fmt.Errorf("%w: spawn_index must not be negative, got %d", ErrInvalidConfig, eco.SpawnIndex)
	}
	if c.Simulation.Turns < 0 {
		return fmt.Errorf("%w: turns must not be negative, got %d", ErrInvalidConfig, c.Simulation.Turns)
	}

	catalog, err := traits.NewCatalog(c.Traits.Catalog)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	c.Derived.Catalog = catalog
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Traits.Catalog = append([]string(nil), c.Traits.Catalog...)
	return &out
}

// YAML returns the configuration encoded as YAML.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
