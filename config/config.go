package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/bluecorridor/driftcast/core/metrics"
	"github.com/bluecorridor/driftcast/core/optimize"
	"github.com/bluecorridor/driftcast/infra/mqtt"
)

// OptimizerConfig bounds the search.
type OptimizerConfig struct {
	TopK              int                 `json:"top_k" yaml:"top_k"`
	Workers           int                 `json:"workers" yaml:"workers"`
	TimeBudgetMinutes float64             `json:"time_budget_minutes" yaml:"time_budget_minutes"`
	Refinement        optimize.Refinement `json:"refinement" yaml:"refinement"`
}

// SetDefaults applies search defaults.
func (c *OptimizerConfig) SetDefaults() {
	if c.TopK == 0 {
		c.TopK = 5
	}
	if c.Refinement.Enabled {
		if c.Refinement.SpacingFactor == 0 {
			c.Refinement.SpacingFactor = 4
		}
		if c.Refinement.EnsembleScale == 0 {
			c.Refinement.EnsembleScale = 2
		}
		if c.Refinement.Keep == 0 {
			c.Refinement.Keep = 3
		}
	}
}

// Validate rejects out-of-range search options.
func (c OptimizerConfig) Validate() error {
	if c.TopK <= 0 {
		return fmt.Errorf("optimizer: top_k must be positive, got %d", c.TopK)
	}
	if c.Workers < 0 {
		return fmt.Errorf("optimizer: workers must not be negative, got %d", c.Workers)
	}
	if c.Refinement.Enabled && c.Refinement.SpacingFactor <= 1 {
		return fmt.Errorf("optimizer: refinement spacing_factor must exceed 1, got %v", c.Refinement.SpacingFactor)
	}
	return nil
}

// TimeBudget returns the wall-clock budget as a duration.
func (c OptimizerConfig) TimeBudget() time.Duration {
	return time.Duration(c.TimeBudgetMinutes * float64(time.Minute))
}

// Config is the full run configuration.
type Config struct {
	Field     FieldConfig     `json:"field"`
	ZonesPath string          `json:"zones_path"`
	Run       RunConfig       `json:"run"`
	Score     ScoreConfig     `json:"score"`
	Optimizer OptimizerConfig `json:"optimizer"`
	Metrics   metrics.Config  `json:"metrics"`
	MQTT      mqtt.Config     `json:"mqtt"`
	Output    OutputConfig    `json:"output"`
}

// Load reads the configuration file, applies DRIFT_-prefixed environment
// overrides, fills defaults and validates. Validation failures abort before
// any simulation starts.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("DRIFT_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "drift_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Field.SetDefaults()
	cfg.Run.SetDefaults()
	cfg.Optimizer.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.MQTT.SetDefaults()
	cfg.Output.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate runs every section's validation.
func (c Config) Validate() error {
	if err := c.Field.Validate(); err != nil {
		return err
	}
	if c.ZonesPath == "" {
		return fmt.Errorf("zones_path is required")
	}
	if err := c.Run.Validate(); err != nil {
		return err
	}
	if err := c.Score.Validate(); err != nil {
		return err
	}
	if err := c.Optimizer.Validate(); err != nil {
		return err
	}
	return c.MQTT.Validate()
}
