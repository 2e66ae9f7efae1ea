package config

import (
	"fmt"
	"os"
	"path/filepath"

	yaml "go.yaml.in/yaml/v3"
)

// Config carries the engine's tunable limits. Every safety cap the engine
// applies is declared here with a documented default rather than buried
// as a literal in generation logic.
type Config struct {
	// DBPath locates the sqlite task store. The TASKCYCLE_DB environment
	// variable overrides it.
	DBPath string `yaml:"db_path"`

	Generation GenerationConfig `yaml:"generation"`
	Extender   ExtenderConfig   `yaml:"extender"`
	Query      QueryConfig      `yaml:"query"`
}

// GenerationConfig bounds a single rule expansion.
type GenerationConfig struct {
	// MaxOccurrences is the hard cap on occurrences per expansion.
	MaxOccurrences int `yaml:"max_occurrences"`
	// InitialHorizonYears is how far ahead a new master is materialized.
	InitialHorizonYears int `yaml:"initial_horizon_years"`
}

// ExtenderConfig controls the expiry extender.
type ExtenderConfig struct {
	// LookaheadDays selects masters whose horizon ends within this window.
	LookaheadDays int `yaml:"lookahead_days"`
	// ExtendYears is the span added to a master's horizon per run.
	ExtendYears int `yaml:"extend_years"`
	// LongCycleExtendYears is the span for masters flagged long-cycle.
	LongCycleExtendYears int `yaml:"long_cycle_extend_years"`
	// BatchSize caps how many due masters a single sweep extends; the
	// rest wait for the next run.
	BatchSize int `yaml:"batch_size"`
	// CronSpec schedules daemon runs.
	CronSpec string `yaml:"cron_spec"`
}

// QueryConfig shapes the default occurrence window.
type QueryConfig struct {
	// DefaultBackMonths is how far back the window opens when the caller
	// gives no start.
	DefaultBackMonths int `yaml:"default_back_months"`
	// DefaultForwardYears is how far forward the window reaches when the
	// caller gives no end.
	DefaultForwardYears int `yaml:"default_forward_years"`
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		DBPath: defaultDBPath(),
		Generation: GenerationConfig{
			MaxOccurrences:      1000,
			InitialHorizonYears: 2,
		},
		Extender: ExtenderConfig{
			LookaheadDays:        90,
			ExtendYears:          2,
			LongCycleExtendYears: 4,
			BatchSize:            50,
			CronSpec:             "@daily",
		},
		Query: QueryConfig{
			DefaultBackMonths:   3,
			DefaultForwardYears: 2,
		},
	}
}

// Load reads a YAML config file and fills unset fields with defaults.
// A missing file is not an error: defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if env := os.Getenv("TASKCYCLE_DB"); env != "" {
		cfg.DBPath = env
	}
	cfg.applyFloors()
	return cfg, nil
}

// applyFloors backfills zero or negative values with defaults so a sparse
// config file never zeroes out a safety cap.
func (c *Config) applyFloors() {
	def := Default()
	if c.DBPath == "" {
		c.DBPath = def.DBPath
	}
	if c.Generation.MaxOccurrences <= 0 {
		c.Generation.MaxOccurrences = def.Generation.MaxOccurrences
	}
	if c.Generation.InitialHorizonYears <= 0 {
		c.Generation.InitialHorizonYears = def.Generation.InitialHorizonYears
	}
	if c.Extender.LookaheadDays <= 0 {
		c.Extender.LookaheadDays = def.Extender.LookaheadDays
	}
	if c.Extender.ExtendYears <= 0 {
		c.Extender.ExtendYears = def.Extender.ExtendYears
	}
	if c.Extender.LongCycleExtendYears <= 0 {
		c.Extender.LongCycleExtendYears = def.Extender.LongCycleExtendYears
	}
	if c.Extender.BatchSize <= 0 {
		c.Extender.BatchSize = def.Extender.BatchSize
	}
	if c.Extender.CronSpec == "" {
		c.Extender.CronSpec = def.Extender.CronSpec
	}
	if c.Query.DefaultBackMonths <= 0 {
		c.Query.DefaultBackMonths = def.Query.DefaultBackMonths
	}
	if c.Query.DefaultForwardYears <= 0 {
		c.Query.DefaultForwardYears = def.Query.DefaultForwardYears
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "taskcycle.db"
	}
	return filepath.Join(home, ".taskcycle", "taskcycle.db")
}
