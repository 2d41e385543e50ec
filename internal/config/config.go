// Package config loads and validates the pipeline configuration from
// environment variables (prefix STRIDER) merged with an optional YAML file,
// and resolves the input/output paths used by every stage.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "stockstrider/internal/errors"
)

// monthLayout is the format of the crisis-window boundaries.
const monthLayout = "2006-01"

// Config is the root configuration structure. Stage packages never read it
// directly; the pipeline runner hands each stage the subset it needs so
// stages stay independently testable.
type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`

	crisisStart time.Time
	crisisEnd   time.Time
}

// PipelineConfig carries every threshold the stages need. Defaults mirror
// the reference dataset: prices in [0.10, 10000], returns flagged above
// +100% or below -50% outside the 2008-2009 crisis window, a 12-month
// signal window and a 20-name monthly basket.
type PipelineConfig struct {
	PriceMin           float64 `yaml:"price_min" envconfig:"PRICE_MIN" default:"0.10" validate:"gt=0"`
	PriceMax           float64 `yaml:"price_max" envconfig:"PRICE_MAX" default:"10000" validate:"gtfield=PriceMin"`
	ReturnUpper        float64 `yaml:"return_upper" envconfig:"RETURN_UPPER" default:"1.0" validate:"gt=0"`
	ReturnLower        float64 `yaml:"return_lower" envconfig:"RETURN_LOWER" default:"-0.5" validate:"lt=0"`
	CrisisStart        string  `yaml:"crisis_start" envconfig:"CRISIS_START" default:"2008-01"`
	CrisisEnd          string  `yaml:"crisis_end" envconfig:"CRISIS_END" default:"2009-12"`
	WindowMonths       int     `yaml:"window_months" envconfig:"WINDOW_MONTHS" default:"12" validate:"min=2"`
	TopN               int     `yaml:"top_n" envconfig:"TOP_N" default:"20" validate:"min=1"`
	NotionalPerName    float64 `yaml:"notional_per_name" envconfig:"NOTIONAL_PER_NAME" default:"1" validate:"gt=0"`
	BenchmarkNotional  float64 `yaml:"benchmark_notional" envconfig:"BENCHMARK_NOTIONAL" default:"20" validate:"gt=0"`
	OutlierReportLimit int     `yaml:"outlier_report_limit" envconfig:"OUTLIER_REPORT_LIMIT" default:"5" validate:"min=0"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/stockstrider.log"`
}

// ServerConfig controls the results viewer.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	RateLimit       float64       `yaml:"rate_limit" envconfig:"RATE_LIMIT" default:"10" validate:"gt=0"`
	RateBurst       int           `yaml:"rate_burst" envconfig:"RATE_BURST" default:"20" validate:"min=1"`
}

// Load builds the configuration: struct-tag defaults and STRIDER_* environment
// variables first, then the YAML file (when present) on top, then validation.
// An empty configFile loads environment and defaults only.
func Load(configFile string) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process("STRIDER", cfg); err != nil {
		return nil, apperrors.NewConfigError("process environment", err)
	}

	if configFile != "" {
		if err := mergeYAML(configFile, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeYAML overlays settings from a YAML file onto cfg. A missing file is
// only an error when it was named explicitly, which Load guarantees.
func mergeYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("read config file %s", path), err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("parse config file %s", path), err)
	}
	return nil
}

// finalize parses derived fields and validates the whole structure.
func (c *Config) finalize() error {
	start, err := time.Parse(monthLayout, c.Pipeline.CrisisStart)
	if err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("parse crisis_start %q", c.Pipeline.CrisisStart), err)
	}
	end, err := time.Parse(monthLayout, c.Pipeline.CrisisEnd)
	if err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("parse crisis_end %q", c.Pipeline.CrisisEnd), err)
	}
	if end.Before(start) {
		return apperrors.NewValidationError("crisis_end precedes crisis_start")
	}
	c.crisisStart = start
	c.crisisEnd = end

	if err := validator.New().Struct(c); err != nil {
		return apperrors.NewConfigError("validate configuration", err)
	}

	return c.Paths.normalize()
}

// CrisisWindow returns the parsed crisis-window boundaries at month
// granularity: [start, end] inclusive.
func (c *Config) CrisisWindow() (time.Time, time.Time) {
	return c.crisisStart, c.crisisEnd
}
