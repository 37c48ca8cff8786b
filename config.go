package tex2typst

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Config is the file and environment form of the Converter settings. Tex and
// Typst hold default conversion flags for front ends such as the CLI.
type Config struct {
	Bundle          string       `mapstructure:"bundle" json:"bundle,omitempty" validate:"omitempty,file"`
	CacheSize       int          `mapstructure:"cache_size" json:"cache_size" validate:"gte=0"`
	MaxIdleSessions int          `mapstructure:"max_idle" json:"max_idle" validate:"gte=0"`
	LogLevel        string       `mapstructure:"log_level" json:"log_level,omitempty" validate:"omitempty,oneof=trace debug info warn error disabled"`
	Tex             TexOptions   `mapstructure:"tex" json:"tex"`
	Typst           TypstOptions `mapstructure:"typst" json:"typst"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		CacheSize: DefaultCacheSize,
		LogLevel:  "warn",
	}
}

// Validate checks cfg field constraints.
func (cfg Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// NewFromConfig validates cfg and builds a Converter from it.
func NewFromConfig(cfg Config, logger zerolog.Logger) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := []Option{
		WithLogger(logger),
		WithCacheSize(cfg.CacheSize),
		WithMaxIdleSessions(cfg.MaxIdleSessions),
	}
	if cfg.Bundle != "" {
		b, err := LoadBundle(cfg.Bundle)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithBundle(b))
	}
	return New(opts...)
}
