package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/icyseptember2237/tex2typst"
)

var envOptionKeys = []string{
	"tex.nonStrict",
	"tex.preferShorthands",
	"tex.keepSpaces",
	"tex.fracToSlash",
	"tex.inftyToOo",
	"tex.optimize",
	"typst.blockMathMode",
}

// initConfig reads the config file and environment. A missing default config
// file is not an error; a missing explicit one is.
func initConfig() error {
	explicit := viper.GetString("config")
	if explicit != "" {
		viper.SetConfigFile(explicit)
	} else {
		if home, err := homedir.Dir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".tex2typst")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("TEX2TYPST")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows, so the nested
	// option keys are bound one by one. TEX2TYPST_TEX_FRACTOSLASH sets
	// tex.fracToSlash. Macro tables come from the config file only.
	for _, key := range envOptionKeys {
		if err := viper.BindEnv(key); err != nil {
			return err
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

func loadConfig() (tex2typst.Config, error) {
	cfg := tex2typst.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	if path := viper.ConfigFileUsed(); path != "" {
		macros, err := readMacros(path)
		if err != nil {
			return cfg, err
		}
		if macros != nil {
			cfg.Tex.CustomTexMacros = macros
		}
	}
	return cfg, cfg.Validate()
}

// readMacros reads tex.customTexMacros straight from the YAML file. Viper
// folds map keys to lower case and macro names are case sensitive.
func readMacros(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var doc struct {
		Tex struct {
			CustomTexMacros map[string]string `yaml:"customTexMacros"`
		} `yaml:"tex"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode macros: %w", err)
	}
	return doc.Tex.CustomTexMacros, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}
	out := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		NoColor:    color.NoColor,
		TimeFormat: time.Kitchen,
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// newConverter builds a Converter from the merged flags, environment and
// config file.
func newConverter() (*tex2typst.Converter, tex2typst.Config, zerolog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cfg, zerolog.Nop(), err
	}
	logger := newLogger(cfg.LogLevel)
	conv, err := tex2typst.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, cfg, logger, err
	}
	return conv, cfg, logger, nil
}
