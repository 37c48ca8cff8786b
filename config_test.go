package tex2typst

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultCacheSize, cfg.CacheSize)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "negative cache", mutate: func(c *Config) { c.CacheSize = -1 }},
		{name: "negative idle", mutate: func(c *Config) { c.MaxIdleSessions = -2 }},
		{name: "unknown level", mutate: func(c *Config) { c.LogLevel = "verbose" }},
		{name: "missing bundle", mutate: func(c *Config) { c.Bundle = filepath.Join(t.TempDir(), "missing.js") }},
		{name: "empty macro", mutate: func(c *Config) { c.Tex.CustomTexMacros = map[string]string{"": "x"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config validation failed")
		})
	}
}

func TestNewFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upper.js")
	require.NoError(t, os.WriteFile(path, []byte(`
function tex2typst(input) { return input.toUpperCase(); }
function typst2tex(input) { return input.toLowerCase(); }
`), 0o644))

	cfg := DefaultConfig()
	cfg.Bundle = path
	cfg.CacheSize = 4
	c, err := NewFromConfig(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	got, err := c.Tex2Typst("abc", nil)
	require.NoError(t, err)
	assert.Equal(t, "ABC", got)

	got, err = c.Typst2Tex("ABC", nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	assert.Equal(t, 4, c.CacheInfo()[FuncTex2Typst].Capacity)
}

func TestNewFromConfigRejectsInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CacheSize = -1
	_, err := NewFromConfig(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestLoadBundle(t *testing.T) {
	_, err := LoadBundle(filepath.Join(t.TempDir(), "missing.js"))
	assert.ErrorContains(t, err, "read bundle")

	b := DefaultBundle()
	assert.Equal(t, "tex2typst.bundle.js", b.Name)
	assert.Contains(t, b.Source, "tex2typst = function")
}
