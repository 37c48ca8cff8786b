package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icyseptember2237/tex2typst"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	viper.Reset()
	homedir.DisableCache = true
	t.Setenv("HOME", t.TempDir())

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestTexCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "default", args: []string{"tex", `\frac{1}{2}`}, want: "1/2\n"},
		{name: "flag", args: []string{"tex", "--frac-to-slash=false", `\frac{1}{2}`}, want: "frac(1, 2)\n"},
		{name: "macro", args: []string{"tex", "--macro", `\RR=\mathbb{R}`, `\RR`}, want: "RR\n"},
		{name: "batch", args: []string{"tex", `x^2`, `\alpha`}, want: "x^2\nalpha\n"},
		{name: "no cache", args: []string{"--cache-size", "0", "tex", `\infty`, "--infty-to-oo"}, want: "oo\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "", tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestTypstCommand(t *testing.T) {
	out, _, err := execute(t, "", "typst", "x^2", "alpha")
	require.NoError(t, err)
	assert.Equal(t, "x^2\n\\alpha\n", out)

	out, _, err = execute(t, "", "typst", "--block-math-mode=false", "1/2")
	require.NoError(t, err)
	assert.Equal(t, "\\tfrac{1}{2}\n", out)
}

func TestStdinInputs(t *testing.T) {
	out, _, err := execute(t, "x^2\n\n  \\alpha  \n", "tex", "--stdin")
	require.NoError(t, err)
	assert.Equal(t, "x^2\nalpha\n", out)

	_, _, err = execute(t, "x", "tex", "--stdin", "y")
	assert.EqualError(t, err, "multiple input sources specified")

	_, _, err = execute(t, "", "tex")
	assert.EqualError(t, err, "no input given")
}

func TestJSONOutput(t *testing.T) {
	out, _, err := execute(t, "", "tex", "-o", "json", "x^2")
	require.NoError(t, err)
	var single result
	require.NoError(t, json.Unmarshal([]byte(out), &single))
	assert.Equal(t, result{Input: "x^2", Output: "x^2"}, single)

	out, _, err = execute(t, "", "typst", "-o", "json", "alpha", "1/2")
	require.NoError(t, err)
	var many []result
	require.NoError(t, json.Unmarshal([]byte(out), &many))
	assert.Equal(t, []result{
		{Input: "alpha", Output: `\alpha`},
		{Input: "1/2", Output: `\frac{1}{2}`},
	}, many)

	_, _, err = execute(t, "", "tex", "-o", "yaml", "x")
	assert.EqualError(t, err, "unknown output format: yaml")
}

func TestConversionFailure(t *testing.T) {
	out, _, err := execute(t, "", "tex", `x`, `\frac{1}{2`)
	var ce *tex2typst.ConversionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.Index)
	assert.Empty(t, out)
}

func TestCollect(t *testing.T) {
	out, errOut, err := execute(t, "", "tex", "--collect", `x`, `\frac{1}{2`, `\alpha`)
	assert.EqualError(t, err, "1 of 3 inputs failed")
	assert.Equal(t, "x\nalpha\n", out)
	assert.Contains(t, errOut, `conversion failed for '\frac{1}{2'`)

	out, _, err = execute(t, "", "tex", "--collect", "-o", "json", `x`, `\frac{1}{2`)
	require.Error(t, err)
	var many []result
	require.NoError(t, json.Unmarshal([]byte(out), &many))
	require.Len(t, many, 2)
	assert.Empty(t, many[0].Error)
	assert.NotEmpty(t, many[1].Error)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cache_size: 0
tex:
  fracToSlash: false
  customTexMacros:
    '\RR': '\mathbb{R}'
typst:
  blockMathMode: false
`), 0o644))

	out, _, err := execute(t, "", "--config", path, "tex", `\frac{1}{2}`, `\RR`)
	require.NoError(t, err)
	assert.Equal(t, "frac(1, 2)\nRR\n", out)

	// Flags win over the file.
	out, _, err = execute(t, "", "--config", path, "tex", "--frac-to-slash", `\frac{1}{2}`)
	require.NoError(t, err)
	assert.Equal(t, "1/2\n", out)

	out, _, err = execute(t, "", "--config", path, "typst", "1/2")
	require.NoError(t, err)
	assert.Equal(t, "\\tfrac{1}{2}\n", out)
}

func TestEnvOptionOverrides(t *testing.T) {
	t.Setenv("TEX2TYPST_TEX_FRACTOSLASH", "false")
	t.Setenv("TEX2TYPST_TEX_INFTYTOOO", "true")
	t.Setenv("TEX2TYPST_TYPST_BLOCKMATHMODE", "false")

	out, _, err := execute(t, "", "tex", `\frac{1}{2}`, `\infty`)
	require.NoError(t, err)
	assert.Equal(t, "frac(1, 2)\noo\n", out)

	out, _, err = execute(t, "", "typst", "1/2")
	require.NoError(t, err)
	assert.Equal(t, "\\tfrac{1}{2}\n", out)

	// Flags still win over the environment.
	out, _, err = execute(t, "", "tex", "--frac-to-slash", `\frac{1}{2}`)
	require.NoError(t, err)
	assert.Equal(t, "1/2\n", out)
}

func TestConfigErrors(t *testing.T) {
	_, _, err := execute(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "tex", "x")
	assert.ErrorContains(t, err, "failed to read config")

	t.Setenv("TEX2TYPST_CACHE_SIZE", "-1")
	_, _, err = execute(t, "", "tex", "x")
	assert.ErrorContains(t, err, "config validation failed")
}

func TestVersionAndSchema(t *testing.T) {
	out, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, tex2typst.Version)

	out, _, err = execute(t, "", "version", "-o", "json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, tex2typst.Version, info["version"])

	out, _, err = execute(t, "", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "fracToSlash")
	assert.Contains(t, out, "blockMathMode")
}

func TestReplEval(t *testing.T) {
	conv, err := tex2typst.New(tex2typst.WithCacheSize(0))
	require.NoError(t, err)
	defer conv.Close()
	worker, err := conv.Worker()
	require.NoError(t, err)
	defer worker.Close()

	st := &replState{worker: worker, tex: &tex2typst.TexOptions{}, typst: &tex2typst.TypstOptions{}}
	var out, errOut bytes.Buffer

	assert.Equal(t, "tex> ", st.prompt())
	assert.True(t, st.eval(`\alpha`, &out, &errOut))
	assert.True(t, st.eval(":typst", &out, &errOut))
	assert.Equal(t, "typst> ", st.prompt())
	assert.True(t, st.eval("1/2", &out, &errOut))
	assert.True(t, st.eval("(x", &out, &errOut))
	assert.True(t, st.eval(":bogus", &out, &errOut))
	assert.False(t, st.eval(":quit", &out, &errOut))

	assert.Contains(t, out.String(), "alpha")
	assert.Contains(t, out.String(), `\frac{1}{2}`)
	assert.Contains(t, errOut.String(), "Unclosed delimiter")
	assert.Contains(t, errOut.String(), "unknown command")
}
