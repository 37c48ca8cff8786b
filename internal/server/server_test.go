package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icyseptember2237/tex2typst"
)

func newTestServer(t *testing.T, opts ...tex2typst.Option) http.Handler {
	t.Helper()
	conv, err := tex2typst.New(opts...)
	require.NoError(t, err)
	t.Cleanup(conv.Close)
	return New(conv, zerolog.Nop()).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestTex2TypstSingle(t *testing.T) {
	h := newTestServer(t)

	rec, out := do(t, h, http.MethodPost, "/v1/tex2typst", `{"input": "\\frac{1}{2}", "options": {"fracToSlash": false}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "frac(1, 2)", out["output"])
}

func TestTypst2TexBatch(t *testing.T) {
	h := newTestServer(t)

	rec, out := do(t, h, http.MethodPost, "/v1/typst2tex", `{"inputs": ["x^2", "alpha", "1/2"]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"x^2", `\alpha`, `\frac{1}{2}`}, out["outputs"])
}

func TestConversionFailure(t *testing.T) {
	h := newTestServer(t)

	rec, out := do(t, h, http.MethodPost, "/v1/tex2typst", `{"inputs": ["x", "\\frac{1}{2"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "conversion", out["kind"])
	assert.Equal(t, float64(1), out["index"])
	assert.Contains(t, out["error"], `conversion failed for '\frac{1}{2'`)

	rec, out = do(t, h, http.MethodPost, "/v1/tex2typst", `{"input": "\\frac{1}{2"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotContains(t, out, "index")
}

func TestCollect(t *testing.T) {
	h := newTestServer(t)

	rec, out := do(t, h, http.MethodPost, "/v1/tex2typst", `{"inputs": ["x", "\\frac{1}{2", "\\alpha"], "collect": true}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"x", "", "alpha"}, out["outputs"])

	errs, ok := out["errors"].([]any)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, float64(1), errs[0].(map[string]any)["index"])
}

func TestBadRequests(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed", body: `{"input":`},
		{name: "unknown field", body: `{"input": "x", "format": "y"}`},
		{name: "no input", body: `{}`},
		{name: "both inputs", body: `{"input": "x", "inputs": ["y"]}`},
		{name: "collect single", body: `{"input": "x", "collect": true}`},
		{name: "invalid macro", body: `{"input": "x", "options": {"customTexMacros": {"": "y"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := do(t, h, http.MethodPost, "/v1/tex2typst", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestBrokenBundle(t *testing.T) {
	h := newTestServer(t, tex2typst.WithBundle(tex2typst.Bundle{Name: "broken.js", Source: "function ("}))

	rec, out := do(t, h, http.MethodPost, "/v1/tex2typst", `{"input": "x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "init", out["kind"])
}

func TestHealthAndCache(t *testing.T) {
	h := newTestServer(t, tex2typst.WithCacheSize(8))

	rec, out := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, tex2typst.Version, out["version"])

	do(t, h, http.MethodPost, "/v1/tex2typst", `{"input": "\\alpha"}`)
	do(t, h, http.MethodPost, "/v1/tex2typst", `{"input": "\\alpha"}`)

	rec, out = do(t, h, http.MethodGet, "/v1/cache", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	stats := out["tex2typst"].(map[string]any)
	assert.Equal(t, float64(1), stats["hits"])
	assert.Equal(t, float64(1), stats["misses"])
	assert.Equal(t, float64(8), stats["capacity"])

	rec, _ = do(t, h, http.MethodDelete, "/v1/cache", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, out = do(t, h, http.MethodGet, "/v1/cache", "")
	stats = out["tex2typst"].(map[string]any)
	assert.Equal(t, float64(0), stats["size"])
}

func TestUnknownRoute(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/unknown", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
