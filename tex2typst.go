// Package tex2typst converts math markup between TeX and Typst by calling
// into a JavaScript bundle hosted in an embedded interpreter.
//
// Each call borrows an interpreter session from a registry, builds the
// options object inside it and invokes the bundle function. Sessions are
// created on first use and reused afterwards; no two goroutines ever share
// one, so the interpreter itself needs no locking.
//
//	out, err := tex2typst.Tex2Typst(`\frac{1}{2}`, nil)
//	// out == "1/2"
package tex2typst

import "sync"

// Version of the Go bridge.
const Version = "0.3.0"

var (
	defaultOnce      sync.Once
	defaultConverter *Converter
)

// Default returns the process-wide Converter used by the package-level
// functions. It uses the embedded bundle and default cache size.
func Default() *Converter {
	defaultOnce.Do(func() {
		// New only fails on negative sizes.
		defaultConverter, _ = New()
	})
	return defaultConverter
}

// Tex2Typst converts TeX math to Typst using the default Converter.
func Tex2Typst(input string, opts *TexOptions) (string, error) {
	return Default().Tex2Typst(input, opts)
}

// Typst2Tex converts Typst math to TeX using the default Converter.
func Typst2Tex(input string, opts *TypstOptions) (string, error) {
	return Default().Typst2Tex(input, opts)
}

// Tex2TypstBatch converts a list of TeX inputs using the default Converter.
func Tex2TypstBatch(inputs []string, opts *TexOptions) ([]string, error) {
	return Default().Tex2TypstBatch(inputs, opts)
}

// Typst2TexBatch converts a list of Typst inputs using the default Converter.
func Typst2TexBatch(inputs []string, opts *TypstOptions) ([]string, error) {
	return Default().Typst2TexBatch(inputs, opts)
}

// CacheInfo reports the default Converter's cache statistics.
func CacheInfo() map[string]CacheStats {
	return Default().CacheInfo()
}

// ClearCache empties the default Converter's cache.
func ClearCache() {
	Default().ClearCache()
}
