package tex2typst

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed js/tex2typst.bundle.js
var defaultBundleSource string

const defaultBundleName = "tex2typst.bundle.js"

// Bundle is the script text evaluated once into every new Session.
// Name is used as the file name in interpreter stack traces.
type Bundle struct {
	Name   string
	Source string
}

// DefaultBundle returns the bundle compiled into the binary.
func DefaultBundle() Bundle {
	return Bundle{Name: defaultBundleName, Source: defaultBundleSource}
}

// LoadBundle reads a replacement bundle from disk. The script must be ES5 and
// define the tex2typst and typst2tex globals.
func LoadBundle(path string) (Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Bundle{}, fmt.Errorf("read bundle: %w", err)
	}
	return Bundle{Name: filepath.Base(path), Source: string(data)}, nil
}
