package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/mattn/go-isatty"
	"github.com/spf13/viper"
)

var red = color.New(color.FgRed).SprintFunc()

func fatal(msg interface{}) {
	var s string
	switch msg := msg.(type) {
	case string:
		s = msg
	case error:
		s = msg.Error()
	default:
		s = fmt.Sprintf("%v", msg)
	}
	fmt.Fprintf(os.Stderr, "%s\n", red(s))
	os.Exit(1)
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func isTerminalIO() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

// Reads global flags from Viper and adjusts the environment accordingly.
func processGlobalFlags() {
	if viper.GetBool("no-color") {
		color.NoColor = true
	}
}

func writeJSON(w io.Writer, v any) error {
	var data []byte
	var err error
	if f, ok := w.(*os.File); ok && isTerminal(f) && !viper.GetBool("no-color") {
		data, err = prettyjson.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeResults(stdout, stderr io.Writer, format string, results []result) error {
	if format == "json" {
		if len(results) == 1 {
			return writeJSON(stdout, results[0])
		}
		return writeJSON(stdout, results)
	}
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintln(stderr, red(r.Error))
			continue
		}
		if _, err := fmt.Fprintln(stdout, r.Output); err != nil {
			return err
		}
	}
	return nil
}
