package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mitchellh/go-homedir"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/icyseptember2237/tex2typst"
)

const historyFile = ".tex2typst_history"

const replHelp = `:tex     convert TeX to Typst (default)
:typst   convert Typst to TeX
:quit    leave the REPL`

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Convert formulas interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminalIO() {
				return errors.New("repl needs an interactive terminal")
			}
			conv, cfg, _, err := newConverter()
			if err != nil {
				return err
			}
			defer conv.Close()
			return runRepl(conv, cfg)
		},
	}
}

// replState tracks the conversion direction selected with :tex and :typst.
type replState struct {
	worker *tex2typst.Worker
	tex    *tex2typst.TexOptions
	typst  *tex2typst.TypstOptions
	toTeX  bool
}

func (st *replState) prompt() string {
	if st.toTeX {
		return "typst> "
	}
	return "tex> "
}

// eval handles one line. It reports false when the REPL should exit.
func (st *replState) eval(line string, out, errOut io.Writer) bool {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return true
	case ":quit", ":q":
		return false
	case ":tex":
		st.toTeX = false
		return true
	case ":typst":
		st.toTeX = true
		return true
	case ":help":
		fmt.Fprintln(out, replHelp)
		return true
	}
	if strings.HasPrefix(line, ":") {
		fmt.Fprintln(errOut, "unknown command. Type :help for a list.")
		return true
	}

	var result string
	var err error
	if st.toTeX {
		result, err = st.worker.Typst2Tex(line, st.typst)
	} else {
		result, err = st.worker.Tex2Typst(line, st.tex)
	}
	if err != nil {
		fmt.Fprintln(errOut, red(err.Error()))
		return true
	}
	fmt.Fprintln(out, color.GreenString(result))
	return true
}

func runRepl(conv *tex2typst.Converter, cfg tex2typst.Config) error {
	worker, err := conv.Worker()
	if err != nil {
		return err
	}
	defer worker.Close()

	st := &replState{worker: worker, tex: &cfg.Tex, typst: &cfg.Typst}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	var histPath string
	if home, err := homedir.Dir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	fmt.Printf("tex2typst %s. Type :help for commands.\n", version)
	for {
		line, err := ln.Prompt(st.prompt())
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}
		if !st.eval(line, os.Stdout, os.Stderr) {
			return nil
		}
		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
	}
}
