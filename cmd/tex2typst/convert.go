package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/icyseptember2237/tex2typst"
)

type result struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

func newTexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tex [input...]",
		Short: "Convert TeX math to Typst",
		Example: `  tex2typst tex '\frac{1}{2}'
  tex2typst tex --frac-to-slash=false '\frac{a}{b}'
  tex2typst tex --macro '\RR=\mathbb{R}' '\RR'`,
		RunE: runTex,
	}
	f := cmd.Flags()
	f.Bool("non-strict", true, "accept unknown commands")
	f.Bool("prefer-shorthands", true, "emit shorthand symbols such as ->")
	f.Bool("keep-spaces", false, "preserve spacing from the input")
	f.Bool("frac-to-slash", true, "render simple fractions as a/b")
	f.Bool("infty-to-oo", false, "render infinity as oo")
	f.Bool("optimize", true, "simplify the generated markup")
	f.StringToString("macro", nil, "custom macro as name=replacement (repeatable)")
	addInputFlags(f)
	return cmd
}

func newTypstCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "typst [input...]",
		Short: "Convert Typst math to TeX",
		RunE:  runTypst,
	}
	f := cmd.Flags()
	f.Bool("block-math-mode", true, "render for display math")
	addInputFlags(f)
	return cmd
}

func addInputFlags(f *pflag.FlagSet) {
	f.Bool("stdin", false, "read inputs from stdin, one per line")
	f.Bool("collect", false, "convert every input and report all failures")
	f.StringP("output", "o", "text", "output format: text or json")
}

func texOptions(cmd *cobra.Command, base tex2typst.TexOptions) (*tex2typst.TexOptions, error) {
	opts := base
	f := cmd.Flags()
	for name, field := range map[string]**bool{
		"non-strict":        &opts.NonStrict,
		"prefer-shorthands": &opts.PreferShorthands,
		"keep-spaces":       &opts.KeepSpaces,
		"frac-to-slash":     &opts.FracToSlash,
		"infty-to-oo":       &opts.InftyToOo,
		"optimize":          &opts.Optimize,
	} {
		if !f.Changed(name) {
			continue
		}
		v, err := f.GetBool(name)
		if err != nil {
			return nil, err
		}
		*field = tex2typst.Bool(v)
	}
	if f.Changed("macro") {
		macros, err := f.GetStringToString("macro")
		if err != nil {
			return nil, err
		}
		merged := make(map[string]string, len(base.CustomTexMacros)+len(macros))
		for k, v := range base.CustomTexMacros {
			merged[k] = v
		}
		for k, v := range macros {
			merged[k] = v
		}
		opts.CustomTexMacros = merged
	}
	return &opts, nil
}

func typstOptions(cmd *cobra.Command, base tex2typst.TypstOptions) (*tex2typst.TypstOptions, error) {
	opts := base
	if cmd.Flags().Changed("block-math-mode") {
		v, err := cmd.Flags().GetBool("block-math-mode")
		if err != nil {
			return nil, err
		}
		opts.BlockMathMode = tex2typst.Bool(v)
	}
	return &opts, nil
}

func runTex(cmd *cobra.Command, args []string) error {
	conv, cfg, _, err := newConverter()
	if err != nil {
		return err
	}
	defer conv.Close()
	opts, err := texOptions(cmd, cfg.Tex)
	if err != nil {
		return err
	}
	return runConversion(cmd, args,
		func(in string) (string, error) { return conv.Tex2Typst(in, opts) },
		func(in []string) ([]string, error) { return conv.Tex2TypstBatch(in, opts) },
		func(in []string) ([]string, error) { return conv.Tex2TypstBatchCollect(in, opts) },
	)
}

func runTypst(cmd *cobra.Command, args []string) error {
	conv, cfg, _, err := newConverter()
	if err != nil {
		return err
	}
	defer conv.Close()
	opts, err := typstOptions(cmd, cfg.Typst)
	if err != nil {
		return err
	}
	return runConversion(cmd, args,
		func(in string) (string, error) { return conv.Typst2Tex(in, opts) },
		func(in []string) ([]string, error) { return conv.Typst2TexBatch(in, opts) },
		func(in []string) ([]string, error) { return conv.Typst2TexBatchCollect(in, opts) },
	)
}

func runConversion(
	cmd *cobra.Command,
	args []string,
	single func(string) (string, error),
	batch func([]string) ([]string, error),
	collect func([]string) ([]string, error),
) error {
	inputs, err := readInputs(cmd, args)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("output")
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown output format: %s", format)
	}
	collecting, _ := cmd.Flags().GetBool("collect")

	results := make([]result, len(inputs))
	for i, in := range inputs {
		results[i].Input = in
	}

	var convErr error
	switch {
	case len(inputs) == 1 && !collecting:
		results[0].Output, convErr = single(inputs[0])
	case collecting:
		var outs []string
		outs, convErr = collect(inputs)
		var merr *multierror.Error
		if errors.As(convErr, &merr) {
			for i, out := range outs {
				results[i].Output = out
			}
			for _, e := range merr.Errors {
				var ce *tex2typst.ConversionError
				if errors.As(e, &ce) && ce.Index >= 0 {
					results[ce.Index].Error = e.Error()
				}
			}
			convErr = fmt.Errorf("%d of %d inputs failed", len(merr.Errors), len(inputs))
			break
		}
		if convErr != nil {
			return convErr
		}
		for i, out := range outs {
			results[i].Output = out
		}
	default:
		var outs []string
		outs, convErr = batch(inputs)
		for i, out := range outs {
			results[i].Output = out
		}
	}

	if convErr != nil && !collecting {
		return convErr
	}
	// Collected failures are reported after the partial results.
	if err := writeResults(cmd.OutOrStdout(), cmd.ErrOrStderr(), format, results); err != nil {
		return err
	}
	return convErr
}

// readInputs returns the positional arguments, or the non-empty lines of
// stdin when --stdin is set.
func readInputs(cmd *cobra.Command, args []string) ([]string, error) {
	useStdin, _ := cmd.Flags().GetBool("stdin")
	if useStdin && len(args) > 0 {
		return nil, errors.New("multiple input sources specified")
	}
	if !useStdin {
		if len(args) == 0 {
			return nil, errors.New("no input given")
		}
		return args, nil
	}
	return scanLines(cmd.InOrStdin())
}

func scanLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	if len(lines) == 0 {
		return nil, errors.New("no input given")
	}
	return lines, nil
}
