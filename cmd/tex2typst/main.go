package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/icyseptember2237/tex2typst"
)

var (
	version = tex2typst.Version
	commit  = "unknown"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tex2typst",
		Short:         "Convert math markup between TeX and Typst",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return err
			}
			processGlobalFlags()
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "config file (default is $HOME/.tex2typst.yaml)")
	pf.String("bundle", "", "JavaScript bundle to load instead of the embedded one")
	pf.Int("cache-size", tex2typst.DefaultCacheSize, "result cache capacity per function (0 disables)")
	pf.Int("max-idle", 0, "maximum idle interpreter sessions (0 keeps all)")
	pf.String("log-level", "warn", "log level: trace, debug, info, warn, error or disabled")
	pf.Bool("no-color", false, "disable colored output")

	viper.BindPFlag("config", pf.Lookup("config"))
	viper.BindPFlag("bundle", pf.Lookup("bundle"))
	viper.BindPFlag("cache_size", pf.Lookup("cache-size"))
	viper.BindPFlag("max_idle", pf.Lookup("max-idle"))
	viper.BindPFlag("log_level", pf.Lookup("log-level"))
	viper.BindPFlag("no-color", pf.Lookup("no-color"))

	cmd.AddCommand(
		newTexCmd(),
		newTypstCmd(),
		newReplCmd(),
		newServeCmd(),
		newSchemaCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := map[string]string{
				"version": version,
				"commit":  commit,
				"date":    date,
			}
			if format, _ := cmd.Flags().GetString("output"); format == "json" {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tex2typst %s (commit %s, built %s)\n", version, commit, date)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "text", "output format: text or json")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fatal(err)
	}
}
