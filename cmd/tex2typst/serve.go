package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/icyseptember2237/tex2typst/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve conversions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, _, logger, err := newConverter()
			if err != nil {
				return err
			}
			defer conv.Close()

			addr, _ := cmd.Flags().GetString("addr")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(conv, logger).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().String("addr", "127.0.0.1:8080", "address to listen on")
	return cmd
}
