package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func (e *env) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdio (what desktop hosts launch)",
		Long: `Serve MCP as newline-delimited JSON-RPC on stdin/stdout until stdin closes.

With --http the HTTP API runs alongside and stops when stdin closes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig(cmd)
			a, cleanup, err := e.build(cmd.Context(), cmd, "mcp-stdio", cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			addr, _ := cmd.Flags().GetString("http")
			if addr == "" {
				return a.RunStdio(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			httpErr := make(chan error, 1)
			go func() { httpErr <- a.RunHTTP(ctx, addr) }()
			stdioErr := make(chan error, 1)
			go func() { stdioErr <- a.RunStdio(ctx, cmd.InOrStdin(), cmd.OutOrStdout()) }()

			// A blocked stdin read cannot be interrupted, so an HTTP failure
			// returns without waiting for the stdio loop.
			select {
			case err := <-stdioErr:
				cancel()
				if herr := <-httpErr; err == nil {
					err = herr
				}
				return err
			case err := <-httpErr:
				return err
			}
		},
	}
	cmd.Flags().String("http", "", "Also serve the HTTP API on this address (e.g. :3000)")
	return cmd
}

func (e *env) newHTTPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the HTTP API (MCP endpoint, tools, GEO flows)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig(cmd)
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.HTTPAddr = addr
			}
			a, cleanup, err := e.build(cmd.Context(), cmd, "http", cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			return a.RunHTTP(cmd.Context(), cfg.HTTPAddr)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (overrides GEO_HTTP_ADDR, default :3000)")
	return cmd
}
