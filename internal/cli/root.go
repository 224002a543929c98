// Package cli implements the geo-mcp command line.
package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/geo-agent/geo-mcp-server/internal/app"
	"github.com/geo-agent/geo-mcp-server/internal/config"
	"github.com/geo-agent/geo-mcp-server/internal/logging"
	"github.com/geo-agent/geo-mcp-server/internal/version"
)

// env carries what every subcommand needs to build an App.
type env struct {
	deps app.Deps
}

// NewRootCmd builds the command tree. deps is passed to every App the
// commands create.
func NewRootCmd(deps app.Deps) *cobra.Command {
	e := &env{deps: deps}
	root := &cobra.Command{
		Use:   "geo-mcp",
		Short: "GEO toolkit: MCP server, HTTP API and one-shot commands",
		Long: `geo-mcp exposes four GEO (generative engine optimization) tools over MCP:
ai-search-audit, content-reader, schema-generator and cms-bridge.

Credentials come from the environment (or a .env file):
TAVILY_API_KEY, WORDPRESS_URL/USER/APP_PASSWORD, DEEPSEEK_API_KEY.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("log-level", "", "Log level (overrides GEO_LOG_LEVEL)")
	root.PersistentFlags().String("log-format", "", "Log format: text | json (overrides GEO_LOG_FORMAT)")

	root.Version = version.Version
	root.SetVersionTemplate(version.Get().String() + "\n")

	root.AddCommand(
		e.newServeCmd(),
		e.newHTTPCmd(),
		e.newToolsCmd(),
		e.newCallCmd(),
		e.newAnalyzeCmd(),
		e.newOptimizeCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the environment and applies persistent flag overrides.
func loadConfig(cmd *cobra.Command) config.Config {
	cfg := config.FromEnv()
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}
	return cfg
}

// build creates a logger and App for component. The returned cleanup flushes
// telemetry and closes the log file.
func (e *env) build(ctx context.Context, cmd *cobra.Command, component string, cfg config.Config) (*app.App, func(), error) {
	logger, closeLog, err := logging.New(component, logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Dir:    cfg.LogDir,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init logging: %w", err)
	}

	a, err := app.New(ctx, cfg, logger, e.deps)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	cleanup := func() {
		if err := a.Close(context.Background()); err != nil {
			logger.WithError(err).Warn("telemetry shutdown failed")
		}
		closeLog()
	}
	return a, cleanup, nil
}

// quietConfig limits one-shot commands to warnings unless --log-level is set.
func quietConfig(cfg config.Config, cmd *cobra.Command) config.Config {
	if v, _ := cmd.Flags().GetString("log-level"); v == "" {
		cfg.LogLevel = logrus.WarnLevel.String()
	}
	return cfg
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
			return err
		},
	}
}
