// Package app wires configuration, collaborators and tools into the stdio
// and HTTP servers.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/geo-agent/geo-mcp-server/internal/browser"
	"github.com/geo-agent/geo-mcp-server/internal/config"
	"github.com/geo-agent/geo-mcp-server/internal/geo"
	"github.com/geo-agent/geo-mcp-server/internal/llm"
	"github.com/geo-agent/geo-mcp-server/internal/mcp"
	"github.com/geo-agent/geo-mcp-server/internal/protocol"
	"github.com/geo-agent/geo-mcp-server/internal/telemetry"
	"github.com/geo-agent/geo-mcp-server/internal/tools"
	"github.com/geo-agent/geo-mcp-server/internal/version"
	"github.com/geo-agent/geo-mcp-server/internal/webapi"
)

// Deps overrides collaborators, mainly for tests. Zero values select the
// production implementations.
type Deps struct {
	HTTPClient *http.Client
	Renderer   browser.Renderer
	// DisableTelemetry skips provider setup entirely.
	DisableTelemetry bool
}

// App is a fully wired process.
type App struct {
	Config    config.Config
	Logger    *logrus.Entry
	Toolbox   *mcp.Toolbox
	Server    *mcp.Server
	Pipeline  *geo.Pipeline
	Telemetry *telemetry.Providers
}

// Tools holds the registered tool instances.
type Tools struct {
	SearchAudit     *tools.SearchAudit
	ContentReader   *tools.ContentReader
	SchemaGenerator *tools.SchemaGenerator
	CMSBridge       *tools.CMSBridge
}

// NewTools builds the four tools from cfg.
func NewTools(cfg config.Config, logger *logrus.Entry, deps Deps) Tools {
	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = browser.NewChrome(cfg.ChromePath, cfg.NavTimeout, logger.WithField("collaborator", "browser"))
	}
	return Tools{
		SearchAudit:     tools.NewSearchAudit(cfg, client),
		ContentReader:   tools.NewContentReader(renderer),
		SchemaGenerator: tools.NewSchemaGenerator(),
		CMSBridge:       tools.NewCMSBridge(cfg, client),
	}
}

// NewToolbox registers t in the fixed order hosts see in tools/list.
func NewToolbox(t Tools, logger *logrus.Entry) *mcp.Toolbox {
	return mcp.NewToolbox(logger,
		t.SearchAudit,
		t.ContentReader,
		t.SchemaGenerator,
		t.CMSBridge,
	)
}

// New wires everything. Credentials are not checked here; tools report a
// missing value when first used.
func New(ctx context.Context, cfg config.Config, logger *logrus.Entry, deps Deps) (*App, error) {
	t := NewTools(cfg, logger, deps)
	tb := NewToolbox(t, logger)

	a := &App{Config: cfg, Logger: logger, Toolbox: tb}
	if !deps.DisableTelemetry {
		providers, err := telemetry.Setup(ctx, version.Name, version.Version, cfg.OTLPEndpoint)
		if err != nil {
			return nil, fmt.Errorf("telemetry: %w", err)
		}
		tb.SetObserver(providers.Observer)
		a.Telemetry = providers
	}

	a.Server = mcp.NewServer(tb, protocol.ServerInfo{Name: version.Name, Version: version.Version}, logger)

	// The model client is always built; a missing key surfaces on first use.
	lc, err := cfg.LLM()
	if err != nil {
		lc = config.LLM{BaseURL: config.DefaultLLMBaseURL, Model: config.DefaultLLMModel}
	}
	llmClient := llm.NewClient(lc.APIKey, lc.Model, lc.BaseURL, deps.HTTPClient)
	a.Pipeline = geo.NewPipeline(t.SearchAudit, t.ContentReader, llm.NewOptimizer(llmClient), logger)
	return a, nil
}

// RunStdio serves MCP over r/w until EOF or ctx is cancelled.
func (a *App) RunStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	a.Logger.WithField("tools", len(a.Toolbox.Describe())).Info("stdio MCP server ready")
	return a.Server.Serve(ctx, r, w)
}

// HTTPHandler returns the HTTP front-end.
func (a *App) HTTPHandler() http.Handler {
	opts := webapi.Options{
		MCP:      a.Server,
		Pipeline: a.Pipeline,
		Token:    a.Config.APIToken,
		Logger:   a.Logger,
	}
	if a.Telemetry != nil {
		opts.Stats = a.Telemetry
	}
	return webapi.New(opts).Handler()
}

// RunHTTP listens on addr until ctx is cancelled, then shuts down gracefully.
func (a *App) RunHTTP(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.HTTPHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Infof("HTTP server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	return a.Telemetry.Shutdown(ctx)
}
