// Command mcp-server serves the HTTP API: MCP over POST /mcp plus the REST
// tool and GEO endpoints.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/geo-agent/geo-mcp-server/internal/app"
	"github.com/geo-agent/geo-mcp-server/internal/config"
	"github.com/geo-agent/geo-mcp-server/internal/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	httpAddr := flag.String("http", cfg.HTTPAddr, "HTTP listen address (e.g., :3000)")
	flag.Parse()

	logger, closeLog, err := logging.New("http", logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Dir:    cfg.LogDir,
		Output: os.Stderr,
	})
	if err != nil {
		log.Fatalf("init logging: %v", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, app.Deps{})
	if err != nil {
		logger.WithError(err).Fatal("startup failed")
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			logger.WithError(err).Warn("telemetry shutdown failed")
		}
	}()

	if err := a.RunHTTP(ctx, *httpAddr); err != nil {
		logger.WithError(err).Error("HTTP server stopped")
		closeLog()
		os.Exit(1)
	}
}
