// Command geo-mcp-server is the stdio MCP server desktop hosts launch.
package main

import (
	"context"
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

	// stdout carries the protocol; logs go to stderr only.
	logger, closeLog, err := logging.New("mcp-stdio", logging.Options{
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

	if err := a.RunStdio(ctx, os.Stdin, os.Stdout); err != nil {
		logger.WithError(err).Error("stdio server stopped")
		closeLog()
		os.Exit(1)
	}
}
