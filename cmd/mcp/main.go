package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/faq-assistant/internal/adapters/mcp"
	"github.com/kirillkom/faq-assistant/internal/bootstrap"
	"github.com/kirillkom/faq-assistant/internal/config"
	"github.com/kirillkom/faq-assistant/internal/observability/logging"
)

const serviceName = "faq-mcp"

// Stdout carries the MCP protocol, so logs go to stderr.
func main() {
	cfg, err := config.Load()
	logger := logging.New(os.Stderr, serviceName, cfg.LogLevel, "json")
	if err != nil {
		logger.Error("config error", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, serviceName, logger)
	if err != nil {
		logger.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	srv := mcpadapter.NewServer(serviceName, "1.0.0", app.Pipeline, logger)
	if err := srv.ServeStdio(); err != nil {
		logger.Error("mcp server error", "error", err)
	}
}
