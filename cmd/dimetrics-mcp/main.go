// dimetrics-mcp serves the Dimetrics API to AI agents over the Model
// Context Protocol.
//
// Usage:
//
//	dimetrics-mcp                      # stdio, for agents that spawn the server
//	dimetrics-mcp --transport http     # streamable HTTP on :8000/mcp
//	PORT=9000 dimetrics-mcp            # http on :9000
//
// Settings come from flags, then DIMETRICS_* environment variables, then a
// .env file in the working directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fellnerd/dimetrics-mcp-server/internal/catalog"
	"github.com/fellnerd/dimetrics-mcp-server/internal/config"
	"github.com/fellnerd/dimetrics-mcp-server/internal/entries"
	"github.com/fellnerd/dimetrics-mcp-server/internal/gateway"
	"github.com/fellnerd/dimetrics-mcp-server/internal/mcp"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "dimetrics-mcp",
		Short: "MCP server for the Dimetrics low-code platform",
		Long: `dimetrics-mcp exposes Dimetrics apps, resources, attributes and entries
as MCP tools. Entries can be listed with search, ordering, pagination,
equality filters, Directus-style filter trees and aggregations.

Environment:
  DIMETRICS_API_URL         API base URL (default https://app.dimetrics.io/api)
  DIMETRICS_API_KEY         API token, sent as "Authorization: Token <key>"
  DIMETRICS_SESSION_COOKIE  Session cookie, used when no API key is set
  DIMETRICS_TIMEOUT         Backend request timeout (default 30s)
  DIMETRICS_LOG_LEVEL       debug, info, warn or error (default info)
  DIMETRICS_RATE_LIMIT      Maximum backend requests per second (default unlimited)
  MCP_TRANSPORT             stdio or http
  PORT                      HTTP port; setting it selects the http transport`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader := config.NewLoader(envFile)
			if err := loader.BindFlags(cmd.Flags()); err != nil {
				return err
			}
			cfg, err := loader.Load()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, logger)
		},
	}

	f := cmd.Flags()
	f.String("api-url", "", "Dimetrics API base URL")
	f.String("api-key", "", "Dimetrics API token")
	f.String("session-cookie", "", "Session cookie used when no API key is set")
	f.String("timeout", "", "Backend request timeout, e.g. 30s")
	f.String("transport", "", "MCP transport: stdio or http")
	f.Int("port", 0, "HTTP listen port (implies --transport http)")
	f.String("log-level", "", "Log level: debug, info, warn, error")
	f.Float64("rate-limit", 0, "Maximum backend requests per second (0 = unlimited)")
	f.StringVar(&envFile, "env-file", ".env", "Optional .env file with DIMETRICS_* settings")

	return cmd
}

// newLogger builds the production zap logger. Output goes to stderr so the
// stdio transport keeps stdout for protocol frames.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logConfig := zap.NewProductionConfig()
	logConfig.Level = zap.NewAtomicLevelAt(lvl)
	logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logConfig.OutputPaths = []string{"stderr"}
	logConfig.ErrorOutputPaths = []string{"stderr"}
	return logConfig.Build()
}

// buildServer wires the backend client, services and tool handlers.
func buildServer(cfg *config.Config, logger *zap.Logger) (*mcp.Server, error) {
	client, err := gateway.New(logger, gateway.Config{
		BaseURL:       cfg.APIURL,
		APIKey:        cfg.APIKey,
		SessionCookie: cfg.SessionCookie,
		Timeout:       cfg.Timeout,
		RateLimit:     cfg.RateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	handlers := mcp.NewHandlers(
		entries.NewService(client, logger),
		catalog.NewService(client, logger),
		client,
		logger,
		version,
	)
	return mcp.NewServer(handlers, mcp.ServerOptions{
		Version:   version,
		Transport: cfg.ResolvedTransport(),
		Addr:      cfg.ListenAddr(),
		Logger:    logger,
	}), nil
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	server, err := buildServer(cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("Starting Dimetrics MCP server",
		zap.String("version", version),
		zap.String("api_url", cfg.APIURL),
		zap.String("transport", cfg.ResolvedTransport()),
		zap.Bool("authenticated", cfg.Authenticated()),
		zap.Duration("timeout", cfg.Timeout),
	)

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	logger.Info("Dimetrics MCP server stopped")
	return nil
}
