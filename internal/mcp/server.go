package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// ServerOptions configures the MCP server.
type ServerOptions struct {
	// Name is the implementation name announced to clients. Default: "dimetrics-mcp-server".
	Name string

	// Version is announced to clients and reported by health_check.
	Version string

	// Transport is "stdio" or "http". Default: "stdio".
	Transport string

	// Addr is the listen address for the http transport. Default: ":8000".
	Addr string

	// Logger for server operations.
	Logger *zap.Logger
}

// DefaultServerOptions returns sensible defaults.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		Name:      "dimetrics-mcp-server",
		Version:   "dev",
		Transport: TransportStdio,
		Addr:      ":8000",
	}
}

// Server exposes the Dimetrics tools over MCP.
type Server struct {
	logger   *zap.Logger
	opts     ServerOptions
	handlers *Handlers
	mcp      *mcpsdk.Server
}

// NewServer creates a new MCP server with every tool registered.
func NewServer(handlers *Handlers, opts ServerOptions) *Server {
	defaults := DefaultServerOptions()
	if opts.Name == "" {
		opts.Name = defaults.Name
	}
	if opts.Version == "" {
		opts.Version = defaults.Version
	}
	if opts.Transport == "" {
		opts.Transport = defaults.Transport
	}
	if opts.Addr == "" {
		opts.Addr = defaults.Addr
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Server{
		logger:   opts.Logger.Named("mcp"),
		opts:     opts,
		handlers: handlers,
	}
	s.mcp = mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    opts.Name,
		Version: opts.Version,
	}, &mcpsdk.ServerOptions{
		Instructions: serverInstructions,
	})
	s.registerTools()
	return s
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *mcpsdk.Server { return s.mcp }

// Handler returns the http routes: streamable MCP at /mcp, plus /healthz
// and /metrics.
func (s *Server) Handler() http.Handler {
	streamable := mcpsdk.NewStreamableHTTPHandler(func(_ *http.Request) *mcpsdk.Server {
		return s.mcp
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", streamable)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": s.opts.Version})
	})
	return mux
}

// Start serves the configured transport. Blocks until the context is
// cancelled or the transport ends.
func (s *Server) Start(ctx context.Context) error {
	switch s.opts.Transport {
	case TransportStdio:
		s.logger.Info("Starting MCP server", zap.String("transport", TransportStdio))
		return s.mcp.Run(ctx, &mcpsdk.StdioTransport{})
	case TransportHTTP:
		return s.serveHTTP(ctx)
	default:
		return fmt.Errorf("unknown transport %q", s.opts.Transport)
	}
}

func (s *Server) serveHTTP(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting MCP server",
		zap.String("addr", s.opts.Addr),
		zap.String("transport", TransportHTTP))

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down MCP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// addTool registers fn under name. Each call gets a request id, one log
// line and a metrics sample; the Result is returned as both text and
// structured content, with IsError set on failure.
func addTool[In any](s *Server, name, description string, fn func(context.Context, In) Result) {
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        name,
		Description: description,
	}, func(ctx context.Context, _ *mcpsdk.CallToolRequest, in In) (*mcpsdk.CallToolResult, any, error) {
		start := time.Now()
		res := fn(ctx, in)
		res.RequestID = uuid.NewString()
		duration := time.Since(start)
		observeToolCall(name, res, duration)

		fields := []zap.Field{
			zap.String("tool", name),
			zap.String("request_id", res.RequestID),
			zap.Duration("duration", duration),
		}
		if res.Success {
			s.logger.Debug("Tool call succeeded", fields...)
		} else {
			s.logger.Info("Tool call failed", append(fields, zap.String("kind", res.ErrorKind), zap.String("error", res.Error))...)
		}

		out, err := toolResult(res)
		return out, nil, err
	})
}

func toolResult(res Result) (*mcpsdk.CallToolResult, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return &mcpsdk.CallToolResult{
		Content:           []mcpsdk.Content{&mcpsdk.TextContent{Text: string(payload)}},
		StructuredContent: json.RawMessage(payload),
		IsError:           !res.Success,
	}, nil
}
