package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fellnerd/dimetrics-mcp-server/internal/config"
	"github.com/fellnerd/dimetrics-mcp-server/internal/entries"
	"github.com/fellnerd/dimetrics-mcp-server/internal/gateway"
)

// backend is what the commands need from the API client.
type backend interface {
	entries.Gateway
	Ping(ctx context.Context) error
	BaseURL() string
	Authenticated() bool
}

// getBackendFunc creates the API client. Tests replace it with a fake.
var getBackendFunc = defaultBackend

func getBackend() (backend, error) {
	return getBackendFunc()
}

func defaultBackend() (backend, error) {
	cfg, err := config.NewLoader(envFile).Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	client, err := gateway.New(zap.NewNop(), gateway.Config{
		BaseURL:       cfg.APIURL,
		APIKey:        cfg.APIKey,
		SessionCookie: cfg.SessionCookie,
		Timeout:       cfg.Timeout,
		RateLimit:     cfg.RateLimit,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func entryService() (*entries.Service, error) {
	b, err := getBackend()
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return entries.NewService(b, zap.NewNop()), nil
}
