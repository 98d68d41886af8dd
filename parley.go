// Package parley wires the conversation service together from host
// configuration: config file and environment, the process logger, the
// metrics registry and the tracer provider. Hosts that want to compose
// the pieces themselves can use pkg/conversation directly.
package parley

import (
	"context"
	"fmt"
	"net/http"

	"github.com/parley-ai/parley/internal/config"
	"github.com/parley-ai/parley/internal/logger"
	"github.com/parley-ai/parley/internal/metrics"
	"github.com/parley-ai/parley/internal/tracing"
	"github.com/parley-ai/parley/pkg/conversation"
	"github.com/parley-ai/parley/pkg/history"
	"github.com/parley-ai/parley/pkg/llm"
	"github.com/parley-ai/parley/pkg/prompt"
)

// Runtime is a fully wired conversation stack. All components share the
// configuration loaded at Open time.
type Runtime struct {
	service *conversation.Service
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	tracing bool
}

// Open loads configuration from the given path (empty means defaults
// plus PARLEY_ environment overrides), installs the logger and builds a
// conversation service over the supplied store and resolver. A nil
// store gets the in-memory store.
func Open(configPath string, store history.Store, resolver llm.Resolver) (*Runtime, error) {
	cfg, err := config.NewLoader(configPath).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if store == nil {
		store = history.NewMemoryStore()
	}

	m := metrics.New()
	service := conversation.NewService(store, resolver, prompt.NewRegistry(cfg.Conversation.Prompts), m, conversation.Config{
		TraceEndpoint: cfg.Tracing.Endpoint,
		ServiceName:   cfg.Tracing.ServiceName,
		SystemMessage: cfg.Conversation.SystemMessage,
	})

	return &Runtime{
		service: service,
		cfg:     cfg,
		log:     log,
		metrics: m,
		tracing: cfg.Tracing.Endpoint != "",
	}, nil
}

// Service returns the wired conversation service.
func (r *Runtime) Service() *conversation.Service {
	return r.service
}

// Config returns the loaded configuration.
func (r *Runtime) Config() *config.Config {
	return r.cfg
}

// MetricsHandler returns the HTTP handler serving the runtime's
// metrics registry, for hosts that expose a scrape endpoint.
func (r *Runtime) MetricsHandler() http.Handler {
	return r.metrics.Handler()
}

// Start begins a conversation from string attributes, the form in which
// transports and stored records carry backend configuration. The
// attributes are parsed and validated before the session is created.
func (r *Runtime) Start(ctx context.Context, attrs map[string]string, promptID string) (*conversation.Conversation, error) {
	meta, err := llm.ParseMetadata(attrs)
	if err != nil {
		return nil, err
	}
	return r.service.Start(ctx, meta, promptID)
}

// Close flushes the tracer provider when tracing was enabled and closes
// the logger's file handle.
func (r *Runtime) Close(ctx context.Context) error {
	if r.tracing {
		if err := tracing.ShutdownOpenTelemetry(ctx); err != nil {
			return fmt.Errorf("shutdown tracing: %w", err)
		}
	}
	return r.log.Close()
}
