// Package service wires banshogate's adapters into the collaborators C8's
// pipeline depends on, and owns the process-wide resources spec §5 calls
// for: one sqlite handle, one rate limiter, one loaded policy, one upstream
// connector, one metrics registry, one tracer.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Microck/bansho/internal/adapter/outbound/mcp"
	"github.com/Microck/bansho/internal/adapter/outbound/memory"
	"github.com/Microck/bansho/internal/adapter/outbound/sqlstore"
	"github.com/Microck/bansho/internal/config"
	"github.com/Microck/bansho/internal/domain/auth"
	"github.com/Microck/bansho/internal/domain/policy"
	"github.com/Microck/bansho/internal/domain/pipeline"
	"github.com/Microck/bansho/internal/domain/ratelimit"
	"github.com/Microck/bansho/internal/port/outbound"
	"github.com/Microck/bansho/internal/telemetry"
)

// AppContext is the process-wide set of constructed resources, built once
// in cmd/banshogate and passed by reference to every adapter that needs
// one. It is never package-level mutable state (spec §5).
type AppContext struct {
	Settings *config.Settings
	Logger   *slog.Logger

	DB       *sqlstore.DB
	Policy   policy.Policy
	Limiter  *ratelimit.Limiter
	Upstream outbound.UpstreamClient
	Registry *prometheus.Registry
	Metrics  *telemetry.Metrics

	Pipeline *pipeline.Pipeline

	auditReader       *sqlstore.AuditWriter
	rateLimitStore    *memory.RateLimitStore
	tracerShutdown    func(context.Context) error
	cancelRateCleanup context.CancelFunc
}

// New constructs every collaborator from settings and wires them into a
// Pipeline. Callers must call Close when done.
func New(ctx context.Context, settings *config.Settings, logger *slog.Logger) (*AppContext, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sqlstore.Open(ctx, settings.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("service: open store: %w", err)
	}

	credentialStore := sqlstore.NewCredentialStore(db)
	credentialService := auth.NewService(credentialStore)
	authenticator := pipeline.NewAuthenticator(credentialService)

	auditWriter := sqlstore.NewAuditWriter(db)

	loadedPolicy, err := policy.Load(settings.PolicyPath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("service: load policy: %w", err)
	}
	authorizer := pipeline.NewAuthorizer(loadedPolicy)

	rateLimitStore := memory.NewRateLimitStore(logger)
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	rateLimitStore.StartCleanup(cleanupCtx)
	limiter := ratelimit.New(rateLimitStore)

	upstreamClient, err := newUpstream(ctx, settings)
	if err != nil {
		cancelCleanup()
		_ = db.Close()
		return nil, fmt.Errorf("service: start upstream: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	tracerShutdown, err := telemetry.InitTracer(ctx, settings.OTelTracesExporter)
	if err != nil {
		cancelCleanup()
		_ = upstreamClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("service: init tracer: %w", err)
	}

	p := pipeline.New(authenticator, authorizer, limiter, upstreamClient, auditWriter, logger, metrics, telemetry.Tracer())

	return &AppContext{
		Settings:          settings,
		Logger:            logger,
		DB:                db,
		Policy:            loadedPolicy,
		Limiter:           limiter,
		Upstream:          upstreamClient,
		Registry:          registry,
		Metrics:           metrics,
		Pipeline:          p,
		auditReader:       auditWriter,
		rateLimitStore:    rateLimitStore,
		tracerShutdown:    tracerShutdown,
		cancelRateCleanup: cancelCleanup,
	}, nil
}

func newUpstream(ctx context.Context, settings *config.Settings) (outbound.UpstreamClient, error) {
	switch settings.UpstreamTransport {
	case "http":
		client, err := mcp.NewHTTPUpstream(settings.UpstreamURL)
		if err != nil {
			return nil, err
		}
		if err := client.Start(ctx); err != nil {
			return nil, err
		}
		return client, nil
	default:
		client, err := mcp.NewStdioUpstream(settings.UpstreamCmd)
		if err != nil {
			return nil, err
		}
		if err := client.Start(ctx); err != nil {
			return nil, err
		}
		return client, nil
	}
}

// AuditReader exposes the audit store's read side for the dashboard.
func (a *AppContext) AuditReader() *sqlstore.AuditWriter {
	return a.auditReader
}

// Close tears down every owned resource, logging (never failing) on
// individual errors so shutdown always completes.
func (a *AppContext) Close(ctx context.Context) {
	a.cancelRateCleanup()
	a.rateLimitStore.Stop()

	if err := a.Upstream.Close(); err != nil {
		a.Logger.Error("upstream close failed", "error", err)
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.Logger.Error("tracer shutdown failed", "error", err)
		}
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("database close failed", "error", err)
	}
}
