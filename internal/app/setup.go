// Package app wires the catalog engine, its observers and its transports.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/abgdnv/productcatalog/internal/config"
	"github.com/abgdnv/productcatalog/internal/diagnostics"
	"github.com/abgdnv/productcatalog/internal/observers"
	"github.com/abgdnv/productcatalog/internal/service"
	"github.com/abgdnv/productcatalog/internal/store"
	grpcImpl "github.com/abgdnv/productcatalog/internal/transport/grpc"
	"github.com/abgdnv/productcatalog/internal/transport/rest"
	"github.com/abgdnv/productcatalog/pkg/messaging"
	natsclient "github.com/abgdnv/productcatalog/pkg/nats"
	"github.com/abgdnv/productcatalog/pkg/server"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
)

const serviceName = "catalog"

type Dependencies struct {
	Catalog *service.Service
	// Diagnostics is nil when the diagnostics observer is disabled.
	Diagnostics *diagnostics.Collector
	// Metrics is nil when metrics are disabled.
	Metrics *prometheus.Registry
	Health  *grpcImpl.HealthChecker
	Logger  *slog.Logger

	closers []func() error
}

// Close releases the storage connection and the observer resources in reverse order of creation.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	d.closers = nil
	return errors.Join(errs...)
}

func (d *Dependencies) onClose(fn func() error) {
	d.closers = append(d.closers, fn)
}

// SetupDependencies builds the store selected by cfg.Storage, the catalog engine and the
// configured observers. Console output goes to stdout. Close must be called on success.
func SetupDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	return setupDependencies(ctx, cfg, logger, os.Stdout)
}

func setupDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger, console io.Writer) (*Dependencies, error) {
	st, closeStore, err := store.New(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create product store: %w", err)
	}
	catalog := service.NewService(st, logger)
	deps := &Dependencies{
		Catalog: catalog,
		Health:  grpcImpl.NewHealthChecker(catalog, cfg.GRPC.HealthInterval, logger),
		Logger:  logger,
	}
	deps.onClose(func() error {
		closeStore()
		return nil
	})

	if err := attachObservers(ctx, deps, cfg, console); err != nil {
		_ = deps.Close()
		return nil, err
	}
	return deps, nil
}

func attachObservers(ctx context.Context, deps *Dependencies, cfg *config.Config, console io.Writer) error {
	oCfg := cfg.Observers
	if oCfg.Console.Enabled {
		if err := deps.Catalog.AddObserver(observers.NewConsoleObserver(console, oCfg.Console.Level)); err != nil {
			return err
		}
	}
	if oCfg.File.Enabled {
		fileObserver, err := observers.NewFileObserver(oCfg.File.Path, oCfg.File.Level)
		if err != nil {
			return err
		}
		deps.onClose(fileObserver.Close)
		if err := deps.Catalog.AddObserver(fileObserver); err != nil {
			return err
		}
	}
	if oCfg.Diagnostics {
		deps.Diagnostics = diagnostics.NewCollector()
		if err := deps.Catalog.AddObserver(deps.Diagnostics); err != nil {
			return err
		}
	}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metricsObserver, err := observers.NewMetricsObserver(reg)
		if err != nil {
			return err
		}
		deps.Metrics = reg
		if err := deps.Catalog.AddObserver(metricsObserver); err != nil {
			return err
		}
	}
	if oCfg.Publisher {
		publisher, err := newPublisher(ctx, deps, cfg)
		if err != nil {
			return err
		}
		publisherObserver := observers.NewPublisherObserver(publisher, observers.PublisherConfig{
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			Timeout:       cfg.NATS.PublishTimeout,
			Breaker:       cfg.CircuitBreaker,
		}, deps.Logger)
		if err := deps.Catalog.AddObserver(publisherObserver); err != nil {
			return err
		}
	}
	return nil
}

// newPublisher connects to NATS and makes sure the event stream exists.
func newPublisher(ctx context.Context, deps *Dependencies, cfg *config.Config) (messaging.Publisher, error) {
	nc, err := natsclient.NewClient(cfg.NATS.Url, cfg.NATS.Timeout)
	if err != nil {
		return nil, err
	}
	deps.onClose(func() error {
		return nc.Drain()
	})
	js, err := natsclient.NewJetStreamContext(nc)
	if err != nil {
		return nil, err
	}
	streamCtx, cancel := context.WithTimeout(ctx, cfg.NATS.Timeout)
	defer cancel()
	if _, err := natsclient.EnsureStream(streamCtx, js, cfg.NATS.Stream, cfg.NATS.SubjectPrefix); err != nil {
		return nil, err
	}
	deps.Logger.Info("Successfully connected to NATS", slog.String("stream", cfg.NATS.Stream))
	return natsclient.NewNatsPublisher(js), nil
}

// SetupHttpHandler builds the traced HTTP handler of the catalog API.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return otelhttp.NewHandler(mux, serviceName)
}

// wireRoutes sets up the HTTP routes of the catalog API.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	var diag rest.Diagnostics
	if deps.Diagnostics != nil {
		diag = deps.Diagnostics
	}
	rest.NewHandler(deps.Catalog, diag, deps.Logger).RegisterRoutes(mux)
}

// SetupHttpServer creates and configures the HTTP server of the catalog API.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(server.HTTPConfigFrom(cfg.HTTPServer), SetupHttpHandler(deps))
}

// SetupGrpcServer initializes the gRPC server exposing the health service.
func SetupGrpcServer(deps *Dependencies, reflectionEnabled bool) *grpc.Server {
	return server.NewGRPCServer(reflectionEnabled, deps.Health.Registration())
}

// SetupMetricsServer creates the server exposing the Prometheus registry, or nil when
// metrics are disabled.
func SetupMetricsServer(deps *Dependencies, cfg *config.Config) *http.Server {
	if deps.Metrics == nil {
		return nil
	}
	mux := chi.NewRouter()
	mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.HTTPServer.Timeout.ReadHeader,
	}
}
