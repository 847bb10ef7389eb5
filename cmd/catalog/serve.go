package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	_ "net/http/pprof"

	"github.com/abgdnv/productcatalog/internal/app"
	"github.com/abgdnv/productcatalog/internal/config"
	"github.com/abgdnv/productcatalog/pkg/bootstrap"
	"github.com/abgdnv/productcatalog/pkg/config/configloader"
	"github.com/abgdnv/productcatalog/pkg/telemetry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

func newServeCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP and gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := run(cmd.Context(), *configFile)
			if err == nil {
				log.Println("application stopped gracefully")
			}
			return err
		},
	}
}

// run loads the configuration, wires the catalog and serves it until ctx is cancelled.
func run(ctx context.Context, configFile string) error {
	cfg, cfgErr := configloader.LoadFile[*config.Config](serviceName, configFile)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	deps, err := app.SetupDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to set up dependencies: %w", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error("Failed to release dependencies", "error", err)
		}
	}()

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Telemetry.Enabled {
		tp, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("failed to create tracer provider: %w", err)
		}
		// flush pending spans on shutdown
		g.Go(func() error {
			<-gCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return tp.Shutdown(shutdownCtx)
		})
	}

	httpServer := app.SetupHttpServer(deps, cfg)
	serveHTTP(gCtx, g, logger, "HTTP", httpServer, cfg.Shutdown.Timeout)

	grpcServer := app.SetupGrpcServer(deps, cfg.GRPC.ReflectionEnabled)
	serveGRPC(gCtx, g, logger, grpcServer, ":"+cfg.GRPC.Port, cfg.Shutdown.Timeout)

	// probe the catalog and publish the gRPC serving status
	g.Go(func() error {
		return deps.Health.Run(gCtx)
	})

	if metricsServer := app.SetupMetricsServer(deps, cfg); metricsServer != nil {
		serveHTTP(gCtx, g, logger, "Metrics", metricsServer, cfg.Shutdown.Timeout)
	}

	if cfg.PProf.Enabled {
		pprofServer := &http.Server{
			Addr:              cfg.PProf.Addr,
			ReadHeaderTimeout: cfg.HTTPServer.Timeout.ReadHeader,
		}
		serveHTTP(gCtx, g, logger, "Pprof", pprofServer, cfg.Shutdown.Timeout)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// serveHTTP starts srv and shuts it down gracefully on context cancellation.
func serveHTTP(ctx context.Context, g *errgroup.Group, logger *slog.Logger, name string, srv *http.Server, timeout time.Duration) {
	g.Go(func() error {
		logger.Info(name+" server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server failed: %w", name, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down " + name + " server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// serveGRPC starts srv on addr and stops it gracefully on context cancellation,
// forcing the stop once timeout elapses.
func serveGRPC(ctx context.Context, g *errgroup.Group, logger *slog.Logger, srv *grpc.Server, addr string, timeout time.Duration) {
	g.Go(func() error {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC port: %w", err)
		}
		logger.Info("gRPC server listening", slog.String("addr", addr))
		return srv.Serve(lis)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down gRPC server...")
		stopped := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
			logger.Info("gRPC server stopped gracefully.")
			return nil
		case <-time.After(timeout):
			logger.Warn("gRPC server graceful stop timed out. Forcing stop.")
			srv.Stop()
			return fmt.Errorf("grpc server graceful stop timed out")
		}
	})
}
