// Package grpc exposes the catalog health over the standard gRPC health protocol.
package grpc

import (
	"context"
	"log/slog"
	"time"

	"github.com/abgdnv/productcatalog/pkg/server"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported for the catalog.
const ServiceName = "productcatalog"

// ProductCounter is the part of the catalog the health probe exercises.
type ProductCounter interface {
	GetProductCount(ctx context.Context) (int, error)
}

// HealthChecker periodically probes the catalog and publishes the result through
// a grpc health server, both for ServiceName and for the server as a whole.
type HealthChecker struct {
	health   *health.Server
	catalog  ProductCounter
	interval time.Duration
	logger   *slog.Logger
}

func NewHealthChecker(catalog ProductCounter, interval time.Duration, logger *slog.Logger) *HealthChecker {
	h := health.NewServer()
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthChecker{
		health:   h,
		catalog:  catalog,
		interval: interval,
		logger:   logger.With("component", "grpc-health"),
	}
}

// Registration returns the function registering the health service on a gRPC server.
func (c *HealthChecker) Registration() server.RegistrationFunc {
	return func(s *grpc.Server) {
		healthpb.RegisterHealthServer(s, c.health)
	}
}

// Check probes the catalog once and updates the serving status.
func (c *HealthChecker) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, c.interval)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if _, err := c.catalog.GetProductCount(ctx); err != nil {
		c.logger.WarnContext(ctx, "Catalog health probe failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	c.health.SetServingStatus(ServiceName, status)
	c.health.SetServingStatus("", status)
	return status
}

// Run probes the catalog every interval until ctx is done, then marks every service NOT_SERVING.
func (c *HealthChecker) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			c.health.Shutdown()
			return nil
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}
