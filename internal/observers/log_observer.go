// Package observers provides catalog event sinks: structured logs, Prometheus metrics and
// broker publication.
package observers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/abgdnv/productcatalog/internal/events"
	"github.com/abgdnv/productcatalog/pkg/bootstrap"
	"github.com/abgdnv/productcatalog/pkg/logger"
)

var _ events.Observer = (*LogObserver)(nil)

// LogObserver writes every catalog event as a structured log record.
// Mutations are logged at INFO, failures at ERROR and queries at DEBUG.
type LogObserver struct {
	logger *slog.Logger
	closer io.Closer
}

// NewLogObserver creates a LogObserver writing to l.
func NewLogObserver(l *slog.Logger) *LogObserver {
	return &LogObserver{logger: l}
}

// NewConsoleObserver creates a LogObserver writing text records to w.
func NewConsoleObserver(w io.Writer, level string) *LogObserver {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: bootstrap.ToLevel(level)})
	return NewLogObserver(slog.New(logger.NewContextHandler(h)))
}

// NewFileObserver creates a LogObserver appending one JSON object per event to the file at path.
// Missing parent directories are created. Close releases the file.
func NewFileObserver(path, level string) (*LogObserver, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	h := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: bootstrap.ToLevel(level)})
	o := NewLogObserver(slog.New(logger.NewContextHandler(h)))
	o.closer = f
	return o, nil
}

// Close closes the underlying file, if any.
func (o *LogObserver) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}

func (o *LogObserver) OnProductAdded(ctx context.Context, e events.ProductEvent) {
	o.logger.InfoContext(ctx, "Product added",
		"event_id", e.EventID,
		"product", e.ProductName,
		"quantity", e.Quantity,
	)
}

func (o *LogObserver) OnProductRemoved(ctx context.Context, e events.ProductEvent) {
	o.logger.InfoContext(ctx, "Product removed",
		"event_id", e.EventID,
		"product", e.ProductName,
		"quantity", e.Quantity,
	)
}

func (o *LogObserver) OnProductPurchased(ctx context.Context, e events.PurchaseEvent) {
	o.logger.InfoContext(ctx, "Product purchased",
		"event_id", e.EventID,
		"product", e.ProductName,
		"purchased", e.PurchasedQuantity,
		"remaining", e.RemainingQuantity,
		"original", e.OriginalQuantity,
	)
}

func (o *LogObserver) OnOperationFailed(ctx context.Context, e events.ErrorEvent) {
	attrs := []any{
		"event_id", e.EventID,
		"operation", e.Operation,
		"kind", e.Kind,
		"error", e.Message,
	}
	if e.ProductName != "" {
		attrs = append(attrs, "product", e.ProductName)
	}
	o.logger.ErrorContext(ctx, "Operation failed", attrs...)
}

func (o *LogObserver) OnProductsQueried(ctx context.Context, e events.QueryEvent) {
	attrs := []any{
		"event_id", e.EventID,
		"query_type", e.QueryType,
		"results", e.ResultCount,
		"duration_ms", float64(e.Duration.Microseconds()) / 1000,
	}
	if e.ProductName != "" {
		attrs = append(attrs, "product", e.ProductName)
	}
	o.logger.DebugContext(ctx, "Products queried", attrs...)
}
