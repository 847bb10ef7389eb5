package observers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/abgdnv/productcatalog/internal/events"
	"github.com/abgdnv/productcatalog/pkg/config"
	"github.com/abgdnv/productcatalog/pkg/messaging"
	msgevents "github.com/abgdnv/productcatalog/pkg/messaging/events"
	"github.com/sony/gobreaker/v2"
)

var _ events.Observer = (*PublisherObserver)(nil)

// PublisherConfig configures a PublisherObserver.
type PublisherConfig struct {
	// SubjectPrefix defaults to messaging.DefaultCatalogSubjectPrefix.
	SubjectPrefix string
	// Timeout bounds every publish. Zero disables the bound.
	Timeout time.Duration
	Breaker config.CircuitBreakerConfig
}

// PublisherObserver publishes catalog events to a message broker.
// Publishing is guarded by a circuit breaker; failures are logged and never reach the caller.
type PublisherObserver struct {
	publisher messaging.Publisher
	breaker   *gobreaker.CircuitBreaker[struct{}]
	prefix    string
	timeout   time.Duration
	logger    *slog.Logger
}

func NewPublisherObserver(publisher messaging.Publisher, cfg PublisherConfig, logger *slog.Logger) *PublisherObserver {
	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = messaging.DefaultCatalogSubjectPrefix
	}
	return &PublisherObserver{
		publisher: publisher,
		breaker:   newBreaker(cfg.Breaker, logger),
		prefix:    prefix,
		timeout:   cfg.Timeout,
		logger:    logger.With("component", "publisher"),
	}
}

func newBreaker(cfg config.CircuitBreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[struct{}] {
	st := gobreaker.Settings{
		Name:        "catalog-events-publisher",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if cfg.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= cfg.ConsecutiveFailures {
				return true
			}
			if counts.Requests < cfg.MinRequests || counts.Requests == 0 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests)*100 > float64(cfg.ErrorRatePercent)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return gobreaker.NewCircuitBreaker[struct{}](st)
}

// State returns the current state of the circuit breaker.
func (o *PublisherObserver) State() gobreaker.State {
	return o.breaker.State()
}

func (o *PublisherObserver) OnProductAdded(ctx context.Context, e events.ProductEvent) {
	o.publish(ctx, msgevents.CatalogEvent{
		Type:        messaging.CatalogProductAdded,
		EventID:     e.EventID,
		Timestamp:   e.Timestamp,
		ProductName: e.ProductName,
		Quantity:    ptr(e.Quantity),
	})
}

func (o *PublisherObserver) OnProductRemoved(ctx context.Context, e events.ProductEvent) {
	o.publish(ctx, msgevents.CatalogEvent{
		Type:        messaging.CatalogProductRemoved,
		EventID:     e.EventID,
		Timestamp:   e.Timestamp,
		ProductName: e.ProductName,
		Quantity:    ptr(e.Quantity),
	})
}

func (o *PublisherObserver) OnProductPurchased(ctx context.Context, e events.PurchaseEvent) {
	o.publish(ctx, msgevents.CatalogEvent{
		Type:              messaging.CatalogProductPurchased,
		EventID:           e.EventID,
		Timestamp:         e.Timestamp,
		ProductName:       e.ProductName,
		PurchasedQuantity: ptr(e.PurchasedQuantity),
		RemainingQuantity: ptr(e.RemainingQuantity),
		OriginalQuantity:  ptr(e.OriginalQuantity),
	})
}

func (o *PublisherObserver) OnOperationFailed(ctx context.Context, e events.ErrorEvent) {
	o.publish(ctx, msgevents.CatalogEvent{
		Type:        messaging.CatalogOperationFailed,
		EventID:     e.EventID,
		Timestamp:   e.Timestamp,
		ProductName: e.ProductName,
		Operation:   e.Operation,
		ErrorKind:   e.Kind,
		Message:     e.Message,
	})
}

func (o *PublisherObserver) OnProductsQueried(ctx context.Context, e events.QueryEvent) {
	o.publish(ctx, msgevents.CatalogEvent{
		Type:        messaging.CatalogProductsQueried,
		EventID:     e.EventID,
		Timestamp:   e.Timestamp,
		ProductName: e.ProductName,
		QueryType:   e.QueryType,
		ResultCount: ptr(e.ResultCount),
		DurationMs:  ptr(float64(e.Duration.Microseconds()) / 1000),
	})
}

func (o *PublisherObserver) publish(ctx context.Context, event msgevents.CatalogEvent) {
	event.Prefix = o.prefix
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	_, err := o.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, o.publisher.Publish(ctx, event)
	})
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		o.logger.WarnContext(ctx, "Event dropped, circuit breaker is open",
			"subject", event.Subject(),
			"event_id", event.EventID,
		)
	default:
		o.logger.ErrorContext(ctx, "Failed to publish event",
			"subject", event.Subject(),
			"event_id", event.EventID,
			"error", err,
		)
	}
}

func ptr[T any](v T) *T {
	return &v
}
