package observers

import (
	"context"
	"fmt"

	"github.com/abgdnv/productcatalog/internal/diagnostics"
	"github.com/abgdnv/productcatalog/internal/events"
	"github.com/prometheus/client_golang/prometheus"
)

var _ events.Observer = (*MetricsObserver)(nil)

const metricsNamespace = "catalog"

// MetricsObserver exports catalog events as Prometheus metrics.
type MetricsObserver struct {
	operations    *prometheus.CounterVec
	failures      *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	purchased     prometheus.Counter
}

// NewMetricsObserver creates the catalog metrics and registers them on reg.
func NewMetricsObserver(reg prometheus.Registerer) (*MetricsObserver, error) {
	m := &MetricsObserver{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "operations_total",
			Help:      "Catalog operations that completed, by operation.",
		}, []string{"operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "operation_failures_total",
			Help:      "Catalog operations that failed, by operation and error kind.",
		}, []string{"operation", "kind"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "query_duration_seconds",
			Help:      "Duration of catalog queries.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"query_type"}),
		purchased: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "purchased_units_total",
			Help:      "Units sold through successful purchases.",
		}),
	}
	for _, c := range []prometheus.Collector{m.operations, m.failures, m.queryDuration, m.purchased} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register catalog metrics: %w", err)
		}
	}
	return m, nil
}

func (m *MetricsObserver) OnProductAdded(_ context.Context, _ events.ProductEvent) {
	m.operations.WithLabelValues(diagnostics.LabelProductAdded).Inc()
}

func (m *MetricsObserver) OnProductRemoved(_ context.Context, _ events.ProductEvent) {
	m.operations.WithLabelValues(diagnostics.LabelProductRemoved).Inc()
}

func (m *MetricsObserver) OnProductPurchased(_ context.Context, e events.PurchaseEvent) {
	m.operations.WithLabelValues(diagnostics.LabelProductPurchased).Inc()
	m.purchased.Add(float64(e.PurchasedQuantity))
}

func (m *MetricsObserver) OnOperationFailed(_ context.Context, e events.ErrorEvent) {
	m.failures.WithLabelValues(e.Operation, e.Kind).Inc()
}

func (m *MetricsObserver) OnProductsQueried(_ context.Context, e events.QueryEvent) {
	m.operations.WithLabelValues(diagnostics.LabelProductsQueried).Inc()
	m.queryDuration.WithLabelValues(e.QueryType).Observe(e.Duration.Seconds())
}
