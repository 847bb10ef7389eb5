// Package diagnostics aggregates catalog events into counters and query latency statistics.
package diagnostics

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/abgdnv/productcatalog/internal/events"
)

// Operation counter labels.
const (
	LabelProductAdded     = "ProductAdded"
	LabelProductRemoved   = "ProductRemoved"
	LabelProductPurchased = "ProductPurchased"
	LabelProductsQueried  = "ProductsQueried"
	failedLabelPrefix     = "Failed_"
)

var _ events.Observer = (*Collector)(nil)

// Collector is an observer that aggregates every event it receives.
// It is safe for concurrent use.
type Collector struct {
	mu              sync.Mutex
	now             func() time.Time
	startTime       time.Time
	totalOperations int64
	totalErrors     int64
	operationCounts map[string]int64
	errorCounts     map[string]int64
	productAccess   map[string]int64
	queryTimesMs    []float64
}

// Option configures a Collector.
type Option func(*Collector)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		c.now = now
	}
}

// NewCollector creates an empty Collector whose uptime starts now.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.clear()
	return c
}

func (c *Collector) OnProductAdded(_ context.Context, e events.ProductEvent) {
	c.operation(LabelProductAdded, e.ProductName)
}

func (c *Collector) OnProductRemoved(_ context.Context, e events.ProductEvent) {
	c.operation(LabelProductRemoved, e.ProductName)
}

func (c *Collector) OnProductPurchased(_ context.Context, e events.PurchaseEvent) {
	c.operation(LabelProductPurchased, e.ProductName)
}

func (c *Collector) OnOperationFailed(_ context.Context, e events.ErrorEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalErrors++
	c.errorCounts[e.Kind]++
	c.operationCounts[failedLabelPrefix+e.Operation]++
	c.access(e.ProductName)
}

func (c *Collector) OnProductsQueried(_ context.Context, e events.QueryEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalOperations++
	c.operationCounts[LabelProductsQueried]++
	c.queryTimesMs = append(c.queryTimesMs, float64(e.Duration)/float64(time.Millisecond))
	c.access(e.ProductName)
}

// Report returns a point-in-time copy of the aggregated state.
func (c *Collector) Report() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	uptime := c.now().Sub(c.startTime)
	return Report{
		StartTime:           c.startTime,
		Uptime:              uptime,
		UptimeSeconds:       uptime.Seconds(),
		TotalOperations:     c.totalOperations,
		TotalErrors:         c.totalErrors,
		OperationCounts:     maps.Clone(c.operationCounts),
		ErrorCounts:         maps.Clone(c.errorCounts),
		ProductAccessCounts: maps.Clone(c.productAccess),
		QueryStats:          newQueryStats(c.queryTimesMs),
	}
}

// Reset clears every counter and restarts the uptime clock.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clear()
}

// Summary renders the current report as text.
func (c *Collector) Summary() string {
	return c.Report().Summary()
}

func (c *Collector) operation(label, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalOperations++
	c.operationCounts[label]++
	c.access(name)
}

// access counts name as carried by the event, without case folding.
// It must be called with c.mu held.
func (c *Collector) access(name string) {
	if name != "" {
		c.productAccess[name]++
	}
}

// clear must be called with c.mu held.
func (c *Collector) clear() {
	c.startTime = c.now().UTC()
	c.totalOperations = 0
	c.totalErrors = 0
	c.operationCounts = make(map[string]int64)
	c.errorCounts = make(map[string]int64)
	c.productAccess = make(map[string]int64)
	c.queryTimesMs = nil
}

// QueryStats summarises query latencies in milliseconds.
type QueryStats struct {
	TotalQueries int     `json:"total_queries"`
	AverageMs    float64 `json:"average_ms"`
	MinMs        float64 `json:"min_ms"`
	MaxMs        float64 `json:"max_ms"`
	MedianMs     float64 `json:"median_ms"`
}

func newQueryStats(samples []float64) QueryStats {
	if len(samples) == 0 {
		return QueryStats{}
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	n := len(sorted)
	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return QueryStats{
		TotalQueries: n,
		AverageMs:    sum / float64(n),
		MinMs:        sorted[0],
		MaxMs:        sorted[n-1],
		MedianMs:     median,
	}
}
