package diagnostics

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// topProducts bounds the product list of the summary.
const topProducts = 10

// Report is a snapshot of a Collector.
type Report struct {
	StartTime           time.Time        `json:"start_time"`
	Uptime              time.Duration    `json:"-"`
	UptimeSeconds       float64          `json:"uptime_seconds"`
	TotalOperations     int64            `json:"total_operations"`
	TotalErrors         int64            `json:"total_errors"`
	OperationCounts     map[string]int64 `json:"operation_counts"`
	ErrorCounts         map[string]int64 `json:"error_counts"`
	ProductAccessCounts map[string]int64 `json:"product_access_counts"`
	QueryStats          QueryStats       `json:"query_stats"`
}

// SuccessRate is the percentage of operations that did not fail, 100 without operations.
func (r Report) SuccessRate() float64 {
	if r.TotalOperations == 0 {
		return 100
	}
	return (1 - float64(r.TotalErrors)/float64(r.TotalOperations)) * 100
}

// Summary renders the report as text. Sections without data are omitted;
// counts are listed by descending value, ties by key.
func (r Report) Summary() string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	b.WriteString("=== Product Catalog Diagnostics Summary ===\n")
	b.WriteString(fmt.Sprintf("Uptime: %s\n", formatUptime(r.Uptime)))
	b.WriteString(p.Sprintf("Total Operations: %d\n", r.TotalOperations))
	b.WriteString(p.Sprintf("Total Errors: %d\n", r.TotalErrors))
	b.WriteString(fmt.Sprintf("Success Rate: %.2f%%\n", r.SuccessRate()))
	b.WriteString("\n")

	if len(r.OperationCounts) > 0 {
		b.WriteString("Operation Counts:\n")
		for _, kv := range byCount(r.OperationCounts) {
			b.WriteString(p.Sprintf("  %s: %d\n", kv.key, kv.count))
		}
		b.WriteString("\n")
	}

	if len(r.ErrorCounts) > 0 {
		b.WriteString("Error Types:\n")
		for _, kv := range byCount(r.ErrorCounts) {
			b.WriteString(p.Sprintf("  %s: %d\n", kv.key, kv.count))
		}
		b.WriteString("\n")
	}

	if q := r.QueryStats; q.TotalQueries > 0 {
		b.WriteString("Query Performance:\n")
		b.WriteString(p.Sprintf("  Total Queries: %d\n", q.TotalQueries))
		b.WriteString(fmt.Sprintf("  Average Time: %.2fms\n", q.AverageMs))
		b.WriteString(fmt.Sprintf("  Min Time: %.2fms\n", q.MinMs))
		b.WriteString(fmt.Sprintf("  Max Time: %.2fms\n", q.MaxMs))
		b.WriteString(fmt.Sprintf("  Median Time: %.2fms\n", q.MedianMs))
		b.WriteString("\n")
	}

	if len(r.ProductAccessCounts) > 0 {
		b.WriteString("Top Accessed Products:\n")
		top := byCount(r.ProductAccessCounts)
		if len(top) > topProducts {
			top = top[:topProducts]
		}
		for _, kv := range top {
			b.WriteString(p.Sprintf("  %s: %d accesses\n", kv.key, kv.count))
		}
	}

	return b.String()
}

type keyCount struct {
	key   string
	count int64
}

func byCount(m map[string]int64) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, v := range m {
		out = append(out, keyCount{key: k, count: v})
	}
	slices.SortFunc(out, func(a, b keyCount) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.key, b.key)
	})
	return out
}

// formatUptime renders d as dd.hh:mm:ss.
func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	seconds := total % 60
	return fmt.Sprintf("%02d.%02d:%02d:%02d", days, hours, minutes, seconds)
}
