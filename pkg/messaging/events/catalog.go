// Package events holds the message payloads published to the broker.
package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/productcatalog/pkg/messaging"
)

var _ messaging.Event = CatalogEvent{}

// CatalogEvent is the broker representation of a catalog event.
// Fields that do not apply to Type are omitted from the payload.
type CatalogEvent struct {
	Prefix string `json:"-"`

	Type        string    `json:"type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ProductName string    `json:"product_name,omitempty"`

	Quantity          *int `json:"quantity,omitempty"`
	PurchasedQuantity *int `json:"purchased_quantity,omitempty"`
	RemainingQuantity *int `json:"remaining_quantity,omitempty"`
	OriginalQuantity  *int `json:"original_quantity,omitempty"`

	QueryType   string   `json:"query_type,omitempty"`
	ResultCount *int     `json:"result_count,omitempty"`
	DurationMs  *float64 `json:"duration_ms,omitempty"`

	Operation string `json:"operation,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Subject returns <prefix>.<type>.
func (e CatalogEvent) Subject() string {
	prefix := e.Prefix
	if prefix == "" {
		prefix = messaging.DefaultCatalogSubjectPrefix
	}
	return prefix + "." + e.Type
}

func (e CatalogEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
