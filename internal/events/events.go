// Package events defines the records the catalog engine emits and the observers that receive them.
package events

import (
	"strings"
	"time"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/google/uuid"
)

// Operation labels carried by product events.
const (
	OperationAdded   = "Added"
	OperationRemoved = "Removed"
)

// Meta is shared by every event record.
type Meta struct {
	// EventID is a short correlation id, unique per event.
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
}

func newMeta() Meta {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return Meta{EventID: id[:8], Timestamp: time.Now().UTC()}
}

// ProductEvent describes a product being added or removed.
type ProductEvent struct {
	Meta
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Operation   string `json:"operation"`
}

// PurchaseEvent describes a successful purchase.
type PurchaseEvent struct {
	Meta
	ProductName       string `json:"product_name"`
	PurchasedQuantity int    `json:"purchased_quantity"`
	RemainingQuantity int    `json:"remaining_quantity"`
	OriginalQuantity  int    `json:"original_quantity"`
}

// QueryEvent describes a completed read operation.
type QueryEvent struct {
	Meta
	QueryType   string        `json:"query_type"`
	ResultCount int           `json:"result_count"`
	Duration    time.Duration `json:"duration"`
	// ProductName is empty for queries that do not target a single product.
	ProductName string `json:"product_name,omitempty"`
}

// ErrorEvent describes an operation that failed against catalog state or storage.
type ErrorEvent struct {
	Meta
	Operation   string `json:"operation"`
	Message     string `json:"message"`
	Kind        string `json:"kind"`
	ProductName string `json:"product_name,omitempty"`
}

func NewProductEvent(name string, quantity int, operation string) ProductEvent {
	return ProductEvent{Meta: newMeta(), ProductName: name, Quantity: quantity, Operation: operation}
}

func NewPurchaseEvent(name string, purchased, remaining, original int) PurchaseEvent {
	return PurchaseEvent{
		Meta:              newMeta(),
		ProductName:       name,
		PurchasedQuantity: purchased,
		RemainingQuantity: remaining,
		OriginalQuantity:  original,
	}
}

func NewQueryEvent(queryType string, resultCount int, duration time.Duration, name string) QueryEvent {
	return QueryEvent{Meta: newMeta(), QueryType: queryType, ResultCount: resultCount, Duration: duration, ProductName: name}
}

// NewErrorEvent builds an ErrorEvent from err, classifying it with the catalog error taxonomy.
func NewErrorEvent(operation string, err error, name string) ErrorEvent {
	return ErrorEvent{
		Meta:        newMeta(),
		Operation:   operation,
		Message:     err.Error(),
		Kind:        perrors.KindOf(err).String(),
		ProductName: name,
	}
}
