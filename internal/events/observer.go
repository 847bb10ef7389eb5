package events

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
)

// Observer receives catalog events. Callbacks run synchronously on the goroutine
// performing the operation; a panicking callback is recovered and logged.
type Observer interface {
	OnProductAdded(ctx context.Context, e ProductEvent)
	OnProductRemoved(ctx context.Context, e ProductEvent)
	OnProductPurchased(ctx context.Context, e PurchaseEvent)
	OnOperationFailed(ctx context.Context, e ErrorEvent)
	OnProductsQueried(ctx context.Context, e QueryEvent)
}

// Registry keeps observers in registration order and fans events out to them.
type Registry struct {
	mu        sync.RWMutex
	observers []Observer
	logger    *slog.Logger
}

// NewRegistry creates an empty Registry. Recovered observer panics are logged to logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger.With("component", "observers")}
}

// Add registers o. Adding an already registered observer is a no-op.
// Returns an InvalidArgument error if o is nil.
func (r *Registry) Add(o Observer) error {
	if isNil(o) {
		return perrors.NewInvalidArgument("observer", "Observer cannot be nil.")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.ContainsFunc(r.observers, func(existing Observer) bool { return same(existing, o) }) {
		return nil
	}
	r.observers = append(r.observers, o)
	return nil
}

// Remove unregisters o. Unknown and nil observers are ignored.
func (r *Registry) Remove(o Observer) {
	if isNil(o) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = slices.DeleteFunc(r.observers, func(existing Observer) bool { return same(existing, o) })
}

// Len returns the number of registered observers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.observers)
}

func (r *Registry) NotifyProductAdded(ctx context.Context, e ProductEvent) {
	r.each(ctx, "OnProductAdded", func(o Observer) { o.OnProductAdded(ctx, e) })
}

func (r *Registry) NotifyProductRemoved(ctx context.Context, e ProductEvent) {
	r.each(ctx, "OnProductRemoved", func(o Observer) { o.OnProductRemoved(ctx, e) })
}

func (r *Registry) NotifyProductPurchased(ctx context.Context, e PurchaseEvent) {
	r.each(ctx, "OnProductPurchased", func(o Observer) { o.OnProductPurchased(ctx, e) })
}

func (r *Registry) NotifyOperationFailed(ctx context.Context, e ErrorEvent) {
	r.each(ctx, "OnOperationFailed", func(o Observer) { o.OnOperationFailed(ctx, e) })
}

func (r *Registry) NotifyProductsQueried(ctx context.Context, e QueryEvent) {
	r.each(ctx, "OnProductsQueried", func(o Observer) { o.OnProductsQueried(ctx, e) })
}

// each delivers to a snapshot of the observers so callbacks may add or remove observers.
func (r *Registry) each(ctx context.Context, callback string, deliver func(Observer)) {
	r.mu.RLock()
	snapshot := slices.Clone(r.observers)
	r.mu.RUnlock()

	for _, o := range snapshot {
		r.safeDeliver(ctx, callback, o, deliver)
	}
}

func (r *Registry) safeDeliver(ctx context.Context, callback string, o Observer, deliver func(Observer)) {
	defer func() {
		if rvr := recover(); rvr != nil {
			r.logger.ErrorContext(ctx, "Observer failed",
				"observer", fmt.Sprintf("%T", o),
				"callback", callback,
				"panic", rvr,
			)
		}
	}()
	deliver(o)
}

func isNil(o Observer) bool {
	if o == nil {
		return true
	}
	v := reflect.ValueOf(o)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// same reports reference equality without panicking on non-comparable dynamic types.
func same(a, b Observer) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// NopObserver ignores every event. Embed it to implement only some callbacks.
type NopObserver struct{}

func (NopObserver) OnProductAdded(context.Context, ProductEvent) {}
func (NopObserver) OnProductRemoved(context.Context, ProductEvent) {}
func (NopObserver) OnProductPurchased(context.Context, PurchaseEvent) {}
func (NopObserver) OnOperationFailed(context.Context, ErrorEvent) {}
func (NopObserver) OnProductsQueried(context.Context, QueryEvent) {}
