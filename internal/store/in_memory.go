package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/abgdnv/productcatalog/internal/product"
)

var _ ProductStore = (*InMemoryStore)(nil)

// InMemoryStore keeps products in a map keyed by the lower-cased name.
type InMemoryStore struct {
	mu       sync.RWMutex
	products map[string]entry
	nextSeq  uint64
}

// entry remembers insertion order so listings resolve casing variants to the first one added.
type entry struct {
	product.Product
	seq uint64
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		products: make(map[string]entry),
	}
}

func (s *InMemoryStore) Create(_ context.Context, p product.Product) error {
	p, err := product.New(p.Name, p.Quantity, p.Category, p.Tags)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.products[p.Key()]; exists {
		return perrors.NewAlreadyExists(p.Name)
	}
	s.nextSeq++
	s.products[p.Key()] = entry{Product: p, seq: s.nextSeq}
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, name string) (product.Product, error) {
	n, err := product.NormalizeName(name)
	if err != nil {
		return product.Product{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.products[product.Key(n)]
	if !ok {
		return product.Product{}, perrors.NewNotFound(n)
	}
	delete(s.products, product.Key(n))
	return e.Clone(), nil
}

// Purchase decrements the stored quantity in place while holding the write lock.
func (s *InMemoryStore) Purchase(_ context.Context, name string, quantity int) (PurchaseResult, error) {
	n, err := product.NormalizeName(name)
	if err != nil {
		return PurchaseResult{}, err
	}
	if err := product.ValidatePurchaseQuantity(quantity); err != nil {
		return PurchaseResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.products[product.Key(n)]
	if !ok {
		return PurchaseResult{}, perrors.NewNotFound(n)
	}
	if quantity > e.Quantity {
		return PurchaseResult{}, perrors.NewInsufficientQuantity(e.Name, e.Quantity, quantity)
	}
	original := e.Quantity
	e.Quantity -= quantity
	s.products[e.Key()] = e
	return PurchaseResult{Product: e.Name, Original: original, Remaining: e.Quantity}, nil
}

func (s *InMemoryStore) FindByName(_ context.Context, name string) (product.Product, error) {
	n, err := product.NormalizeName(name)
	if err != nil {
		return product.Product{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.products[product.Key(n)]
	if !ok {
		return product.Product{}, perrors.NewNotFound(n)
	}
	return e.Clone(), nil
}

func (s *InMemoryStore) FindAll(_ context.Context) ([]product.Product, error) {
	return s.filter(func(product.Product) bool { return true }), nil
}

func (s *InMemoryStore) FindByCategory(_ context.Context, category string) ([]product.Product, error) {
	c, err := product.ValidateCategory(category)
	if err != nil {
		return nil, err
	}
	return s.filter(func(p product.Product) bool { return p.InCategory(c) }), nil
}

func (s *InMemoryStore) FindByTags(_ context.Context, tags []string) ([]product.Product, error) {
	valid, err := product.ValidateTags(tags)
	if err != nil {
		return nil, err
	}
	return s.filter(func(p product.Product) bool { return p.HasAnyTag(valid) }), nil
}

func (s *InMemoryStore) Categories(_ context.Context) ([]string, error) {
	return product.Categories(s.snapshot()), nil
}

func (s *InMemoryStore) Tags(_ context.Context) ([]string, error) {
	return product.Tags(s.snapshot()), nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products), nil
}

// snapshot returns the stored products in insertion order without copying their tags;
// callers must not mutate them.
func (s *InMemoryStore) snapshot() []product.Product {
	s.mu.RLock()
	entries := make([]entry, 0, len(s.products))
	for _, e := range s.products {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	slices.SortFunc(entries, func(a, b entry) int { return cmp.Compare(a.seq, b.seq) })
	out := make([]product.Product, len(entries))
	for i, e := range entries {
		out[i] = e.Product
	}
	return out
}

func (s *InMemoryStore) filter(keep func(product.Product) bool) []product.Product {
	return product.Filter(s.snapshot(), keep)
}
