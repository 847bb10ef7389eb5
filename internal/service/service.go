// Package service implements the catalog engine: validation, storage and event fan-out.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/abgdnv/productcatalog/internal/events"
	"github.com/abgdnv/productcatalog/internal/product"
	"github.com/abgdnv/productcatalog/internal/store"
)

// Operation labels carried by failure and query events.
const (
	OpAddProduct             = "AddProduct"
	OpRemoveProduct          = "RemoveProduct"
	OpPurchaseProduct        = "PurchaseProduct"
	OpGetProduct             = "GetProduct"
	OpListProductsByQuantity = "ListProductsByQuantity"
	OpSearchByCategory       = "SearchByCategory"
	OpSearchByTag            = "SearchByTag"
	OpSearchByTags           = "SearchByTags"
	OpGetAllCategories       = "GetAllCategories"
	OpGetAllTags             = "GetAllTags"
)

// CatalogService defines the operations of the product catalog.
//
// Invalid arguments fail with ErrInvalidArgument before anything is observed. Every other
// outcome is reported to the registered observers exactly once before the method returns.
type CatalogService interface {
	// AddProduct stores a new product and returns it as stored.
	// Returns ErrProductAlreadyExists if the name is taken, ignoring case.
	AddProduct(ctx context.Context, name string, quantity int, category string, tags []string) (product.Product, error)

	// RemoveProduct deletes a product and returns it as it was before removal.
	// Returns ErrProductNotFound if no product has the given name.
	RemoveProduct(ctx context.Context, name string) (product.Product, error)

	// PurchaseProduct decrements the stock of a product.
	// Returns ErrProductNotFound or ErrInsufficientQuantity; stock is unchanged on failure.
	PurchaseProduct(ctx context.Context, name string, quantity int) (store.PurchaseResult, error)

	// GetProduct retrieves a product by name, ignoring case.
	GetProduct(ctx context.Context, name string) (product.Product, error)

	// ListProductsByQuantity returns every product, highest quantity first.
	ListProductsByQuantity(ctx context.Context) ([]product.Product, error)

	// GetProductCount returns the number of products. It emits no event.
	GetProductCount(ctx context.Context) (int, error)

	SearchByCategory(ctx context.Context, category string) ([]product.Product, error)
	SearchByTag(ctx context.Context, tag string) ([]product.Product, error)
	// SearchByTags returns the products carrying any of tags.
	SearchByTags(ctx context.Context, tags []string) ([]product.Product, error)

	GetAllCategories(ctx context.Context) ([]string, error)
	GetAllTags(ctx context.Context) ([]string, error)

	// AddObserver registers o. Returns ErrInvalidArgument if o is nil.
	AddObserver(o events.Observer) error
	// RemoveObserver unregisters o; unknown or nil observers are ignored.
	RemoveObserver(o events.Observer)
}

var _ CatalogService = (*Service)(nil)

// Service implements CatalogService on top of a ProductStore.
type Service struct {
	store     store.ProductStore
	observers *events.Registry
	logger    *slog.Logger
}

// NewService creates a new catalog engine backed by s.
func NewService(s store.ProductStore, logger *slog.Logger) *Service {
	logger = logger.With("component", "catalog")
	return &Service{
		store:     s,
		observers: events.NewRegistry(logger),
		logger:    logger,
	}
}

func (s *Service) AddProduct(ctx context.Context, name string, quantity int, category string, tags []string) (product.Product, error) {
	p, err := product.New(name, quantity, category, tags)
	if err != nil {
		return product.Product{}, err
	}
	if err := s.store.Create(ctx, p); err != nil {
		return product.Product{}, s.fail(ctx, OpAddProduct, err, p.Name)
	}
	s.logger.DebugContext(ctx, "Product added", "product", p.Name, "quantity", p.Quantity)
	s.observers.NotifyProductAdded(ctx, events.NewProductEvent(p.Name, p.Quantity, events.OperationAdded))
	return p.Clone(), nil
}

func (s *Service) RemoveProduct(ctx context.Context, name string) (product.Product, error) {
	n, err := product.NormalizeName(name)
	if err != nil {
		return product.Product{}, err
	}
	removed, err := s.store.Delete(ctx, n)
	if err != nil {
		return product.Product{}, s.fail(ctx, OpRemoveProduct, err, n)
	}
	s.logger.DebugContext(ctx, "Product removed", "product", removed.Name)
	s.observers.NotifyProductRemoved(ctx, events.NewProductEvent(removed.Name, removed.Quantity, events.OperationRemoved))
	return removed, nil
}

func (s *Service) PurchaseProduct(ctx context.Context, name string, quantity int) (store.PurchaseResult, error) {
	n, err := product.NormalizeName(name)
	if err != nil {
		return store.PurchaseResult{}, err
	}
	if err := product.ValidatePurchaseQuantity(quantity); err != nil {
		return store.PurchaseResult{}, err
	}
	result, err := s.store.Purchase(ctx, n, quantity)
	if err != nil {
		return store.PurchaseResult{}, s.fail(ctx, OpPurchaseProduct, err, n)
	}
	s.logger.DebugContext(ctx, "Product purchased", "product", result.Product, "quantity", quantity, "remaining", result.Remaining)
	s.observers.NotifyProductPurchased(ctx, events.NewPurchaseEvent(result.Product, quantity, result.Remaining, result.Original))
	return result, nil
}

func (s *Service) GetProduct(ctx context.Context, name string) (product.Product, error) {
	n, err := product.NormalizeName(name)
	if err != nil {
		return product.Product{}, err
	}
	start := time.Now()
	p, err := s.store.FindByName(ctx, n)
	if err != nil {
		return product.Product{}, s.fail(ctx, OpGetProduct, err, n)
	}
	s.queried(ctx, OpGetProduct, 1, start, p.Name)
	return p, nil
}

func (s *Service) ListProductsByQuantity(ctx context.Context) ([]product.Product, error) {
	start := time.Now()
	products, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, s.fail(ctx, OpListProductsByQuantity, err, "")
	}
	s.queried(ctx, OpListProductsByQuantity, len(products), start, "")
	return products, nil
}

func (s *Service) GetProductCount(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

func (s *Service) SearchByCategory(ctx context.Context, category string) ([]product.Product, error) {
	c, err := product.ValidateCategory(category)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	products, err := s.store.FindByCategory(ctx, c)
	if err != nil {
		return nil, s.fail(ctx, OpSearchByCategory, err, "")
	}
	s.queried(ctx, OpSearchByCategory, len(products), start, "")
	return products, nil
}

func (s *Service) SearchByTag(ctx context.Context, tag string) ([]product.Product, error) {
	t, err := product.ValidateTag(tag)
	if err != nil {
		return nil, err
	}
	return s.searchByTags(ctx, OpSearchByTag, []string{t})
}

func (s *Service) SearchByTags(ctx context.Context, tags []string) ([]product.Product, error) {
	valid, err := product.ValidateTags(tags)
	if err != nil {
		return nil, err
	}
	return s.searchByTags(ctx, OpSearchByTags, valid)
}

func (s *Service) searchByTags(ctx context.Context, op string, tags []string) ([]product.Product, error) {
	start := time.Now()
	products, err := s.store.FindByTags(ctx, tags)
	if err != nil {
		return nil, s.fail(ctx, op, err, "")
	}
	s.queried(ctx, op, len(products), start, "")
	return products, nil
}

func (s *Service) GetAllCategories(ctx context.Context) ([]string, error) {
	start := time.Now()
	categories, err := s.store.Categories(ctx)
	if err != nil {
		return nil, s.fail(ctx, OpGetAllCategories, err, "")
	}
	s.queried(ctx, OpGetAllCategories, len(categories), start, "")
	return categories, nil
}

func (s *Service) GetAllTags(ctx context.Context) ([]string, error) {
	start := time.Now()
	tags, err := s.store.Tags(ctx)
	if err != nil {
		return nil, s.fail(ctx, OpGetAllTags, err, "")
	}
	s.queried(ctx, OpGetAllTags, len(tags), start, "")
	return tags, nil
}

func (s *Service) AddObserver(o events.Observer) error {
	return s.observers.Add(o)
}

func (s *Service) RemoveObserver(o events.Observer) {
	s.observers.Remove(o)
}

// fail reports err to the observers and returns it unchanged.
func (s *Service) fail(ctx context.Context, op string, err error, name string) error {
	s.logger.DebugContext(ctx, "Catalog operation failed", "operation", op, "product", name, "error", err)
	s.observers.NotifyOperationFailed(ctx, events.NewErrorEvent(op, err, name))
	return err
}

func (s *Service) queried(ctx context.Context, op string, count int, start time.Time, name string) {
	s.observers.NotifyProductsQueried(ctx, events.NewQueryEvent(op, count, time.Since(start), name))
}
