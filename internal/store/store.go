// Package store provides the storage backends behind the catalog engine.
package store

import (
	"context"

	"github.com/abgdnv/productcatalog/internal/product"
)

// ProductStore is an interface for product storage operations.
// Every implementation applies the product normalisation rules, returns the errors of the
// catalog taxonomy on the same conditions and lists products in catalog order, so
// implementations are interchangeable.
type ProductStore interface {
	// Create adds a new product.
	// Returns ErrProductAlreadyExists if a product with the same name, ignoring case, exists.
	Create(ctx context.Context, p product.Product) error

	// Delete removes a product by name and returns it as it was before removal.
	// Returns ErrProductNotFound if no product has the given name.
	Delete(ctx context.Context, name string) (product.Product, error)

	// Purchase decrements the quantity of a product.
	// Returns ErrProductNotFound if no product has the given name and
	// ErrInsufficientQuantity, leaving the product unchanged, if quantity exceeds the stock.
	Purchase(ctx context.Context, name string, quantity int) (PurchaseResult, error)

	// FindByName retrieves a product by name, ignoring case.
	// Returns ErrProductNotFound if no product has the given name.
	FindByName(ctx context.Context, name string) (product.Product, error)

	// FindAll returns all products in catalog order.
	// Returns an empty slice if the catalog is empty.
	FindAll(ctx context.Context) ([]product.Product, error)

	// FindByCategory returns the products of a category, ignoring case, in catalog order.
	FindByCategory(ctx context.Context, category string) ([]product.Product, error)

	// FindByTags returns the products carrying any of the tags, in catalog order.
	FindByTags(ctx context.Context, tags []string) ([]product.Product, error)

	// Categories returns the distinct categories, sorted ignoring case.
	Categories(ctx context.Context) ([]string, error)

	// Tags returns the distinct tags, sorted ignoring case.
	Tags(ctx context.Context) ([]string, error)

	// Count returns the number of products.
	Count(ctx context.Context) (int, error)
}

// PurchaseResult carries the stock levels around a purchase.
type PurchaseResult struct {
	Product   string
	Original  int
	Remaining int
}
