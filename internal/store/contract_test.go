package store

import (
	"context"
	"sync"
	"testing"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/abgdnv/productcatalog/internal/product"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runContract checks the behaviour every ProductStore implementation shares.
func runContract(t *testing.T, newStore func(t *testing.T) ProductStore) {
	ctx := context.Background()

	seed := func(t *testing.T, s ProductStore, products ...product.Product) {
		t.Helper()
		for _, p := range products {
			require.NoError(t, s.Create(ctx, p))
		}
	}

	t.Run("Create normalises the product", func(t *testing.T) {
		// given
		s := newStore(t)
		// when
		err := s.Create(ctx, product.Product{Name: "  Laptop ", Quantity: 5, Category: " ", Tags: []string{"Tech", " tech", "", "Work"}})
		// then
		require.NoError(t, err)
		got, err := s.FindByName(ctx, "LAPTOP")
		require.NoError(t, err)
		assert.Equal(t, product.Product{Name: "Laptop", Quantity: 5, Category: "General", Tags: []string{"Tech", "Work"}}, got)
	})

	t.Run("Create rejects duplicates ignoring case", func(t *testing.T) {
		// given
		s := newStore(t)
		seed(t, s, product.Product{Name: "Mouse", Quantity: 1})
		// when
		err := s.Create(ctx, product.Product{Name: "MOUSE", Quantity: 2})
		// then
		assert.ErrorIs(t, err, perrors.ErrProductAlreadyExists)
		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("Create validates input", func(t *testing.T) {
		tests := []struct {
			name    string
			product product.Product
		}{
			{name: "blank name", product: product.Product{Name: "   ", Quantity: 1}},
			{name: "negative quantity", product: product.Product{Name: "Pen", Quantity: -1}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				// given
				s := newStore(t)
				// when
				err := s.Create(ctx, tt.product)
				// then
				assert.ErrorIs(t, err, perrors.ErrInvalidArgument)
			})
		}
	})

	t.Run("Delete returns the removed product", func(t *testing.T) {
		// given
		s := newStore(t)
		seed(t, s, product.Product{Name: "Mouse", Quantity: 7, Category: "Peripherals", Tags: []string{"usb"}})
		// when
		removed, err := s.Delete(ctx, " mouse ")
		// then
		require.NoError(t, err)
		assert.Equal(t, "Mouse", removed.Name)
		assert.Equal(t, 7, removed.Quantity)
		_, err = s.FindByName(ctx, "Mouse")
		assert.ErrorIs(t, err, perrors.ErrProductNotFound)
		_, err = s.Delete(ctx, "Mouse")
		assert.ErrorIs(t, err, perrors.ErrProductNotFound)
	})

	t.Run("Concurrent deletes remove the product once", func(t *testing.T) {
		s := newStore(t)
		for range 50 {
			// given
			seed(t, s, product.Product{Name: "Mouse", Quantity: 7})
			// when
			var wg sync.WaitGroup
			errs := make([]error, 2)
			for i := range errs {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, errs[i] = s.Delete(ctx, "mouse")
				}()
			}
			wg.Wait()
			// then
			var succeeded int
			for _, err := range errs {
				if err == nil {
					succeeded++
					continue
				}
				assert.ErrorIs(t, err, perrors.ErrProductNotFound)
			}
			require.Equal(t, 1, succeeded)
		}
	})

	t.Run("Delete drops categories and tags no longer in use", func(t *testing.T) {
		// given
		s := newStore(t)
		seed(t, s,
			product.Product{Name: "A", Quantity: 1, Category: "Office", Tags: []string{"paper", "shared"}},
			product.Product{Name: "B", Quantity: 1, Category: "Garden", Tags: []string{"shared"}},
		)
		// when
		_, err := s.Delete(ctx, "A")
		// then
		require.NoError(t, err)
		categories, err := s.Categories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Garden"}, categories)
		tags, err := s.Tags(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"shared"}, tags)
	})

	t.Run("Purchase", func(t *testing.T) {
		tests := []struct {
			name              string
			quantity          int
			expectedErr       error
			expectedRemaining int
		}{
			{name: "partial", quantity: 3, expectedRemaining: 7},
			{name: "exact stock", quantity: 10, expectedRemaining: 0},
			{name: "insufficient", quantity: 11, expectedErr: perrors.ErrInsufficientQuantity, expectedRemaining: 10},
			{name: "zero", quantity: 0, expectedErr: perrors.ErrInvalidArgument, expectedRemaining: 10},
			{name: "negative", quantity: -2, expectedErr: perrors.ErrInvalidArgument, expectedRemaining: 10},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				// given
				s := newStore(t)
				seed(t, s, product.Product{Name: "Pen", Quantity: 10})
				// when
				result, err := s.Purchase(ctx, "PEN", tt.quantity)
				// then
				if tt.expectedErr != nil {
					assert.ErrorIs(t, err, tt.expectedErr)
				} else {
					require.NoError(t, err)
					assert.Equal(t, PurchaseResult{Product: "Pen", Original: 10, Remaining: tt.expectedRemaining}, result)
				}
				got, err := s.FindByName(ctx, "pen")
				require.NoError(t, err)
				assert.Equal(t, tt.expectedRemaining, got.Quantity)
			})
		}
	})

	t.Run("Purchase of a missing product", func(t *testing.T) {
		// given
		s := newStore(t)
		// when
		_, err := s.Purchase(ctx, "Ghost", 1)
		// then
		assert.ErrorIs(t, err, perrors.ErrProductNotFound)
	})

	t.Run("Insufficient quantity carries the amounts", func(t *testing.T) {
		// given
		s := newStore(t)
		seed(t, s, product.Product{Name: "Pen", Quantity: 2})
		// when
		_, err := s.Purchase(ctx, "pen", 5)
		// then
		var catalogErr *perrors.Error
		require.ErrorAs(t, err, &catalogErr)
		assert.Equal(t, 2, catalogErr.Available)
		assert.Equal(t, 5, catalogErr.Requested)
		assert.Equal(t, "Cannot purchase 5 units of 'Pen'. Only 2 units available.", err.Error())
	})

	t.Run("FindAll orders by quantity then name", func(t *testing.T) {
		// given
		s := newStore(t)
		seed(t, s,
			product.Product{Name: "banana", Quantity: 5},
			product.Product{Name: "Cherry", Quantity: 9},
			product.Product{Name: "apple", Quantity: 5},
			product.Product{Name: "Date", Quantity: 0},
		)
		// when
		all, err := s.FindAll(ctx)
		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"Cherry", "apple", "banana", "Date"}, names(all))
	})

	t.Run("FindAll on an empty store", func(t *testing.T) {
		// given
		s := newStore(t)
		// when
		all, err := s.FindAll(ctx)
		// then
		require.NoError(t, err)
		assert.NotNil(t, all)
		assert.Empty(t, all)
	})

	t.Run("FindByCategory ignores case", func(t *testing.T) {
		// given
		s := newStore(t)
		seed(t, s,
			product.Product{Name: "Laptop", Quantity: 2, Category: "Electronics"},
			product.Product{Name: "Phone", Quantity: 4, Category: "electronics"},
			product.Product{Name: "Chair", Quantity: 1, Category: "Furniture"},
		)
		// when
		found, err := s.FindByCategory(ctx, " ELECTRONICS ")
		_, blankErr := s.FindByCategory(ctx, "  ")
		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"Phone", "Laptop"}, names(found))
		assert.ErrorIs(t, blankErr, perrors.ErrInvalidArgument)
	})

	t.Run("FindByTags matches any tag", func(t *testing.T) {
		// given
		s := newStore(t)
		seed(t, s,
			product.Product{Name: "Laptop", Quantity: 2, Tags: []string{"Portable", "Work"}},
			product.Product{Name: "Desk", Quantity: 1, Tags: []string{"Work"}},
			product.Product{Name: "Lamp", Quantity: 3, Tags: []string{"Home"}},
		)
		// when
		found, err := s.FindByTags(ctx, []string{"portable", "WORK", " "})
		none, noneErr := s.FindByTags(ctx, []string{"garden"})
		_, nilErr := s.FindByTags(ctx, nil)
		_, blankErr := s.FindByTags(ctx, []string{" ", ""})
		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"Laptop", "Desk"}, names(found))
		require.NoError(t, noneErr)
		assert.Empty(t, none)
		assert.ErrorIs(t, nilErr, perrors.ErrNilTags)
		assert.ErrorIs(t, nilErr, perrors.ErrInvalidArgument)
		assert.ErrorIs(t, blankErr, perrors.ErrInvalidArgument)
		assert.NotErrorIs(t, blankErr, perrors.ErrNilTags)
	})

	t.Run("Categories and Tags are distinct and sorted ignoring case", func(t *testing.T) {
		// given
		s := newStore(t)
		seed(t, s,
			product.Product{Name: "A", Quantity: 1, Category: "Electronics", Tags: []string{"Zeta", "alpha"}},
			product.Product{Name: "B", Quantity: 1, Category: "books", Tags: []string{"Alpha", "beta"}},
			product.Product{Name: "C", Quantity: 1, Category: "electronics"},
		)
		// when
		categories, catErr := s.Categories(ctx)
		tags, tagErr := s.Tags(ctx)
		// then
		require.NoError(t, catErr)
		require.NoError(t, tagErr)
		assert.Equal(t, []string{"books", "Electronics"}, categories)
		require.Len(t, tags, 3)
		assert.Equal(t, "beta", tags[1])
		assert.Equal(t, "Zeta", tags[2])
	})

	t.Run("Results are copies", func(t *testing.T) {
		// given
		s := newStore(t)
		seed(t, s, product.Product{Name: "Pen", Quantity: 1, Tags: []string{"office"}})
		got, err := s.FindByName(ctx, "Pen")
		require.NoError(t, err)
		// when
		got.Tags[0] = "mutated"
		got.Quantity = 99
		// then
		again, err := s.FindByName(ctx, "Pen")
		require.NoError(t, err)
		assert.Equal(t, []string{"office"}, again.Tags)
		assert.Equal(t, 1, again.Quantity)
	})
}

func names(products []product.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}
