package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/abgdnv/productcatalog/internal/diagnostics"
	"github.com/abgdnv/productcatalog/internal/observers"
	"github.com/abgdnv/productcatalog/internal/product"
	"github.com/abgdnv/productcatalog/internal/service"
	"github.com/abgdnv/productcatalog/internal/store"
	"github.com/spf13/cobra"
)

func newDemoCmd() *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted walkthrough against an in-memory catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd.Context(), cmd.OutOrStdout(), level)
		},
	}
	cmd.Flags().StringVar(&level, "log-level", "info", "level of the console event log")
	return cmd
}

type demo struct {
	ctx     context.Context
	out     io.Writer
	catalog *service.Service
}

// runDemo exercises every catalog operation, including the failing ones, and prints the
// diagnostics summary.
func runDemo(ctx context.Context, out io.Writer, level string) error {
	catalog := service.NewService(store.NewInMemoryStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	collector := diagnostics.NewCollector()
	if err := catalog.AddObserver(observers.NewConsoleObserver(out, level)); err != nil {
		return err
	}
	if err := catalog.AddObserver(collector); err != nil {
		return err
	}
	d := &demo{ctx: ctx, out: out, catalog: catalog}

	d.printf("=== Product Catalog Demo ===\n\n")
	if err := d.happyPath(); err != nil {
		return fmt.Errorf("demo failed: %w", err)
	}

	d.printf("=== Error Handling ===\n\n")
	d.expectError(func() error {
		_, err := catalog.AddProduct(ctx, "laptop", 5, "", nil)
		return err
	})
	d.expectError(func() error {
		_, err := catalog.PurchaseProduct(ctx, "Phone", 1)
		return err
	})
	d.expectError(func() error {
		_, err := catalog.PurchaseProduct(ctx, "Monitor", 20)
		return err
	})
	d.expectError(func() error {
		_, err := catalog.RemoveProduct(ctx, "Tablet")
		return err
	})
	d.expectError(func() error {
		_, err := catalog.AddProduct(ctx, "  ", 1, "", nil)
		return err
	})

	d.printf("\n%s\n", collector.Summary())
	d.printf("Demo completed successfully!\n")
	return nil
}

func (d *demo) happyPath() error {
	seed := []struct {
		name     string
		quantity int
		category string
		tags     []string
	}{
		{"Laptop", 10, "Electronics", []string{"computer", "portable"}},
		{"Mouse", 25, "Electronics", []string{"accessory", "wireless"}},
		{"Keyboard", 15, "Electronics", []string{"accessory"}},
		{"Monitor", 8, "Electronics", []string{"display"}},
		{"Headphones", 20, "Audio", []string{"wireless", "portable"}},
		{"Desk", 3, "", nil},
	}
	d.printf("Adding products to catalog...\n")
	for _, s := range seed {
		if _, err := d.catalog.AddProduct(d.ctx, s.name, s.quantity, s.category, s.tags); err != nil {
			return err
		}
	}
	count, err := d.catalog.GetProductCount(d.ctx)
	if err != nil {
		return err
	}
	d.printf("Added %d products. Total products: %d\n\n", len(seed), count)

	if err := d.list("Products listed by quantity (descending):"); err != nil {
		return err
	}

	d.printf("Looking up 'MOUSE' ignoring case...\n")
	p, err := d.catalog.GetProduct(d.ctx, "MOUSE")
	if err != nil {
		return err
	}
	d.printf("  %s\n\n", formatProduct(p))

	d.printf("Purchasing products...\n")
	for _, buy := range []struct {
		name     string
		quantity int
	}{{"mouse", 5}, {"Laptop", 3}} {
		res, err := d.catalog.PurchaseProduct(d.ctx, buy.name, buy.quantity)
		if err != nil {
			return err
		}
		d.printf("  Purchased %d x %s, %d left\n", buy.quantity, res.Product, res.Remaining)
	}
	d.printf("\n")

	electronics, err := d.catalog.SearchByCategory(d.ctx, "electronics")
	if err != nil {
		return err
	}
	d.printProducts("Category 'electronics':", electronics)

	portable, err := d.catalog.SearchByTag(d.ctx, "Portable")
	if err != nil {
		return err
	}
	d.printProducts("Tag 'Portable':", portable)

	anyOf, err := d.catalog.SearchByTags(d.ctx, []string{"display", "wireless"})
	if err != nil {
		return err
	}
	d.printProducts("Any of tags 'display', 'wireless':", anyOf)

	categories, err := d.catalog.GetAllCategories(d.ctx)
	if err != nil {
		return err
	}
	tags, err := d.catalog.GetAllTags(d.ctx)
	if err != nil {
		return err
	}
	d.printf("Categories: %s\n", strings.Join(categories, ", "))
	d.printf("Tags: %s\n\n", strings.Join(tags, ", "))

	d.printf("Removing 'Headphones' from catalog...\n")
	if _, err := d.catalog.RemoveProduct(d.ctx, "headphones"); err != nil {
		return err
	}
	count, err = d.catalog.GetProductCount(d.ctx)
	if err != nil {
		return err
	}
	d.printf("Product removed. Total products: %d\n\n", count)

	return d.list("Final product list:")
}

func (d *demo) list(title string) error {
	products, err := d.catalog.ListProductsByQuantity(d.ctx)
	if err != nil {
		return err
	}
	d.printProducts(title, products)
	return nil
}

func (d *demo) printProducts(title string, products []product.Product) {
	d.printf("%s\n", title)
	for _, p := range products {
		d.printf("  %s\n", formatProduct(p))
	}
	d.printf("\n")
}

// expectError runs a call that must fail and prints the failure.
func (d *demo) expectError(call func() error) {
	if err := call(); err != nil {
		d.printf("Expected error: %v\n", err)
		return
	}
	d.printf("Unexpected success\n")
}

func (d *demo) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(d.out, format, args...)
}

func formatProduct(p product.Product) string {
	if len(p.Tags) == 0 {
		return fmt.Sprintf("%s (Qty: %d, Category: %s)", p.Name, p.Quantity, p.Category)
	}
	return fmt.Sprintf("%s (Qty: %d, Category: %s, Tags: %s)", p.Name, p.Quantity, p.Category, strings.Join(p.Tags, ", "))
}
