package product

import (
	"cmp"
	"slices"
	"strings"
)

// compareByQuantity orders by quantity descending, then by name ascending ignoring case.
func compareByQuantity(a, b Product) int {
	if c := cmp.Compare(b.Quantity, a.Quantity); c != 0 {
		return c
	}
	return compareFold(a.Name, b.Name)
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToUpper(a), strings.ToUpper(b))
}

// SortByQuantity sorts products in catalog order in place and returns the slice.
// A nil input yields an empty, non-nil slice.
func SortByQuantity(products []Product) []Product {
	if products == nil {
		return []Product{}
	}
	slices.SortStableFunc(products, compareByQuantity)
	return products
}

// Filter returns clones of the products matching keep, in catalog order.
func Filter(products []Product, keep func(Product) bool) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	return SortByQuantity(out)
}

// DistinctFold removes case-insensitive duplicates, keeping the first casing seen,
// and sorts the result ignoring case. Blank values are dropped.
func DistinctFold(values []string) []string {
	out := NormalizeTags(values)
	slices.SortStableFunc(out, compareFold)
	return out
}

// Categories returns the distinct categories of products.
func Categories(products []Product) []string {
	values := make([]string, 0, len(products))
	for _, p := range products {
		values = append(values, p.Category)
	}
	return DistinctFold(values)
}

// Tags returns the distinct tags of products.
func Tags(products []Product) []string {
	var values []string
	for _, p := range products {
		values = append(values, p.Tags...)
	}
	return DistinctFold(values)
}
