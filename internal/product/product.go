// Package product defines the catalog entity and the normalisation rules every store applies to it.
package product

import (
	"slices"
	"strings"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
)

// DefaultCategory is assigned when a product is added without a category.
const DefaultCategory = "General"

// Product is a catalog entry. Its identity is the name, compared case-insensitively.
type Product struct {
	Name     string   `json:"name"`
	Quantity int      `json:"quantity"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// New validates the inputs and builds a normalised Product.
// Returns an InvalidArgument error if the name is blank or the quantity is negative.
func New(name string, quantity int, category string, tags []string) (Product, error) {
	n, err := NormalizeName(name)
	if err != nil {
		return Product{}, err
	}
	if quantity < 0 {
		return Product{}, perrors.NewInvalidArgument("quantity", "Product quantity cannot be negative.")
	}
	return Product{
		Name:     n,
		Quantity: quantity,
		Category: NormalizeCategory(category),
		Tags:     NormalizeTags(tags),
	}, nil
}

// Key returns the identity key of the product.
func (p Product) Key() string {
	return Key(p.Name)
}

// Equal reports whether both products have the same name, ignoring case.
func (p Product) Equal(other Product) bool {
	return strings.EqualFold(p.Name, other.Name)
}

// HasTag reports whether the product carries tag, ignoring case.
func (p Product) HasTag(tag string) bool {
	return slices.ContainsFunc(p.Tags, func(t string) bool {
		return strings.EqualFold(t, tag)
	})
}

// HasAnyTag reports whether the product carries at least one of tags.
func (p Product) HasAnyTag(tags []string) bool {
	return slices.ContainsFunc(tags, p.HasTag)
}

// InCategory reports whether the product belongs to category, ignoring case.
func (p Product) InCategory(category string) bool {
	return strings.EqualFold(p.Category, category)
}

// Clone returns a copy that shares no memory with p.
func (p Product) Clone() Product {
	p.Tags = slices.Clone(p.Tags)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p
}

// Key maps a product name to its case-insensitive identity key.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeName trims name and rejects blank values.
func NormalizeName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", perrors.NewInvalidArgument("name", "Product name cannot be null or empty.")
	}
	return n, nil
}

// NormalizeCategory trims category, falling back to DefaultCategory.
func NormalizeCategory(category string) string {
	c := strings.TrimSpace(category)
	if c == "" {
		return DefaultCategory
	}
	return c
}

// NormalizeTags trims tags, drops blanks and removes case-insensitive duplicates.
// The first casing seen for a tag is kept. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		t := strings.TrimSpace(tag)
		if t == "" {
			continue
		}
		k := strings.ToLower(t)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ValidateCategory trims a category search argument and rejects blank values.
func ValidateCategory(category string) (string, error) {
	c := strings.TrimSpace(category)
	if c == "" {
		return "", perrors.NewInvalidArgument("category", "Category cannot be null or empty.")
	}
	return c, nil
}

// ValidateTag trims a tag search argument and rejects blank values.
func ValidateTag(tag string) (string, error) {
	t := strings.TrimSpace(tag)
	if t == "" {
		return "", perrors.NewInvalidArgument("tag", "Tag cannot be null or empty.")
	}
	return t, nil
}

// ValidateTags normalises a tag search argument.
// A nil slice and a slice without usable tags are both InvalidArgument, the former wraps ErrNilTags.
func ValidateTags(tags []string) ([]string, error) {
	if tags == nil {
		return nil, perrors.NewNilTags()
	}
	valid := NormalizeTags(tags)
	if len(valid) == 0 {
		return nil, perrors.NewInvalidArgument("tags", "At least one valid tag must be provided.")
	}
	return valid, nil
}

// ValidatePurchaseQuantity rejects non-positive purchase quantities.
func ValidatePurchaseQuantity(quantity int) error {
	if quantity <= 0 {
		return perrors.NewInvalidArgument("quantity", "Purchase quantity must be positive.")
	}
	return nil
}
