package messaging

// Subjects of catalog events, relative to the configured subject prefix.
const (
	CatalogProductAdded     = "product.added"
	CatalogProductRemoved   = "product.removed"
	CatalogProductPurchased = "product.purchased"
	CatalogOperationFailed  = "operation.failed"
	CatalogProductsQueried  = "products.queried"
)

// DefaultCatalogSubjectPrefix is used when no prefix is configured.
const DefaultCatalogSubjectPrefix = "catalog.events"
