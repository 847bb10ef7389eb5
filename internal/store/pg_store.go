package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/abgdnv/productcatalog/internal/product"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ ProductStore = (*PgStore)(nil)

const (
	insertProduct = `INSERT INTO catalog_products (id, doc) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`
	deleteProduct = `DELETE FROM catalog_products WHERE id = $1 RETURNING doc`
	selectProduct = `SELECT doc FROM catalog_products WHERE id = $1`
	lockProduct   = `SELECT doc FROM catalog_products WHERE id = $1 FOR UPDATE`
	updateProduct = `UPDATE catalog_products SET doc = $2, updated_at = now() WHERE id = $1`
	selectAll     = `SELECT doc FROM catalog_products ORDER BY seq`
	selectByCat   = `SELECT doc FROM catalog_products WHERE lower(doc ->> 'category') = lower($1) ORDER BY seq`
	selectByTags  = `SELECT doc FROM catalog_products
		WHERE EXISTS (SELECT 1 FROM jsonb_array_elements_text(doc -> 'tags') AS t(tag) WHERE lower(t.tag) = ANY($1))
		ORDER BY seq`
	selectCats = `SELECT doc ->> 'category' FROM catalog_products ORDER BY seq`
	selectTags = `SELECT t.tag FROM catalog_products, jsonb_array_elements_text(doc -> 'tags') WITH ORDINALITY AS t(tag, ord)
		ORDER BY seq, ord`
	countAll = `SELECT count(*) FROM catalog_products`
)

// PgStore implements ProductStore as a document store on PostgreSQL.
// Each product is one JSONB document keyed by its lower-cased name.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of ProductStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

func (s *PgStore) Create(ctx context.Context, p product.Product) error {
	p, err := product.New(p.Name, p.Quantity, p.Category, p.Tags)
	if err != nil {
		return err
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return perrors.NewStorageFailure("create", err)
	}
	tag, err := s.db.Exec(ctx, insertProduct, p.Key(), doc)
	if err != nil {
		return perrors.NewStorageFailure("create", err)
	}
	if tag.RowsAffected() == 0 {
		return perrors.NewAlreadyExists(p.Name)
	}
	return nil
}

func (s *PgStore) Delete(ctx context.Context, name string) (product.Product, error) {
	n, err := product.NormalizeName(name)
	if err != nil {
		return product.Product{}, err
	}
	return scanProduct(s.db.QueryRow(ctx, deleteProduct, product.Key(n)), "delete", n)
}

// Purchase locks the product row for the duration of the transaction.
func (s *PgStore) Purchase(ctx context.Context, name string, quantity int) (PurchaseResult, error) {
	n, err := product.NormalizeName(name)
	if err != nil {
		return PurchaseResult{}, err
	}
	if err := product.ValidatePurchaseQuantity(quantity); err != nil {
		return PurchaseResult{}, err
	}

	var result PurchaseResult
	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		p, err := scanProduct(tx.QueryRow(ctx, lockProduct, product.Key(n)), "purchase", n)
		if err != nil {
			return err
		}
		if quantity > p.Quantity {
			return perrors.NewInsufficientQuantity(p.Name, p.Quantity, quantity)
		}
		result = PurchaseResult{Product: p.Name, Original: p.Quantity, Remaining: p.Quantity - quantity}
		p.Quantity = result.Remaining
		doc, err := json.Marshal(p)
		if err != nil {
			return perrors.NewStorageFailure("purchase", err)
		}
		if _, err := tx.Exec(ctx, updateProduct, p.Key(), doc); err != nil {
			return perrors.NewStorageFailure("purchase", err)
		}
		return nil
	})
	if err != nil {
		var catalogErr *perrors.Error
		if errors.As(err, &catalogErr) {
			return PurchaseResult{}, err
		}
		return PurchaseResult{}, perrors.NewStorageFailure("purchase", err)
	}
	return result, nil
}

func (s *PgStore) FindByName(ctx context.Context, name string) (product.Product, error) {
	n, err := product.NormalizeName(name)
	if err != nil {
		return product.Product{}, err
	}
	return scanProduct(s.db.QueryRow(ctx, selectProduct, product.Key(n)), "get", n)
}

func (s *PgStore) FindAll(ctx context.Context) ([]product.Product, error) {
	return s.query(ctx, "list", selectAll)
}

func (s *PgStore) FindByCategory(ctx context.Context, category string) ([]product.Product, error) {
	c, err := product.ValidateCategory(category)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, "search by category", selectByCat, c)
}

func (s *PgStore) FindByTags(ctx context.Context, tags []string) ([]product.Product, error) {
	valid, err := product.ValidateTags(tags)
	if err != nil {
		return nil, err
	}
	lowered := make([]string, len(valid))
	for i, t := range valid {
		lowered[i] = strings.ToLower(t)
	}
	return s.query(ctx, "search by tags", selectByTags, lowered)
}

func (s *PgStore) Categories(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "categories", selectCats)
}

func (s *PgStore) Tags(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "tags", selectTags)
}

func (s *PgStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRow(ctx, countAll).Scan(&count); err != nil {
		return 0, perrors.NewStorageFailure("count", err)
	}
	return count, nil
}

func (s *PgStore) query(ctx context.Context, op, sql string, args ...any) ([]product.Product, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, perrors.NewStorageFailure(op, err)
	}
	docs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, perrors.NewStorageFailure(op, err)
	}
	products := make([]product.Product, 0, len(docs))
	for _, doc := range docs {
		var p product.Product
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, perrors.NewStorageFailure(op, err)
		}
		products = append(products, p.Clone())
	}
	return product.SortByQuantity(products), nil
}

// distinct returns distinct values; rows arrive in insertion order so the first casing added wins.
func (s *PgStore) distinct(ctx context.Context, op, sql string) ([]string, error) {
	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return nil, perrors.NewStorageFailure(op, err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, perrors.NewStorageFailure(op, err)
	}
	return product.DistinctFold(values), nil
}

func scanProduct(row pgx.Row, op, name string) (product.Product, error) {
	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.Product{}, perrors.NewNotFound(name)
		}
		return product.Product{}, perrors.NewStorageFailure(op, err)
	}
	var p product.Product
	if err := json.Unmarshal(doc, &p); err != nil {
		return product.Product{}, perrors.NewStorageFailure(op, err)
	}
	return p.Clone(), nil
}
