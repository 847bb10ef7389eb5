package store

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/abgdnv/productcatalog/internal/product"
	"github.com/redis/go-redis/v9"
)

var _ ProductStore = (*RedisStore)(nil)

const (
	DefaultRedisKeyPrefix = "productcatalog:"
	DefaultRedisTTL       = 60 * time.Minute

	// maxPurchaseAttempts bounds the optimistic transaction retries of Purchase.
	maxPurchaseAttempts = 5
)

// RedisStore implements ProductStore on a Redis key-value store.
//
// Layout, relative to the key prefix:
//
//	product:<lower-cased name>  JSON document of the product
//	products:all                set of lower-cased names
//	categories                  set of categories in use
//	tags                        set of tags in use
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore. An empty prefix selects DefaultRedisKeyPrefix;
// a zero ttl stores products without expiration.
func NewRedisStore(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) productKey(key string) string { return s.prefix + "product:" + key }
func (s *RedisStore) allKey() string { return s.prefix + "products:all" }
func (s *RedisStore) categoriesKey() string { return s.prefix + "categories" }
func (s *RedisStore) tagsKey() string { return s.prefix + "tags" }

func (s *RedisStore) Create(ctx context.Context, p product.Product) error {
	p, err := product.New(p.Name, p.Quantity, p.Category, p.Tags)
	if err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return perrors.NewStorageFailure("create", err)
	}
	created, err := s.rdb.SetNX(ctx, s.productKey(p.Key()), data, s.ttl).Result()
	if err != nil {
		return perrors.NewStorageFailure("create", err)
	}
	if !created {
		return perrors.NewAlreadyExists(p.Name)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, s.allKey(), p.Key())
		pipe.SAdd(ctx, s.categoriesKey(), p.Category)
		if len(p.Tags) > 0 {
			pipe.SAdd(ctx, s.tagsKey(), toAny(p.Tags)...)
		}
		return nil
	})
	if err != nil {
		return perrors.NewStorageFailure("create", err)
	}
	return nil
}

// Delete removes the product, then drops its category and tags from the index sets
// unless a remaining product still uses them.
func (s *RedisStore) Delete(ctx context.Context, name string) (product.Product, error) {
	n, err := product.NormalizeName(name)
	if err != nil {
		return product.Product{}, err
	}
	p, err := s.get(ctx, "delete", n)
	if err != nil {
		return product.Product{}, err
	}
	var deleted *redis.IntCmd
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, s.productKey(p.Key()))
		pipe.SRem(ctx, s.allKey(), p.Key())
		return nil
	})
	if err != nil {
		return product.Product{}, perrors.NewStorageFailure("delete", err)
	}
	// a concurrent delete removed the key between the read and the transaction
	if deleted.Val() == 0 {
		return product.Product{}, perrors.NewNotFound(n)
	}

	remaining, err := s.FindAll(ctx)
	if err != nil {
		return product.Product{}, err
	}
	var unusedTags []any
	for _, tag := range p.Tags {
		if !slices.ContainsFunc(remaining, func(r product.Product) bool { return slices.Contains(r.Tags, tag) }) {
			unusedTags = append(unusedTags, tag)
		}
	}
	categoryUsed := slices.ContainsFunc(remaining, func(r product.Product) bool { return r.Category == p.Category })
	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		if !categoryUsed {
			pipe.SRem(ctx, s.categoriesKey(), p.Category)
		}
		if len(unusedTags) > 0 {
			pipe.SRem(ctx, s.tagsKey(), unusedTags...)
		}
		return nil
	})
	if err != nil {
		return product.Product{}, perrors.NewStorageFailure("delete", err)
	}
	return p, nil
}

// Purchase decrements the quantity inside a WATCH/MULTI transaction, retrying when the
// product is modified concurrently.
func (s *RedisStore) Purchase(ctx context.Context, name string, quantity int) (PurchaseResult, error) {
	n, err := product.NormalizeName(name)
	if err != nil {
		return PurchaseResult{}, err
	}
	if err := product.ValidatePurchaseQuantity(quantity); err != nil {
		return PurchaseResult{}, err
	}
	key := s.productKey(product.Key(n))

	var result PurchaseResult
	txf := func(tx *redis.Tx) error {
		p, err := s.decode(tx.Get(ctx, key), "purchase", n)
		if err != nil {
			return err
		}
		if quantity > p.Quantity {
			return perrors.NewInsufficientQuantity(p.Name, p.Quantity, quantity)
		}
		result = PurchaseResult{Product: p.Name, Original: p.Quantity, Remaining: p.Quantity - quantity}
		p.Quantity = result.Remaining
		data, err := json.Marshal(p)
		if err != nil {
			return perrors.NewStorageFailure("purchase", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		return err
	}

	for range maxPurchaseAttempts {
		err = s.rdb.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		var catalogErr *perrors.Error
		if errors.As(err, &catalogErr) {
			return PurchaseResult{}, err
		}
		return PurchaseResult{}, perrors.NewStorageFailure("purchase", err)
	}
	return result, nil
}

func (s *RedisStore) FindByName(ctx context.Context, name string) (product.Product, error) {
	n, err := product.NormalizeName(name)
	if err != nil {
		return product.Product{}, err
	}
	return s.get(ctx, "get", n)
}

// FindAll loads every product listed in the index set. Members whose product key has
// expired are skipped.
func (s *RedisStore) FindAll(ctx context.Context) ([]product.Product, error) {
	members, err := s.rdb.SMembers(ctx, s.allKey()).Result()
	if err != nil {
		return nil, perrors.NewStorageFailure("list", err)
	}
	if len(members) == 0 {
		return []product.Product{}, nil
	}
	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = s.productKey(m)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, perrors.NewStorageFailure("list", err)
	}
	products := make([]product.Product, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var p product.Product
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, perrors.NewStorageFailure("list", err)
		}
		products = append(products, p.Clone())
	}
	return product.SortByQuantity(products), nil
}

func (s *RedisStore) FindByCategory(ctx context.Context, category string) ([]product.Product, error) {
	c, err := product.ValidateCategory(category)
	if err != nil {
		return nil, err
	}
	all, err := s.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return product.Filter(all, func(p product.Product) bool { return p.InCategory(c) }), nil
}

func (s *RedisStore) FindByTags(ctx context.Context, tags []string) ([]product.Product, error) {
	valid, err := product.ValidateTags(tags)
	if err != nil {
		return nil, err
	}
	all, err := s.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return product.Filter(all, func(p product.Product) bool { return p.HasAnyTag(valid) }), nil
}

// Categories reads the category index set. Casing variants of one category resolve to the
// variant that sorts first byte-wise, since Redis sets are unordered.
func (s *RedisStore) Categories(ctx context.Context) ([]string, error) {
	return s.members(ctx, s.categoriesKey(), "categories")
}

// Tags reads the tag index set, resolving casing variants like Categories.
func (s *RedisStore) Tags(ctx context.Context) ([]string, error) {
	return s.members(ctx, s.tagsKey(), "tags")
}

// Count returns the number of products that are still present.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	all, err := s.FindAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func (s *RedisStore) members(ctx context.Context, key, op string) ([]string, error) {
	values, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, perrors.NewStorageFailure(op, err)
	}
	slices.Sort(values)
	return product.DistinctFold(values), nil
}

func (s *RedisStore) get(ctx context.Context, op, name string) (product.Product, error) {
	return s.decode(s.rdb.Get(ctx, s.productKey(product.Key(name))), op, name)
}

func (s *RedisStore) decode(cmd *redis.StringCmd, op, name string) (product.Product, error) {
	data, err := cmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return product.Product{}, perrors.NewNotFound(name)
		}
		return product.Product{}, perrors.NewStorageFailure(op, err)
	}
	var p product.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return product.Product{}, perrors.NewStorageFailure(op, err)
	}
	return p.Clone(), nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
