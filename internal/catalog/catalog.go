// internal/catalog/catalog.go
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wallet-ledger/internal/cache"
	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Catalog resolves product ids to the snapshot fields stored on orders.
type Catalog interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
}

// RepositoryCatalog reads products straight from the store.
type RepositoryCatalog struct {
	repo repository.ProductRepository
	q    repository.DBExecutor
}

// NewRepositoryCatalog creates a store-backed catalog.
func NewRepositoryCatalog(repo repository.ProductRepository, q repository.DBExecutor) *RepositoryCatalog {
	return &RepositoryCatalog{repo: repo, q: q}
}

func (c *RepositoryCatalog) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := c.repo.GetProductByID(ctx, c.q, id)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return product, nil
}

// Cache is the subset of cache.RedisCache the catalog needs.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// CachedCatalog is a read-through cache in front of another catalog.
// Concurrent misses for the same product share one lookup. Cache failures
// are logged and bypassed.
type CachedCatalog struct {
	next   Catalog
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewCachedCatalog wraps next with cache.
func NewCachedCatalog(next Catalog, c Cache, ttl time.Duration, logger *slog.Logger) *CachedCatalog {
	return &CachedCatalog{next: next, cache: c, ttl: ttl, logger: logger}
}

func (c *CachedCatalog) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	key := cache.Key("product", "id", id)

	var cached domain.Product
	found, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		c.logger.Warn("Product cache read failed", "product_id", id, "error", err)
	} else if found {
		return &cached, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		product, err := c.next.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(ctx, key, product, c.ttl); err != nil {
			c.logger.Warn("Product cache write failed", "product_id", id, "error", err)
		}
		return product, nil
	})
	if err != nil {
		return nil, err
	}
	product := *v.(*domain.Product)
	return &product, nil
}
