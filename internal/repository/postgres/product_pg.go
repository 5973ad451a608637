// internal/repository/postgres/product_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"

	"github.com/google/uuid"
)

// ProductRepository implements repository.ProductRepository for PostgreSQL.
type ProductRepository struct{}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository() repository.ProductRepository {
	return &ProductRepository{}
}

// GetProductByID retrieves an active product.
func (r *ProductRepository) GetProductByID(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Product, error) {
	var product domain.Product
	query := `SELECT id, name, price, image, category, is_active FROM products WHERE id = $1 AND is_active`
	if err := q.GetContext(ctx, &product, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.NotFound("product")
		}
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	return &product, nil
}

// UpsertProduct creates or replaces a catalog entry.
func (r *ProductRepository) UpsertProduct(ctx context.Context, q repository.DBExecutor, product *domain.Product) error {
	query := `INSERT INTO products (id, name, price, image, category, is_active)
              VALUES ($1, $2, $3, $4, $5, $6)
              ON CONFLICT (id) DO UPDATE SET
                  name = EXCLUDED.name, price = EXCLUDED.price, image = EXCLUDED.image,
                  category = EXCLUDED.category, is_active = EXCLUDED.is_active`
	if _, err := q.ExecContext(ctx, query, product.ID, product.Name, product.Price, product.Image, product.Category, product.IsActive); err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", product.ID, err)
	}
	return nil
}
