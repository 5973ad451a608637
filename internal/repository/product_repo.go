// internal/repository/product_repo.go
package repository

import (
	"context"

	"wallet-ledger/internal/domain"

	"github.com/google/uuid"
)

// ProductRepository reads the product catalog.
type ProductRepository interface {
	GetProductByID(ctx context.Context, q DBExecutor, id uuid.UUID) (*domain.Product, error)
	UpsertProduct(ctx context.Context, q DBExecutor, product *domain.Product) error
}
