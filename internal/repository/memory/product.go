// internal/repository/memory/product.go
package memory

import (
	"context"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"

	"github.com/google/uuid"
)

// ProductRepository implements repository.ProductRepository on a Store.
type ProductRepository struct {
	store *Store
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(store *Store) repository.ProductRepository {
	return &ProductRepository{store: store}
}

func (r *ProductRepository) GetProductByID(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Product, error) {
	var (
		p  domain.Product
		ok bool
	)
	r.store.read(func() { p, ok = r.store.products[id] })
	if !ok || !p.IsActive {
		return nil, util.NotFound("product")
	}
	return &p, nil
}

func (r *ProductRepository) UpsertProduct(ctx context.Context, q repository.DBExecutor, product *domain.Product) error {
	s := r.store
	return s.write(q, func() (func(), error) {
		prev, existed := s.products[product.ID]
		s.products[product.ID] = *product
		return func() {
			if existed {
				s.products[product.ID] = prev
			} else {
				delete(s.products, product.ID)
			}
		}, nil
	})
}
