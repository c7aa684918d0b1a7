package repository

import (
	"context"

	"github.com/marshallshelly/pebble-study/internal/models"
	"github.com/marshallshelly/pebble-study/pkg/builder"
	"github.com/marshallshelly/pebble-study/pkg/repository"
	"github.com/marshallshelly/pebble-study/pkg/session"
)

var productByCategory = builder.MustDerive[models.Product]("FindByCategoryOrderByNameAsc")

// ProductRepository stores products.
type ProductRepository struct {
	*repository.Repository[models.Product, int64]
}

// NewProductRepository creates a ProductRepository.
func NewProductRepository(s *session.Session) *ProductRepository {
	return &ProductRepository{repository.MustNew[models.Product, int64](s)}
}

// FindByCategory returns the products of one category ordered by name.
func (r *ProductRepository) FindByCategory(ctx context.Context, c models.Category) ([]models.Product, error) {
	return productByCategory.All(ctx, r.DB(), c)
}
