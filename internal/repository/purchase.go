package repository

import (
	"context"

	"github.com/marshallshelly/pebble-study/internal/models"
	"github.com/marshallshelly/pebble-study/pkg/builder"
	"github.com/marshallshelly/pebble-study/pkg/repository"
	"github.com/marshallshelly/pebble-study/pkg/session"
)

var purchaseByUser = builder.MustDerive[models.Purchase]("FindByUserID")

// UserRepository stores users. Deleting a user deletes its purchases.
type UserRepository struct {
	*repository.Repository[models.User, int64]
}

// NewUserRepository creates a UserRepository.
func NewUserRepository(s *session.Session) *UserRepository {
	return &UserRepository{repository.MustNew[models.User, int64](s)}
}

// FindWithPurchases loads a user and its purchases, or nil.
func (r *UserRepository) FindWithPurchases(ctx context.Context, id int64) (*models.User, error) {
	return session.Find[models.User](ctx, r.Session(), id, "Purchases")
}

// GoodsRepository stores goods.
type GoodsRepository struct {
	*repository.Repository[models.Goods, int64]
}

// NewGoodsRepository creates a GoodsRepository.
func NewGoodsRepository(s *session.Session) *GoodsRepository {
	return &GoodsRepository{repository.MustNew[models.Goods, int64](s)}
}

// FindWithPurchases loads goods and their purchases, or nil.
func (r *GoodsRepository) FindWithPurchases(ctx context.Context, id int64) (*models.Goods, error) {
	return session.Find[models.Goods](ctx, r.Session(), id, "Purchases")
}

// PurchaseRepository stores purchases.
type PurchaseRepository struct {
	*repository.Repository[models.Purchase, int64]
}

// NewPurchaseRepository creates a PurchaseRepository.
func NewPurchaseRepository(s *session.Session) *PurchaseRepository {
	return &PurchaseRepository{repository.MustNew[models.Purchase, int64](s)}
}

// FindByUser returns the purchases of one user in insertion order.
func (r *PurchaseRepository) FindByUser(ctx context.Context, userID int64) ([]models.Purchase, error) {
	q, err := purchaseByUser.Query(r.DB(), userID)
	if err != nil {
		return nil, err
	}
	return q.OrderByAsc("purchase_id").All(ctx)
}

// FindAllWithRelations returns every purchase with its user and goods.
func (r *PurchaseRepository) FindAllWithRelations(ctx context.Context) ([]models.Purchase, error) {
	return r.Select().
		Preload("User", "Goods").
		OrderByAsc("purchase_id").
		All(ctx)
}
