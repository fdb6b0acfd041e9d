package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/jose32011/beatbazaar/internal/exclusive/domain"
	pkgdb "github.com/jose32011/beatbazaar/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, request *domain.ExclusivePurchaseRequest) error {
	return db.WithContext(ctx).Create(request).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ExclusivePurchaseRequest, error) {
	return r.findOne(db.WithContext(ctx), "id = ?", id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ExclusivePurchaseRequest, error) {
	return r.findOne(pkgdb.LockRows(db.WithContext(ctx)), "id = ?", id)
}

func (r *repo) ListByBeatForUpdate(ctx context.Context, db *gorm.DB, beatID snowflake.ID) ([]domain.ExclusivePurchaseRequest, error) {
	var items []domain.ExclusivePurchaseRequest
	err := pkgdb.LockRows(db.WithContext(ctx)).
		Where("beat_id = ?", beatID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) ListPending(ctx context.Context, db *gorm.DB) ([]domain.ExclusivePurchaseRequest, error) {
	var items []domain.ExclusivePurchaseRequest
	err := db.WithContext(ctx).
		Where("status = ?", domain.RequestStatusPending).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, updates map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.ExclusivePurchaseRequest{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repo) findOne(stmt *gorm.DB, query string, args ...any) (*domain.ExclusivePurchaseRequest, error) {
	var item domain.ExclusivePurchaseRequest
	err := stmt.Where(query, args...).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}
