package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jose32011/beatbazaar/internal/purchase/domain"
	pkgdb "github.com/jose32011/beatbazaar/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, purchase *domain.Purchase) error {
	return db.WithContext(ctx).Create(purchase).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Purchase, error) {
	return r.findOne(db.WithContext(ctx), "id = ?", id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Purchase, error) {
	return r.findOne(pkgdb.LockRows(db.WithContext(ctx)), "id = ?", id)
}

func (r *repo) FindActiveByUserAndBeat(ctx context.Context, db *gorm.DB, userID string, beatID snowflake.ID) (*domain.Purchase, error) {
	statuses := []domain.PurchaseStatus{
		domain.PurchaseStatusPending,
		domain.PurchaseStatusApproved,
		domain.PurchaseStatusCompleted,
	}
	return r.findOne(pkgdb.LockRows(db.WithContext(ctx)),
		"user_id = ? AND beat_id = ? AND status IN ?", userID, beatID, statuses)
}

func (r *repo) FindCompletedByBeat(ctx context.Context, db *gorm.DB, beatID snowflake.ID) (*domain.Purchase, error) {
	return r.findOne(pkgdb.LockRows(db.WithContext(ctx)),
		"beat_id = ? AND status = ?", beatID, domain.PurchaseStatusCompleted)
}

func (r *repo) ListByBeatForUpdate(ctx context.Context, db *gorm.DB, beatID snowflake.ID) ([]domain.Purchase, error) {
	var items []domain.Purchase
	err := pkgdb.LockRows(db.WithContext(ctx)).
		Where("beat_id = ?", beatID).
		Order("purchased_at ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) ListByUserAndBeatForUpdate(ctx context.Context, db *gorm.DB, userID string, beatID snowflake.ID) ([]domain.Purchase, error) {
	var items []domain.Purchase
	err := pkgdb.LockRows(db.WithContext(ctx)).
		Where("user_id = ? AND beat_id = ?", userID, beatID).
		Order("purchased_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Purchase, error) {
	var items []domain.Purchase
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("purchased_at DESC").
		Find(&items).Error
	return items, err
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.PurchaseStatus, approvedBy *string, approvedAt *time.Time) error {
	updates := map[string]any{"status": status}
	if approvedBy != nil {
		updates["approved_by"] = *approvedBy
	}
	if approvedAt != nil {
		updates["approved_at"] = approvedAt.UTC()
	}
	return db.WithContext(ctx).
		Model(&domain.Purchase{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repo) AppendNote(ctx context.Context, db *gorm.DB, id snowflake.ID, note string) error {
	item, err := r.FindByIDForUpdate(ctx, db, id)
	if err != nil {
		return err
	}
	if item == nil {
		return gorm.ErrRecordNotFound
	}
	notes := item.Notes
	if notes != "" {
		notes += "\n"
	}
	notes += note
	return db.WithContext(ctx).
		Model(&domain.Purchase{}).
		Where("id = ?", id).
		Update("notes", notes).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Purchase{}).Error
}

func (r *repo) findOne(stmt *gorm.DB, query string, args ...any) (*domain.Purchase, error) {
	var item domain.Purchase
	err := stmt.Where(query, args...).Order("purchased_at ASC").First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}
