package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jose32011/beatbazaar/internal/payment/domain"
	pkgdb "github.com/jose32011/beatbazaar/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.PaymentRecord) error {
	return db.WithContext(ctx).Create(record).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PaymentRecord, error) {
	return r.findOne(db.WithContext(ctx), "id = ?", id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PaymentRecord, error) {
	return r.findOne(pkgdb.LockRows(db.WithContext(ctx)), "id = ?", id)
}

func (r *repo) FindByReferenceForUpdate(ctx context.Context, db *gorm.DB, reference string) (*domain.PaymentRecord, error) {
	return r.findOne(pkgdb.LockRows(db.WithContext(ctx)), "bank_reference = ?", reference)
}

func (r *repo) FindOpenByPurchase(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (*domain.PaymentRecord, error) {
	statuses := []domain.PaymentStatus{
		domain.PaymentStatusPending,
		domain.PaymentStatusApproved,
	}
	return r.findOne(pkgdb.LockRows(db.WithContext(ctx)),
		"purchase_id = ? AND status IN ?", purchaseID, statuses)
}

func (r *repo) FindApprovedByPurchase(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (*domain.PaymentRecord, error) {
	return r.findOne(db.WithContext(ctx),
		"purchase_id = ? AND status = ?", purchaseID, domain.PaymentStatusApproved)
}

func (r *repo) ListByPurchase(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) ([]domain.PaymentRecord, error) {
	var items []domain.PaymentRecord
	err := db.WithContext(ctx).
		Where("purchase_id = ?", purchaseID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, updates map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.PaymentRecord{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repo) DeleteByPurchase(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).
		Where("purchase_id = ?", purchaseID).
		Delete(&domain.PaymentRecord{})
	return res.RowsAffected, res.Error
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.EventRecord) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
			DoNothing: true,
		}).
		Create(event)
	if res.Error != nil {
		// Dialects that reject ON CONFLICT on a composite unique index
		// surface the duplicate as an error instead.
		if pkgdb.IsDuplicateKeyErr(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkEventProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.EventRecord{}).
		Where("id = ?", id).
		Update("processed_at", processedAt.UTC()).Error
}

func (r *repo) findOne(stmt *gorm.DB, query string, args ...any) (*domain.PaymentRecord, error) {
	var item domain.PaymentRecord
	err := stmt.Where(query, args...).Order("created_at ASC").First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}
