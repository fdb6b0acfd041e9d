package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jose32011/beatbazaar/internal/verification/domain"
	pkgdb "github.com/jose32011/beatbazaar/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, code *domain.VerificationCode) error {
	return db.WithContext(ctx).Create(code).Error
}

func (r *repo) FindUnusedForUpdate(ctx context.Context, db *gorm.DB, userID string, codeType domain.CodeType) (*domain.VerificationCode, error) {
	var item domain.VerificationCode
	err := pkgdb.LockRows(db.WithContext(ctx)).
		Where("user_id = ? AND type = ? AND used = ?", userID, codeType, false).
		Order("created_at DESC").
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) InvalidateUnused(ctx context.Context, db *gorm.DB, userID string, codeType domain.CodeType) error {
	return db.WithContext(ctx).
		Model(&domain.VerificationCode{}).
		Where("user_id = ? AND type = ? AND used = ?", userID, codeType, false).
		Update("used", true).Error
}

func (r *repo) MarkUsed(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&domain.VerificationCode{}).
		Where("id = ?", id).
		Update("used", true).Error
}

func (r *repo) DeleteExpiredBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at < ?", cutoff.UTC()).
		Delete(&domain.VerificationCode{})
	return res.RowsAffected, res.Error
}
