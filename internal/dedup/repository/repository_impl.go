package repository

import (
	"context"

	"github.com/jose32011/beatbazaar/internal/dedup/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindDuplicateKeys(ctx context.Context, db *gorm.DB) ([]domain.GroupKey, error) {
	var keys []domain.GroupKey
	err := db.WithContext(ctx).
		Table("purchases").
		Select("user_id, beat_id").
		Group("user_id, beat_id").
		Having("COUNT(*) > 1").
		Order("user_id, beat_id").
		Scan(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}
