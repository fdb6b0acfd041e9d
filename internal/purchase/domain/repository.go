package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, purchase *Purchase) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Purchase, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Purchase, error)
	FindActiveByUserAndBeat(ctx context.Context, db *gorm.DB, userID string, beatID snowflake.ID) (*Purchase, error)
	FindCompletedByBeat(ctx context.Context, db *gorm.DB, beatID snowflake.ID) (*Purchase, error)
	ListByBeatForUpdate(ctx context.Context, db *gorm.DB, beatID snowflake.ID) ([]Purchase, error)
	ListByUserAndBeatForUpdate(ctx context.Context, db *gorm.DB, userID string, beatID snowflake.ID) ([]Purchase, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]Purchase, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status PurchaseStatus, approvedBy *string, approvedAt *time.Time) error
	AppendNote(ctx context.Context, db *gorm.DB, id snowflake.ID, note string) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
