package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *PaymentRecord) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PaymentRecord, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PaymentRecord, error)
	FindByReferenceForUpdate(ctx context.Context, db *gorm.DB, reference string) (*PaymentRecord, error)
	FindOpenByPurchase(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (*PaymentRecord, error)
	FindApprovedByPurchase(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (*PaymentRecord, error)
	ListByPurchase(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) ([]PaymentRecord, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, updates map[string]any) error
	DeleteByPurchase(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (int64, error)

	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	MarkEventProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error
}
