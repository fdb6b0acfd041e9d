package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, request *ExclusivePurchaseRequest) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ExclusivePurchaseRequest, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ExclusivePurchaseRequest, error)
	ListByBeatForUpdate(ctx context.Context, db *gorm.DB, beatID snowflake.ID) ([]ExclusivePurchaseRequest, error)
	ListPending(ctx context.Context, db *gorm.DB) ([]ExclusivePurchaseRequest, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, updates map[string]any) error
}
