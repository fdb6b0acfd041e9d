package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/jose32011/beatbazaar/internal/audit/domain"
	"github.com/jose32011/beatbazaar/internal/audit/repository"
	"github.com/jose32011/beatbazaar/internal/clock"
	"github.com/jose32011/beatbazaar/pkg/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newAuditService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return svc, clk
}

func TestRecord_StampsCorrelationID(t *testing.T) {
	svc, _ := newAuditService(t)
	ctx := correlation.WithCorrelationID(context.Background(), "corr-123")
	admin := "admin-1"
	target := "42"

	require.NoError(t, svc.Record(ctx, domain.ActorTypeAdmin, &admin, "payment.refund", "payment_record", &target, map[string]any{
		"amount_cents": 999,
	}))

	logs, err := svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "payment.refund", logs[0].Action)
	assert.Equal(t, "corr-123", logs[0].Metadata["correlation_id"])
	require.NotNil(t, logs[0].ActorID)
	assert.Equal(t, "admin-1", *logs[0].ActorID)
}

func TestRecord_RequiresAction(t *testing.T) {
	svc, _ := newAuditService(t)
	err := svc.Record(context.Background(), domain.ActorTypeSystem, nil, " ", "purchase", nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidAction)
}

func TestList_FiltersAndOrders(t *testing.T) {
	svc, clk := newAuditService(t)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, domain.ActorTypeSystem, nil, "dedup.sweep", "purchase_group", nil, nil))
	clk.Advance(time.Minute)
	require.NoError(t, svc.Record(ctx, domain.ActorTypeSystem, nil, "exclusive.approve", "exclusive_request", nil, nil))

	logs, err := svc.List(ctx, domain.ListFilter{Action: "dedup.sweep"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "dedup.sweep", logs[0].Action)

	// Newest first.
	logs, err = svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "exclusive.approve", logs[0].Action)

	start := clk.Now().Add(time.Hour)
	end := clk.Now()
	_, err = svc.List(ctx, domain.ListFilter{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, domain.ErrInvalidTimeRange)
}
