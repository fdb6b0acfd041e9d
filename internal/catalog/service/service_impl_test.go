package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/jose32011/beatbazaar/internal/catalog/domain"
	"github.com/jose32011/beatbazaar/internal/seed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newCatalogService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Beat{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParam{DB: db, Log: zap.NewNop()})
	return svc, db, node
}

func TestGetBeatBySlug(t *testing.T) {
	svc, db, node := newCatalogService(t)
	ctx := context.Background()

	beat := domain.Beat{
		ID:         node.Generate(),
		Title:      "Midnight Drive",
		Slug:       "midnight-drive",
		Producer:   "Kato",
		AudioURL:   "/media/audio/midnight-drive.mp3",
		PriceCents: 2999,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	require.NoError(t, db.Create(&beat).Error)

	got, err := svc.GetBeatBySlug(ctx, "midnight-drive")
	require.NoError(t, err)
	assert.Equal(t, beat.ID, got.ID)

	_, err = svc.GetBeatBySlug(ctx, "no-such-beat")
	assert.ErrorIs(t, err, domain.ErrBeatNotFound)

	_, err = svc.GetBeat(ctx, node.Generate())
	assert.ErrorIs(t, err, domain.ErrBeatNotFound)
}

func TestSeedDemoBeats_Idempotent(t *testing.T) {
	svc, db, _ := newCatalogService(t)
	ctx := context.Background()

	require.NoError(t, seed.EnsureDemoBeats(db))
	first, err := svc.ListBeats(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	require.NoError(t, seed.EnsureDemoBeats(db))
	second, err := svc.ListBeats(ctx)
	require.NoError(t, err)
	assert.Len(t, second, len(first))
}
