package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/jose32011/beatbazaar/internal/clock"
	"github.com/jose32011/beatbazaar/internal/config"
	"github.com/jose32011/beatbazaar/internal/purchase/domain"
	"github.com/jose32011/beatbazaar/internal/purchase/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Purchase{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
		Cfg:   config.Config{TxTimeoutSeconds: 5},
	})
	return svc, db, node
}

func createRequest(beatID snowflake.ID, userID string, exclusive bool) domain.CreateRequest {
	return domain.CreateRequest{
		UserID:       userID,
		BeatID:       beatID,
		BeatTitle:    "Midnight Drive",
		BeatProducer: "Kato",
		BeatAudioURL: "/media/audio/midnight-drive.mp3",
		AmountCents:  999,
		Exclusive:    exclusive,
	}
}

func TestCreate_DuplicateActivePurchase(t *testing.T) {
	svc, _, node := newTestService(t)
	ctx := context.Background()
	beatID := node.Generate()

	first, err := svc.Create(ctx, createRequest(beatID, "user-1", false))
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseStatusPending, first.Status)

	_, err = svc.Create(ctx, createRequest(beatID, "user-1", false))
	assert.ErrorIs(t, err, domain.ErrDuplicateActivePurchase)

	// A different user is not blocked on a non-exclusive beat.
	_, err = svc.Create(ctx, createRequest(beatID, "user-2", false))
	assert.NoError(t, err)
}

func TestCreate_AfterRejectionSucceeds(t *testing.T) {
	svc, _, node := newTestService(t)
	ctx := context.Background()
	beatID := node.Generate()

	first, err := svc.Create(ctx, createRequest(beatID, "user-1", false))
	require.NoError(t, err)

	_, err = svc.Reject(ctx, first.ID, "admin-1", "card declined")
	require.NoError(t, err)

	_, err = svc.Create(ctx, createRequest(beatID, "user-1", false))
	assert.NoError(t, err)
}

func TestCreate_ExclusiveBeatAlreadySold(t *testing.T) {
	svc, _, node := newTestService(t)
	ctx := context.Background()
	beatID := node.Generate()

	winner, err := svc.Create(ctx, createRequest(beatID, "user-1", true))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, winner.ID, "admin-1")
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, winner.ID, domain.OutcomeSuccess)
	require.NoError(t, err)

	_, err = svc.Create(ctx, createRequest(beatID, "user-2", true))
	assert.ErrorIs(t, err, domain.ErrDuplicateActivePurchase)
}

func TestRecordPayment_NonExclusiveCompletes(t *testing.T) {
	svc, _, node := newTestService(t)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, createRequest(node.Generate(), "user-1", false))
	require.NoError(t, err)

	updated, err := svc.RecordPayment(ctx, purchase.ID, domain.OutcomeSuccess)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseStatusCompleted, updated.Status)
}

func TestRecordPayment_Idempotent(t *testing.T) {
	svc, _, node := newTestService(t)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, createRequest(node.Generate(), "user-1", false))
	require.NoError(t, err)

	first, err := svc.RecordPayment(ctx, purchase.ID, domain.OutcomeSuccess)
	require.NoError(t, err)

	second, err := svc.RecordPayment(ctx, purchase.ID, domain.OutcomeSuccess)
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
}

func TestRecordPayment_ConflictingOutcomeOnTerminal(t *testing.T) {
	svc, _, node := newTestService(t)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, createRequest(node.Generate(), "user-1", false))
	require.NoError(t, err)

	_, err = svc.RecordPayment(ctx, purchase.ID, domain.OutcomeSuccess)
	require.NoError(t, err)

	// A late failure against a completed purchase surfaces, never vanishes.
	_, err = svc.RecordPayment(ctx, purchase.ID, domain.OutcomeFailure)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRecordPayment_FailureRejects(t *testing.T) {
	svc, _, node := newTestService(t)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, createRequest(node.Generate(), "user-1", false))
	require.NoError(t, err)

	updated, err := svc.RecordPayment(ctx, purchase.ID, domain.OutcomeFailure)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseStatusRejected, updated.Status)

	// Replaying the failure is a no-op.
	again, err := svc.RecordPayment(ctx, purchase.ID, domain.OutcomeFailure)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseStatusRejected, again.Status)
}

func TestRecordPayment_ExclusivePendingWaitsForApproval(t *testing.T) {
	svc, _, node := newTestService(t)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, createRequest(node.Generate(), "user-1", true))
	require.NoError(t, err)

	// Payment success alone cannot complete an exclusive purchase.
	updated, err := svc.RecordPayment(ctx, purchase.ID, domain.OutcomeSuccess)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseStatusPending, updated.Status)

	_, err = svc.Approve(ctx, purchase.ID, "admin-1")
	require.NoError(t, err)

	updated, err = svc.RecordPayment(ctx, purchase.ID, domain.OutcomeSuccess)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseStatusCompleted, updated.Status)
}

func TestFinalizeExclusive_RejectsSiblings(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()
	beatID := node.Generate()

	winner, err := svc.Create(ctx, createRequest(beatID, "user-1", true))
	require.NoError(t, err)
	loser, err := svc.Create(ctx, createRequest(beatID, "user-2", true))
	require.NoError(t, err)

	require.NoError(t, svc.FinalizeExclusive(ctx, beatID, winner.ID, "admin-1"))

	// Fresh destination structs: gorm folds a populated primary key into
	// the WHERE clause.
	var gotWinner domain.Purchase
	require.NoError(t, db.First(&gotWinner, "id = ?", winner.ID).Error)
	assert.Equal(t, domain.PurchaseStatusCompleted, gotWinner.Status)

	var gotLoser domain.Purchase
	require.NoError(t, db.First(&gotLoser, "id = ?", loser.ID).Error)
	assert.Equal(t, domain.PurchaseStatusRejected, gotLoser.Status)

	// Re-running the finalization changes nothing.
	require.NoError(t, svc.FinalizeExclusive(ctx, beatID, winner.ID, "admin-1"))
}

func TestFinalizeExclusive_ForeignWinnerFails(t *testing.T) {
	svc, _, node := newTestService(t)
	ctx := context.Background()
	beatID := node.Generate()

	winner, err := svc.Create(ctx, createRequest(beatID, "user-1", true))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, winner.ID, "admin-1")
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, winner.ID, domain.OutcomeSuccess)
	require.NoError(t, err)

	challenger, err := svc.Create(ctx, createRequest(beatID, "user-2", false))
	require.NoError(t, err)

	err = svc.FinalizeExclusive(ctx, beatID, challenger.ID, "admin-1")
	assert.ErrorIs(t, err, domain.ErrExclusivityViolation)
}

func TestAppendNote_OnTerminalPurchase(t *testing.T) {
	svc, _, node := newTestService(t)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, createRequest(node.Generate(), "user-1", false))
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, purchase.ID, domain.OutcomeSuccess)
	require.NoError(t, err)

	// Terminal states stay immutable except for notes.
	require.NoError(t, svc.AppendNote(ctx, purchase.ID, "customer contacted support"))

	got, err := svc.Get(ctx, purchase.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Notes, "customer contacted support")
}
