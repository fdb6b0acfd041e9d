package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/jose32011/beatbazaar/internal/audit/domain"
	auditrepository "github.com/jose32011/beatbazaar/internal/audit/repository"
	auditservice "github.com/jose32011/beatbazaar/internal/audit/service"
	"github.com/jose32011/beatbazaar/internal/clock"
	"github.com/jose32011/beatbazaar/internal/config"
	"github.com/jose32011/beatbazaar/internal/exclusive/domain"
	"github.com/jose32011/beatbazaar/internal/exclusive/repository"
	paymentdomain "github.com/jose32011/beatbazaar/internal/payment/domain"
	paymentrepository "github.com/jose32011/beatbazaar/internal/payment/repository"
	paymentservice "github.com/jose32011/beatbazaar/internal/payment/service"
	purchasedomain "github.com/jose32011/beatbazaar/internal/purchase/domain"
	purchaserepository "github.com/jose32011/beatbazaar/internal/purchase/repository"
	purchaseservice "github.com/jose32011/beatbazaar/internal/purchase/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type exclusiveFixture struct {
	db        *gorm.DB
	node      *snowflake.Node
	ledger    purchasedomain.Service
	payments  paymentdomain.Service
	exclusive domain.Service
}

func newExclusiveFixture(t *testing.T) *exclusiveFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&purchasedomain.Purchase{},
		&paymentdomain.PaymentRecord{},
		&domain.ExclusivePurchaseRequest{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cfg := config.Config{TxTimeoutSeconds: 5}

	ledger := purchaseservice.NewService(purchaseservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo: purchaserepository.Provide(), Cfg: cfg,
	})
	audit := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo: auditrepository.Provide(),
	})
	payments := paymentservice.NewService(paymentservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo: paymentrepository.Provide(), PurchaseRepo: purchaserepository.Provide(),
		Ledger: ledger, Audit: audit, Cfg: cfg,
	})
	exclusive := NewService(ServiceParam{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo:         repository.Provide(),
		PurchaseRepo: purchaserepository.Provide(),
		PaymentRepo:  paymentrepository.Provide(),
		Audit:        audit,
		Cfg:          cfg,
	})
	return &exclusiveFixture{db: db, node: node, ledger: ledger, payments: payments, exclusive: exclusive}
}

// openExclusive creates the purchase and its review request the way checkout
// does for an exclusive beat.
func (f *exclusiveFixture) openExclusive(t *testing.T, beatID snowflake.ID, userID string) (purchasedomain.Purchase, domain.ExclusivePurchaseRequest) {
	t.Helper()
	ctx := context.Background()

	purchase, err := f.ledger.Create(ctx, purchasedomain.CreateRequest{
		UserID:       userID,
		BeatID:       beatID,
		BeatTitle:    "One Take",
		BeatProducer: "Kato",
		BeatAudioURL: "/media/audio/one-take.mp3",
		AmountCents:  49999,
		Exclusive:    true,
	})
	require.NoError(t, err)

	request, err := f.exclusive.Open(ctx, domain.OpenRequest{
		UserID:        userID,
		BeatID:        beatID,
		PurchaseID:    purchase.ID,
		AmountCents:   purchase.AmountCents,
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, request.Status)
	return purchase, request
}

func (f *exclusiveFixture) confirmPayment(t *testing.T, purchase purchasedomain.Purchase) {
	t.Helper()
	ctx := context.Background()
	record, err := f.payments.Open(ctx, paymentdomain.OpenRequest{
		PurchaseID:  purchase.ID,
		CustomerID:  purchase.UserID,
		AmountCents: purchase.AmountCents,
		Method:      "card",
	})
	require.NoError(t, err)
	_, err = f.payments.Confirm(ctx, paymentdomain.ConfirmRequest{
		PaymentID:     record.ID,
		TransactionID: "tx-" + record.BankReference,
		ApprovedBy:    "fakebank",
	})
	require.NoError(t, err)
}

func TestApprove_SecondRequestBlocked(t *testing.T) {
	f := newExclusiveFixture(t)
	ctx := context.Background()
	beatID := f.node.Generate()

	_, requestX := f.openExclusive(t, beatID, "user-x")
	_, requestY := f.openExclusive(t, beatID, "user-y")

	_, err := f.exclusive.Approve(ctx, requestY.ID, "admin-1")
	require.NoError(t, err)

	_, err = f.exclusive.Approve(ctx, requestX.ID, "admin-1")
	assert.ErrorIs(t, err, purchasedomain.ErrExclusivityViolation)
}

func TestApprove_RequiresPendingRequest(t *testing.T) {
	f := newExclusiveFixture(t)
	ctx := context.Background()
	_, request := f.openExclusive(t, f.node.Generate(), "user-1")

	_, err := f.exclusive.Reject(ctx, request.ID, "admin-1", "identity check failed")
	require.NoError(t, err)

	_, err = f.exclusive.Approve(ctx, request.ID, "admin-1")
	assert.ErrorIs(t, err, domain.ErrRequestNotPending)
}

func TestConfirmAndComplete_RequiresApprovedPayment(t *testing.T) {
	f := newExclusiveFixture(t)
	ctx := context.Background()
	_, request := f.openExclusive(t, f.node.Generate(), "user-1")

	_, err := f.exclusive.Approve(ctx, request.ID, "admin-1")
	require.NoError(t, err)

	_, err = f.exclusive.ConfirmAndComplete(ctx, request.ID, "admin-1")
	assert.ErrorIs(t, err, paymentdomain.ErrPaymentNotApproved)
}

func TestConfirmAndComplete_SingleWinner(t *testing.T) {
	f := newExclusiveFixture(t)
	ctx := context.Background()
	beatID := f.node.Generate()

	purchaseX, requestX := f.openExclusive(t, beatID, "user-x")
	purchaseY, requestY := f.openExclusive(t, beatID, "user-y")

	_, err := f.exclusive.Approve(ctx, requestY.ID, "admin-1")
	require.NoError(t, err)
	f.confirmPayment(t, purchaseY)

	completed, err := f.exclusive.ConfirmAndComplete(ctx, requestY.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusCompleted, completed.Status)
	require.NotNil(t, completed.PaymentID)

	gotY, err := f.ledger.Get(ctx, purchaseY.ID)
	require.NoError(t, err)
	assert.Equal(t, purchasedomain.PurchaseStatusCompleted, gotY.Status)

	gotX, err := f.ledger.Get(ctx, purchaseX.ID)
	require.NoError(t, err)
	assert.Equal(t, purchasedomain.PurchaseStatusRejected, gotX.Status)

	lostX, err := f.exclusive.Get(ctx, requestX.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusRejected, lostX.Status)
	assert.Contains(t, lostX.AdminNotes, "sold exclusively")
}

func TestConfirmAndComplete_ReplayIsNoOp(t *testing.T) {
	f := newExclusiveFixture(t)
	ctx := context.Background()
	purchase, request := f.openExclusive(t, f.node.Generate(), "user-1")

	_, err := f.exclusive.Approve(ctx, request.ID, "admin-1")
	require.NoError(t, err)
	f.confirmPayment(t, purchase)

	first, err := f.exclusive.ConfirmAndComplete(ctx, request.ID, "admin-1")
	require.NoError(t, err)

	second, err := f.exclusive.ConfirmAndComplete(ctx, request.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.CompletedAt, second.CompletedAt)
}

func TestReject_RejectsLinkedPurchase(t *testing.T) {
	f := newExclusiveFixture(t)
	ctx := context.Background()
	purchase, request := f.openExclusive(t, f.node.Generate(), "user-1")

	rejected, err := f.exclusive.Reject(ctx, request.ID, "admin-1", "payment risk")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusRejected, rejected.Status)

	got, err := f.ledger.Get(ctx, purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, purchasedomain.PurchaseStatusRejected, got.Status)

	_, err = f.exclusive.Reject(ctx, request.ID, "admin-1", "again")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestDecisions_AreAudited(t *testing.T) {
	f := newExclusiveFixture(t)
	ctx := context.Background()
	purchase, request := f.openExclusive(t, f.node.Generate(), "user-1")

	_, err := f.exclusive.Approve(ctx, request.ID, "admin-1")
	require.NoError(t, err)
	f.confirmPayment(t, purchase)
	_, err = f.exclusive.ConfirmAndComplete(ctx, request.ID, "admin-1")
	require.NoError(t, err)

	var actions []string
	require.NoError(t, f.db.Model(&auditdomain.AuditLog{}).
		Where("target_type = ?", "exclusive_request").
		Order("id ASC").
		Pluck("action", &actions).Error)
	assert.Equal(t, []string{"exclusive.approve", "exclusive.complete"}, actions)
}
