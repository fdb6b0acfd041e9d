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
	"github.com/jose32011/beatbazaar/internal/dedup/domain"
	"github.com/jose32011/beatbazaar/internal/dedup/repository"
	paymentdomain "github.com/jose32011/beatbazaar/internal/payment/domain"
	paymentrepository "github.com/jose32011/beatbazaar/internal/payment/repository"
	purchasedomain "github.com/jose32011/beatbazaar/internal/purchase/domain"
	purchaserepository "github.com/jose32011/beatbazaar/internal/purchase/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type dedupFixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	dedup domain.Service
	base  time.Time
}

func newDedupFixture(t *testing.T) *dedupFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&purchasedomain.Purchase{},
		&paymentdomain.PaymentRecord{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	audit := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Clock: clock.NewFakeClock(base),
		Repo: auditrepository.Provide(),
	})
	dedup := NewService(ServiceParam{
		DB:        db,
		Log:       log,
		Repo:      repository.Provide(),
		Purchases: purchaserepository.Provide(),
		Payments:  paymentrepository.Provide(),
		Audit:     audit,
		Cfg:       config.Config{TxTimeoutSeconds: 5},
	})
	return &dedupFixture{db: db, node: node, dedup: dedup, base: base}
}

// insertPurchase writes a purchase row directly; the normal create path
// refuses the duplicates these tests need.
func (f *dedupFixture) insertPurchase(t *testing.T, userID string, beatID snowflake.ID, status purchasedomain.PurchaseStatus, offset time.Duration) purchasedomain.Purchase {
	t.Helper()
	purchase := purchasedomain.Purchase{
		ID:           f.node.Generate(),
		UserID:       userID,
		BeatID:       beatID,
		BeatTitle:    "Encore",
		BeatProducer: "Kato",
		BeatAudioURL: "/media/audio/encore.mp3",
		AmountCents:  999,
		Status:       status,
		PurchasedAt:  f.base.Add(offset),
	}
	require.NoError(t, f.db.Create(&purchase).Error)
	return purchase
}

func (f *dedupFixture) insertPayment(t *testing.T, purchaseID snowflake.ID, status paymentdomain.PaymentStatus) {
	t.Helper()
	record := paymentdomain.PaymentRecord{
		ID:            f.node.Generate(),
		PurchaseID:    purchaseID,
		CustomerID:    "user-1",
		AmountCents:   999,
		Currency:      "USD",
		Status:        status,
		BankReference: fmt.Sprintf("ref-%d", f.node.Generate()),
		CreatedAt:     f.base,
		UpdatedAt:     f.base,
	}
	require.NoError(t, f.db.Create(&record).Error)
}

func (f *dedupFixture) countPurchases(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&purchasedomain.Purchase{}).Count(&count).Error)
	return count
}

func TestResolveGroup_CompletedWins(t *testing.T) {
	f := newDedupFixture(t)
	ctx := context.Background()
	beatID := f.node.Generate()

	// The completed row is neither the earliest nor the latest.
	pendingA := f.insertPurchase(t, "user-1", beatID, purchasedomain.PurchaseStatusPending, 0)
	completed := f.insertPurchase(t, "user-1", beatID, purchasedomain.PurchaseStatusCompleted, time.Minute)
	pendingB := f.insertPurchase(t, "user-1", beatID, purchasedomain.PurchaseStatusPending, 2*time.Minute)
	f.insertPayment(t, pendingA.ID, paymentdomain.PaymentStatusPending)
	f.insertPayment(t, pendingB.ID, paymentdomain.PaymentStatusPending)

	resolution, err := f.dedup.ResolveGroup(ctx, domain.GroupKey{UserID: "user-1", BeatID: beatID})
	require.NoError(t, err)
	assert.Equal(t, completed.ID, resolution.CanonicalID)
	assert.Equal(t, 2, resolution.DeletedPurchases)
	assert.Equal(t, 2, resolution.DeletedPayments)
	assert.EqualValues(t, 1, f.countPurchases(t))

	var remaining purchasedomain.Purchase
	require.NoError(t, f.db.First(&remaining).Error)
	assert.Equal(t, completed.ID, remaining.ID)
}

func TestResolveGroup_EarliestWinsWithoutCompleted(t *testing.T) {
	f := newDedupFixture(t)
	ctx := context.Background()
	beatID := f.node.Generate()

	earliest := f.insertPurchase(t, "user-1", beatID, purchasedomain.PurchaseStatusPending, 0)
	f.insertPurchase(t, "user-1", beatID, purchasedomain.PurchaseStatusPending, time.Minute)

	resolution, err := f.dedup.ResolveGroup(ctx, domain.GroupKey{UserID: "user-1", BeatID: beatID})
	require.NoError(t, err)
	assert.Equal(t, earliest.ID, resolution.CanonicalID)
	assert.Equal(t, 1, resolution.DeletedPurchases)
}

func TestResolveGroup_SecondRunIsNoOp(t *testing.T) {
	f := newDedupFixture(t)
	ctx := context.Background()
	beatID := f.node.Generate()
	key := domain.GroupKey{UserID: "user-1", BeatID: beatID}

	f.insertPurchase(t, "user-1", beatID, purchasedomain.PurchaseStatusPending, 0)
	f.insertPurchase(t, "user-1", beatID, purchasedomain.PurchaseStatusPending, time.Minute)

	first, err := f.dedup.ResolveGroup(ctx, key)
	require.NoError(t, err)
	require.Equal(t, 1, first.DeletedPurchases)

	second, err := f.dedup.ResolveGroup(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, first.CanonicalID, second.CanonicalID)
	assert.Equal(t, 0, second.DeletedPurchases)
}

func TestResolveGroup_TwoCompletedIsAmbiguous(t *testing.T) {
	f := newDedupFixture(t)
	ctx := context.Background()
	beatID := f.node.Generate()

	f.insertPurchase(t, "user-1", beatID, purchasedomain.PurchaseStatusCompleted, 0)
	f.insertPurchase(t, "user-1", beatID, purchasedomain.PurchaseStatusCompleted, time.Minute)

	resolution, err := f.dedup.ResolveGroup(ctx, domain.GroupKey{UserID: "user-1", BeatID: beatID})
	assert.ErrorIs(t, err, domain.ErrAmbiguousGroup)
	assert.True(t, resolution.Skipped)

	// Nothing is deleted; the group is reported, not repaired.
	assert.EqualValues(t, 2, f.countPurchases(t))
}

func TestFindDuplicateGroups(t *testing.T) {
	f := newDedupFixture(t)
	ctx := context.Background()
	beatA := f.node.Generate()
	beatB := f.node.Generate()

	f.insertPurchase(t, "user-1", beatA, purchasedomain.PurchaseStatusPending, 0)
	f.insertPurchase(t, "user-1", beatA, purchasedomain.PurchaseStatusPending, time.Minute)
	// Singles are not groups.
	f.insertPurchase(t, "user-1", beatB, purchasedomain.PurchaseStatusPending, 0)
	f.insertPurchase(t, "user-2", beatA, purchasedomain.PurchaseStatusPending, 0)

	groups, err := f.dedup.FindDuplicateGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "user-1", groups[0].Key.UserID)
	assert.Equal(t, beatA, groups[0].Key.BeatID)
	assert.Len(t, groups[0].Purchases, 2)
}

func TestSweep_ReportsAndAudits(t *testing.T) {
	f := newDedupFixture(t)
	ctx := context.Background()
	beatA := f.node.Generate()
	beatB := f.node.Generate()

	// One sweepable group and one ambiguous one.
	f.insertPurchase(t, "user-1", beatA, purchasedomain.PurchaseStatusPending, 0)
	f.insertPurchase(t, "user-1", beatA, purchasedomain.PurchaseStatusCompleted, time.Minute)
	f.insertPurchase(t, "user-2", beatB, purchasedomain.PurchaseStatusCompleted, 0)
	f.insertPurchase(t, "user-2", beatB, purchasedomain.PurchaseStatusCompleted, time.Minute)

	report, err := f.dedup.Sweep(ctx, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 2, report.GroupsFound)
	assert.Equal(t, 1, report.GroupsSwept)
	assert.Equal(t, 1, report.GroupsFailed)
	require.Len(t, report.Resolutions, 2)

	var logs []auditdomain.AuditLog
	require.NoError(t, f.db.Find(&logs, "action = ?", "dedup.sweep").Error)
	assert.Len(t, logs, 1)
}

func TestSweep_RequiresAdmin(t *testing.T) {
	f := newDedupFixture(t)
	_, err := f.dedup.Sweep(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
