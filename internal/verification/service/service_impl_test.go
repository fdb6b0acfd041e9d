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
	"github.com/jose32011/beatbazaar/internal/verification/domain"
	"github.com/jose32011/beatbazaar/internal/verification/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type capturedSend struct {
	userID   string
	codeType domain.CodeType
	code     string
}

type captureNotifier struct {
	sent []capturedSend
	fail bool
}

func (n *captureNotifier) SendCode(_ context.Context, userID string, codeType domain.CodeType, code string) error {
	n.sent = append(n.sent, capturedSend{userID: userID, codeType: codeType, code: code})
	if n.fail {
		return fmt.Errorf("smtp unreachable")
	}
	return nil
}

func newVerificationService(t *testing.T, notifier domain.Notifier) (domain.Service, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.VerificationCode{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := NewService(ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     repository.Provide(),
		Notifier: notifier,
		Cfg:      config.Config{TxTimeoutSeconds: 5},
	})
	return svc, clk
}

func TestIssueAndVerify_SingleUse(t *testing.T) {
	notifier := &captureNotifier{}
	svc, _ := newVerificationService(t, notifier)
	ctx := context.Background()

	code, err := svc.Issue(ctx, "user-1", domain.CodeTypePasswordReset)
	require.NoError(t, err)
	assert.Len(t, code.Code, 6)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, code.Code, notifier.sent[0].code)

	require.NoError(t, svc.Verify(ctx, "user-1", domain.CodeTypePasswordReset, code.Code))

	// Consumed means gone; the replay never re-succeeds.
	err = svc.Verify(ctx, "user-1", domain.CodeTypePasswordReset, code.Code)
	assert.ErrorIs(t, err, domain.ErrCodeNotFound)
}

func TestVerify_Expired(t *testing.T) {
	svc, clk := newVerificationService(t, &captureNotifier{})
	ctx := context.Background()

	code, err := svc.Issue(ctx, "user-1", domain.CodeTypePasswordReset)
	require.NoError(t, err)

	clk.Advance(16 * time.Minute)
	err = svc.Verify(ctx, "user-1", domain.CodeTypePasswordReset, code.Code)
	assert.ErrorIs(t, err, domain.ErrCodeExpired)
}

func TestVerify_Mismatch(t *testing.T) {
	svc, _ := newVerificationService(t, &captureNotifier{})
	ctx := context.Background()

	code, err := svc.Issue(ctx, "user-1", domain.CodeTypePasswordReset)
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code.Code {
		wrong = "000001"
	}
	err = svc.Verify(ctx, "user-1", domain.CodeTypePasswordReset, wrong)
	assert.ErrorIs(t, err, domain.ErrCodeMismatch)

	// The mismatch does not consume the real code.
	require.NoError(t, svc.Verify(ctx, "user-1", domain.CodeTypePasswordReset, code.Code))
}

func TestIssue_ReplacesPriorCode(t *testing.T) {
	svc, _ := newVerificationService(t, &captureNotifier{})
	ctx := context.Background()

	first, err := svc.Issue(ctx, "user-1", domain.CodeTypePasswordReset)
	require.NoError(t, err)
	second, err := svc.Issue(ctx, "user-1", domain.CodeTypePasswordReset)
	require.NoError(t, err)

	if first.Code != second.Code {
		err = svc.Verify(ctx, "user-1", domain.CodeTypePasswordReset, first.Code)
		assert.ErrorIs(t, err, domain.ErrCodeMismatch)
	}
	require.NoError(t, svc.Verify(ctx, "user-1", domain.CodeTypePasswordReset, second.Code))
}

func TestIssue_DeliveryFailureStillIssues(t *testing.T) {
	notifier := &captureNotifier{fail: true}
	svc, _ := newVerificationService(t, notifier)
	ctx := context.Background()

	code, err := svc.Issue(ctx, "user-1", domain.CodeTypePasswordReset)
	require.NoError(t, err)

	// The code is valid whether or not the message arrived.
	require.NoError(t, svc.Verify(ctx, "user-1", domain.CodeTypePasswordReset, code.Code))
}

func TestPurgeExpired_KeepsRecentlyExpired(t *testing.T) {
	svc, clk := newVerificationService(t, &captureNotifier{})
	ctx := context.Background()

	code, err := svc.Issue(ctx, "user-1", domain.CodeTypePasswordReset)
	require.NoError(t, err)

	// One hour past expiry is still inside the retention window, so a late
	// Verify reports expiry rather than absence.
	clk.Advance(codeTTL + time.Hour)
	purged, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, purged)

	err = svc.Verify(ctx, "user-1", domain.CodeTypePasswordReset, code.Code)
	assert.ErrorIs(t, err, domain.ErrCodeExpired)

	clk.Advance(purgeRetention)
	purged, err = svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	err = svc.Verify(ctx, "user-1", domain.CodeTypePasswordReset, code.Code)
	assert.ErrorIs(t, err, domain.ErrCodeNotFound)
}
