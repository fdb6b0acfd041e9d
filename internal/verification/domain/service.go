package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, code *VerificationCode) error
	FindUnusedForUpdate(ctx context.Context, db *gorm.DB, userID string, codeType CodeType) (*VerificationCode, error)
	InvalidateUnused(ctx context.Context, db *gorm.DB, userID string, codeType CodeType) error
	MarkUsed(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	DeleteExpiredBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
}

type Service interface {
	// Issue generates a fresh 6-digit code valid for 15 minutes and
	// invalidates any prior unconsumed code of the same type for the user:
	// at most one live code per user per type.
	Issue(ctx context.Context, userID string, codeType CodeType) (VerificationCode, error)

	// Verify consumes the code exactly once. A second call with the same
	// arguments fails with ErrCodeNotFound, never silently re-succeeds.
	Verify(ctx context.Context, userID string, codeType CodeType, code string) error

	// PurgeExpired garbage-collects long-expired codes. Best-effort; the
	// correctness of Verify never depends on it.
	PurgeExpired(ctx context.Context) (int64, error)
}

// Notifier delivers a code to the user over some out-of-band channel.
// Delivery is best-effort single attempt; a code is valid whether or not
// the message arrived.
type Notifier interface {
	SendCode(ctx context.Context, userID string, codeType CodeType, code string) error
}

var (
	ErrCodeNotFound   = errors.New("code_not_found")
	ErrCodeExpired    = errors.New("code_expired")
	ErrCodeMismatch   = errors.New("code_mismatch")
	ErrRateLimited    = errors.New("code_rate_limited")
	ErrInvalidRequest = errors.New("invalid_request")
)
