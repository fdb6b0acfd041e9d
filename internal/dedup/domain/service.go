package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repository interface {
	// FindDuplicateKeys returns every (user, beat) pair with more than
	// one purchase row, regardless of status.
	FindDuplicateKeys(ctx context.Context, db *gorm.DB) ([]GroupKey, error)
}

type Service interface {
	// FindDuplicateGroups lists current violations without mutating
	// anything.
	FindDuplicateGroups(ctx context.Context) ([]DuplicateGroup, error)

	// ResolveGroup repairs a single group transactionally. The canonical
	// row is the sole completed purchase when one exists, otherwise the
	// earliest by purchasedAt. A group holding more than one completed
	// purchase is skipped with ErrExclusivityViolation semantics in the
	// resolution, never auto-resolved. Running it twice is a no-op.
	ResolveGroup(ctx context.Context, key GroupKey) (Resolution, error)

	// Sweep resolves every duplicate group found, attributed to the
	// triggering admin for audit.
	Sweep(ctx context.Context, adminID string) (SweepReport, error)
}

var (
	ErrAmbiguousGroup = errors.New("ambiguous_duplicate_group")
	ErrInvalidRequest = errors.New("invalid_request")
)
