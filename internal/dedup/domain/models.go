// Package domain describes the duplicate-purchase repair pass. Duplicate
// rows accumulate from retried checkouts; the sweeper restores the
// one-active-purchase-per-user-and-beat rule without guessing at
// business decisions.
package domain

import (
	"github.com/bwmarrin/snowflake"
	purchasedomain "github.com/jose32011/beatbazaar/internal/purchase/domain"
)

// GroupKey identifies a set of purchases sharing the same user and beat.
type GroupKey struct {
	UserID string       `json:"user_id"`
	BeatID snowflake.ID `json:"beat_id"`
}

// DuplicateGroup is a set of two or more purchases for the same key.
type DuplicateGroup struct {
	Key       GroupKey                  `json:"key"`
	Purchases []purchasedomain.Purchase `json:"purchases"`
}

// Resolution reports what a sweep did to one group.
type Resolution struct {
	Key         GroupKey     `json:"key"`
	CanonicalID snowflake.ID `json:"canonical_id,omitempty"`

	// DeletedPurchases and DeletedPayments count removed rows. Both are
	// zero when the group was already resolved or was skipped.
	DeletedPurchases int `json:"deleted_purchases"`
	DeletedPayments  int `json:"deleted_payments"`

	// Skipped is set when the group cannot be resolved mechanically,
	// e.g. more than one completed purchase. Reason explains why.
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
}

// SweepReport aggregates one operator-triggered run.
type SweepReport struct {
	GroupsFound  int          `json:"groups_found"`
	GroupsSwept  int          `json:"groups_swept"`
	GroupsFailed int          `json:"groups_failed"`
	Resolutions  []Resolution `json:"resolutions"`
}
