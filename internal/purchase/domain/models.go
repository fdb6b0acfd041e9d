// Package domain contains persistence models for the purchase ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PurchaseStatus represents lifecycle states for a purchase.
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusApproved  PurchaseStatus = "approved"
	PurchaseStatusRejected  PurchaseStatus = "rejected"
	PurchaseStatusCompleted PurchaseStatus = "completed"
)

// Terminal reports whether no further status change is allowed.
func (s PurchaseStatus) Terminal() bool {
	return s == PurchaseStatusRejected || s == PurchaseStatusCompleted
}

// PaymentOutcome is the logical result of a payment attempt, used as the
// idempotency key for RecordPayment together with the purchase ID.
type PaymentOutcome string

const (
	OutcomeSuccess PaymentOutcome = "success"
	OutcomeFailure PaymentOutcome = "failure"
)

// Purchase is a user's claim on a beat. The Beat* columns are a snapshot
// taken at checkout; catalog edits after purchase never touch them.
type Purchase struct {
	ID     snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID string       `json:"user_id" gorm:"type:text;not null;index:idx_purchases_user_beat"`
	BeatID snowflake.ID `json:"beat_id" gorm:"not null;index:idx_purchases_user_beat;index"`

	BeatTitle    string `json:"beat_title" gorm:"type:text;not null"`
	BeatProducer string `json:"beat_producer" gorm:"type:text;not null"`
	BeatAudioURL string `json:"beat_audio_url" gorm:"type:text;not null"`
	BeatImageURL string `json:"beat_image_url" gorm:"type:text"`
	AmountCents  int64  `json:"amount_cents" gorm:"not null"`
	Exclusive    bool   `json:"exclusive" gorm:"not null;default:false"`

	Status      PurchaseStatus `json:"status" gorm:"type:text;not null"`
	PurchasedAt time.Time      `json:"purchased_at" gorm:"not null"`
	ApprovedAt  *time.Time     `json:"approved_at"`
	ApprovedBy  *string        `json:"approved_by" gorm:"type:text"`
	Notes       string         `json:"notes" gorm:"type:text"`
}

func (Purchase) TableName() string { return "purchases" }

// Active reports whether the purchase blocks a new attempt for the same
// (user, beat) pair. A prior rejection does not.
func (p Purchase) Active() bool {
	return p.Status == PurchaseStatusPending ||
		p.Status == PurchaseStatusApproved ||
		p.Status == PurchaseStatusCompleted
}
