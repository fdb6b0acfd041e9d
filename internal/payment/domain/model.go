// Package domain contains persistence models for payment records and
// provider callback events.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Open reports whether the record still occupies the purchase's single
// in-flight payment slot.
func (s PaymentStatus) Open() bool {
	return s == PaymentStatusPending || s == PaymentStatusApproved
}

// PaymentRecord tracks one attempt to move money for a purchase. A purchase
// may accumulate several records over its life (failed attempt, retry), but
// at most one may be pending or approved at a time.
type PaymentRecord struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	PurchaseID snowflake.ID `json:"purchase_id" gorm:"not null;index"`
	CustomerID string       `json:"customer_id" gorm:"type:text;not null;index"`

	AmountCents int64  `json:"amount_cents" gorm:"not null"`
	Currency    string `json:"currency" gorm:"type:text;not null"`
	Method      string `json:"method" gorm:"type:text;not null"`

	Status PaymentStatus `json:"status" gorm:"type:text;not null"`

	// BankReference is our correlation handle given to the provider at open
	// time; TransactionID is the provider's identifier stamped on confirm.
	BankReference string `json:"bank_reference" gorm:"type:text;not null;index"`
	TransactionID string `json:"transaction_id" gorm:"type:text;index"`

	ApprovedBy *string    `json:"approved_by" gorm:"type:text"`
	ApprovedAt *time.Time `json:"approved_at"`
	Notes      string     `json:"notes" gorm:"type:text"`
	CreatedAt  time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"not null"`
}

func (PaymentRecord) TableName() string { return "payment_records" }

// EventRecord stores every provider callback once, keyed by
// (provider, provider_event_id), so at-least-once deliveries collapse to a
// single processing pass.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null;uniqueIndex:idx_payment_events_provider_event"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:idx_payment_events_provider_event"`
	TransactionID   string         `json:"transaction_id" gorm:"type:text;index"`
	Reference       string         `json:"reference" gorm:"type:text;index"`
	Status          string         `json:"status" gorm:"type:text;not null"`
	AmountCents     int64          `json:"amount_cents" gorm:"not null"`
	Currency        string         `json:"currency" gorm:"type:text;not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

const (
	EventStatusApproved = "approved"
	EventStatusFailed   = "failed"
)
