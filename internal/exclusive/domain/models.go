// Package domain contains the manual-review overlay for exclusive beats.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCompleted RequestStatus = "completed"
)

func (s RequestStatus) Terminal() bool {
	return s == RequestStatusRejected || s == RequestStatusCompleted
}

// ExclusivePurchaseRequest shadows a Purchase for an exclusive beat. It
// holds a one-way foreign key to the purchase; the reverse lookup goes
// through the beat_id index, never a stored back-pointer.
type ExclusivePurchaseRequest struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID     string       `json:"user_id" gorm:"type:text;not null;index"`
	BeatID     snowflake.ID `json:"beat_id" gorm:"not null;index"`
	PurchaseID snowflake.ID `json:"purchase_id" gorm:"not null;index"`

	AmountCents   int64         `json:"amount_cents" gorm:"not null"`
	Status        RequestStatus `json:"status" gorm:"type:text;not null"`
	AdminNotes    string        `json:"admin_notes" gorm:"type:text"`
	PaymentMethod string        `json:"payment_method" gorm:"type:text"`
	PaymentID     *snowflake.ID `json:"payment_id"`

	ApprovedBy  *string    `json:"approved_by" gorm:"type:text"`
	ApprovedAt  *time.Time `json:"approved_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"not null"`
}

func (ExclusivePurchaseRequest) TableName() string { return "exclusive_purchase_requests" }
