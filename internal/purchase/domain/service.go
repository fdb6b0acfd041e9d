package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// CreateRequest opens a pending purchase from a catalog snapshot.
type CreateRequest struct {
	UserID       string
	BeatID       snowflake.ID
	BeatTitle    string
	BeatProducer string
	BeatAudioURL string
	BeatImageURL string
	AmountCents  int64
	Exclusive    bool
}

type Service interface {
	// Create fails with ErrDuplicateActivePurchase when a pending, approved
	// or completed purchase already exists for the same user and beat, or
	// (exclusive beats) when any user already completed the beat.
	Create(ctx context.Context, req CreateRequest) (Purchase, error)

	// RecordPayment advances the purchase per the payment outcome. Applying
	// the same outcome twice is a no-op; a conflicting outcome against a
	// terminal status fails with ErrInvalidTransition.
	RecordPayment(ctx context.Context, purchaseID snowflake.ID, outcome PaymentOutcome) (Purchase, error)

	// Approve moves a pending exclusive purchase to approved with admin
	// attribution. Completion still requires a confirmed payment.
	Approve(ctx context.Context, purchaseID snowflake.ID, adminID string) (Purchase, error)

	// Reject moves a pending or approved purchase to rejected.
	Reject(ctx context.Context, purchaseID snowflake.ID, adminID string, reason string) (Purchase, error)

	// FinalizeExclusive completes the winning purchase and rejects every
	// other non-terminal purchase of the beat in one transaction.
	FinalizeExclusive(ctx context.Context, beatID, winnerID snowflake.ID, adminID string) error

	Get(ctx context.Context, purchaseID snowflake.ID) (Purchase, error)
	ListByUser(ctx context.Context, userID string) ([]Purchase, error)
	AppendNote(ctx context.Context, purchaseID snowflake.ID, note string) error
}

var (
	ErrDuplicateActivePurchase = errors.New("duplicate_active_purchase")
	ErrInvalidTransition       = errors.New("invalid_transition")
	ErrPurchaseNotPending      = errors.New("purchase_not_pending")
	ErrPurchaseNotFound        = errors.New("purchase_not_found")
	ErrExclusivityViolation    = errors.New("exclusivity_violation")
	ErrInvalidRequest          = errors.New("invalid_request")
)
