package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type OpenRequest struct {
	PurchaseID  snowflake.ID
	CustomerID  string
	AmountCents int64
	Currency    string
	Method      string
}

type ConfirmRequest struct {
	PaymentID     snowflake.ID
	TransactionID string
	// ApprovedBy attributes the confirmation: an admin identity for manual
	// approvals, or the provider name for webhook-driven ones.
	ApprovedBy string
}

type Service interface {
	// Open creates a pending record; fails with ErrPurchaseNotPending when
	// the purchase is terminal and ErrPaymentAlreadyOpen when another
	// record still holds the in-flight slot.
	Open(ctx context.Context, req OpenRequest) (PaymentRecord, error)

	// Confirm approves the record and drives the purchase ledger with a
	// success outcome. Confirming an already-approved record is a no-op
	// that returns the existing record.
	Confirm(ctx context.Context, req ConfirmRequest) (PaymentRecord, error)

	// Fail marks the record failed and drives the ledger with a failure
	// outcome; a terminal purchase is logged as an anomaly, not retried.
	Fail(ctx context.Context, paymentID snowflake.ID, reason string) (PaymentRecord, error)

	// Refund is legal only from approved. The owning purchase keeps its
	// completed status; reverting it is a separate administrative decision.
	Refund(ctx context.Context, paymentID snowflake.ID, adminID string, note string) (PaymentRecord, error)

	Get(ctx context.Context, paymentID snowflake.ID) (PaymentRecord, error)
	GetApprovedByPurchase(ctx context.Context, purchaseID snowflake.ID) (PaymentRecord, error)
	ListByPurchase(ctx context.Context, purchaseID snowflake.ID) ([]PaymentRecord, error)
}

var (
	ErrPaymentNotFound    = errors.New("payment_not_found")
	ErrPaymentAlreadyOpen = errors.New("payment_already_open")
	ErrPaymentNotApproved = errors.New("payment_not_approved")
	ErrInvalidTransition  = errors.New("payment_invalid_transition")
	ErrInvalidRequest     = errors.New("invalid_request")

	ErrUnknownReference = errors.New("unknown_payment_reference")
	ErrAmountMismatch   = errors.New("payment_amount_mismatch")
	ErrInvalidPayload   = errors.New("invalid_payload")
)
