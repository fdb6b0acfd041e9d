package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type OpenRequest struct {
	UserID        string
	BeatID        snowflake.ID
	PurchaseID    snowflake.ID
	AmountCents   int64
	PaymentMethod string
	PaymentID     *snowflake.ID
}

type Service interface {
	// Open shadows a freshly created exclusive purchase with a pending
	// review request.
	Open(ctx context.Context, req OpenRequest) (ExclusivePurchaseRequest, error)

	// Approve marks the request approved with admin attribution. The beat
	// must have no other approved or completed request. Completion still
	// requires a confirmed payment.
	Approve(ctx context.Context, requestID snowflake.ID, adminID string) (ExclusivePurchaseRequest, error)

	// ConfirmAndComplete finalizes the exclusive sale: requires an approved
	// request and an approved payment, completes the winning purchase,
	// rejects every sibling purchase and request in the same transaction.
	ConfirmAndComplete(ctx context.Context, requestID snowflake.ID, adminID string) (ExclusivePurchaseRequest, error)

	// Reject is legal from pending or approved and rejects the linked
	// purchase as well.
	Reject(ctx context.Context, requestID snowflake.ID, adminID string, reason string) (ExclusivePurchaseRequest, error)

	Get(ctx context.Context, requestID snowflake.ID) (ExclusivePurchaseRequest, error)
	ListPending(ctx context.Context) ([]ExclusivePurchaseRequest, error)
}

var (
	ErrRequestNotFound    = errors.New("exclusive_request_not_found")
	ErrRequestNotPending  = errors.New("exclusive_request_not_pending")
	ErrRequestNotApproved = errors.New("exclusive_request_not_approved")
	ErrInvalidTransition  = errors.New("exclusive_invalid_transition")
	ErrInvalidRequest     = errors.New("invalid_request")
)
