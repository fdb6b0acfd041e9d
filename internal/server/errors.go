package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/jose32011/beatbazaar/internal/catalog/domain"
	dedupdomain "github.com/jose32011/beatbazaar/internal/dedup/domain"
	exclusivedomain "github.com/jose32011/beatbazaar/internal/exclusive/domain"
	paymentdomain "github.com/jose32011/beatbazaar/internal/payment/domain"
	purchasedomain "github.com/jose32011/beatbazaar/internal/purchase/domain"
	verificationdomain "github.com/jose32011/beatbazaar/internal/verification/domain"
	"github.com/jose32011/beatbazaar/pkg/db"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "invalid request",
		}
	// The two verification errors are the only ones that get a specific
	// user-visible message; the user can act on them.
	case errors.Is(err, verificationdomain.ErrCodeExpired):
		return http.StatusBadRequest, errorPayload{
			Type:    "code_expired",
			Message: "the verification code has expired, request a new one",
		}
	case errors.Is(err, verificationdomain.ErrCodeMismatch):
		return http.StatusBadRequest, errorPayload{
			Type:    "code_mismatch",
			Message: "the verification code does not match",
		}
	case errors.Is(err, verificationdomain.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests, try again later",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    conflictCode(err),
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, db.ErrTransactionTimeout):
		return http.StatusServiceUnavailable, errorPayload{
			Type:      "transaction_timeout",
			Message:   "the operation timed out, retry the request",
			Retryable: true,
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, purchasedomain.ErrInvalidRequest),
		errors.Is(err, paymentdomain.ErrInvalidRequest),
		errors.Is(err, exclusivedomain.ErrInvalidRequest),
		errors.Is(err, verificationdomain.ErrInvalidRequest),
		errors.Is(err, dedupdomain.ErrInvalidRequest),
		errors.Is(err, paymentdomain.ErrInvalidPayload):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, purchasedomain.ErrDuplicateActivePurchase),
		errors.Is(err, purchasedomain.ErrInvalidTransition),
		errors.Is(err, purchasedomain.ErrPurchaseNotPending),
		errors.Is(err, purchasedomain.ErrExclusivityViolation),
		errors.Is(err, paymentdomain.ErrPaymentAlreadyOpen),
		errors.Is(err, paymentdomain.ErrPaymentNotApproved),
		errors.Is(err, paymentdomain.ErrInvalidTransition),
		errors.Is(err, exclusivedomain.ErrRequestNotPending),
		errors.Is(err, exclusivedomain.ErrRequestNotApproved),
		errors.Is(err, exclusivedomain.ErrInvalidTransition),
		errors.Is(err, dedupdomain.ErrAmbiguousGroup):
		return true
	default:
		return false
	}
}

// conflictCode surfaces the sentinel name so support can triage without a
// user-facing explanation.
func conflictCode(err error) string {
	sentinels := []error{
		purchasedomain.ErrDuplicateActivePurchase,
		purchasedomain.ErrInvalidTransition,
		purchasedomain.ErrPurchaseNotPending,
		purchasedomain.ErrExclusivityViolation,
		paymentdomain.ErrPaymentAlreadyOpen,
		paymentdomain.ErrPaymentNotApproved,
		paymentdomain.ErrInvalidTransition,
		exclusivedomain.ErrRequestNotPending,
		exclusivedomain.ErrRequestNotApproved,
		exclusivedomain.ErrInvalidTransition,
		dedupdomain.ErrAmbiguousGroup,
	}
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "conflict"
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, catalogdomain.ErrBeatNotFound),
		errors.Is(err, purchasedomain.ErrPurchaseNotFound),
		errors.Is(err, paymentdomain.ErrPaymentNotFound),
		errors.Is(err, exclusivedomain.ErrRequestNotFound),
		errors.Is(err, verificationdomain.ErrCodeNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
