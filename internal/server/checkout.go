package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	exclusivedomain "github.com/jose32011/beatbazaar/internal/exclusive/domain"
	paymentdomain "github.com/jose32011/beatbazaar/internal/payment/domain"
	purchasedomain "github.com/jose32011/beatbazaar/internal/purchase/domain"
	"github.com/jose32011/beatbazaar/pkg/db"
	"go.uber.org/zap"
)

type checkoutRequest struct {
	UserID   string `json:"user_id"`
	BeatSlug string `json:"beat_slug"`
	Method   string `json:"method"`
}

type checkoutResponse struct {
	Purchase         purchasedomain.Purchase                   `json:"purchase"`
	Payment          paymentdomain.PaymentRecord               `json:"payment"`
	ExclusiveRequest *exclusivedomain.ExclusivePurchaseRequest `json:"exclusive_request,omitempty"`
}

// Checkout creates the purchase ledger entry, opens a payment record and,
// for exclusive beats, a pending review request. Business declines come
// back as a generic message with an internal code for support triage.
func (s *Server) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.BeatSlug = strings.TrimSpace(req.BeatSlug)
	if req.UserID == "" || req.BeatSlug == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if strings.TrimSpace(req.Method) == "" {
		req.Method = "card"
	}

	ctx := c.Request.Context()

	beat, err := s.catalogSvc.GetBeatBySlug(ctx, req.BeatSlug)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	purchase, err := s.purchaseSvc.Create(ctx, purchasedomain.CreateRequest{
		UserID:       req.UserID,
		BeatID:       beat.ID,
		BeatTitle:    beat.Title,
		BeatProducer: beat.Producer,
		BeatAudioURL: beat.AudioURL,
		BeatImageURL: beat.ImageURL,
		AmountCents:  beat.PriceCents,
		Exclusive:    beat.Exclusive,
	})
	if err != nil {
		s.declineCheckout(c, err)
		return
	}

	paymentRecord, err := s.paymentSvc.Open(ctx, paymentdomain.OpenRequest{
		PurchaseID:  purchase.ID,
		CustomerID:  req.UserID,
		AmountCents: beat.PriceCents,
		Method:      req.Method,
	})
	if err != nil {
		s.declineCheckout(c, err)
		return
	}

	resp := checkoutResponse{Purchase: purchase, Payment: paymentRecord}
	if beat.Exclusive {
		request, err := s.exclusiveSvc.Open(ctx, exclusivedomain.OpenRequest{
			UserID:        req.UserID,
			BeatID:        beat.ID,
			PurchaseID:    purchase.ID,
			AmountCents:   beat.PriceCents,
			PaymentMethod: req.Method,
		})
		if err != nil {
			s.declineCheckout(c, err)
			return
		}
		resp.ExclusiveRequest = &request
	}

	s.metrics.RecordCheckout("accepted")
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) declineCheckout(c *gin.Context, err error) {
	// Validation problems and timeouts keep their normal mapping; the
	// timeout is retryable and the caller should know.
	if isValidationError(err) || errors.Is(err, db.ErrTransactionTimeout) {
		AbortWithError(c, err)
		return
	}

	code := internalCheckoutCode(err)
	s.log.Warn("checkout declined", zap.String("code", code), zap.Error(err))
	s.metrics.RecordCheckout("declined")

	c.AbortWithStatusJSON(http.StatusConflict, gin.H{
		"error": gin.H{
			"type":    "checkout_declined",
			"message": "checkout could not be completed",
			"code":    code,
		},
	})
}

func internalCheckoutCode(err error) string {
	sentinels := []error{
		purchasedomain.ErrDuplicateActivePurchase,
		purchasedomain.ErrExclusivityViolation,
		purchasedomain.ErrInvalidTransition,
		paymentdomain.ErrPaymentAlreadyOpen,
		purchasedomain.ErrPurchaseNotPending,
	}
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal_error"
}

// snowflakeParam parses a snowflake id path parameter.
func snowflakeParam(c *gin.Context, name string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param(name)))
	if err != nil || id == 0 {
		return 0, ErrInvalidRequest
	}
	return id, nil
}
