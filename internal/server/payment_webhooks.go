package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// PaymentWebhook ingests a provider callback. Business anomalies (unknown
// reference, terminal purchase, amount mismatch) are acknowledged with 200
// so the provider stops retrying a permanent mismatch; only an unusable
// payload is bounced.
func (s *Server) PaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.webhookSvc.Ingest(c.Request.Context(), provider, payload)
	if err != nil {
		s.metrics.RecordPaymentEvent("rejected")
		AbortWithError(c, err)
		return
	}

	switch {
	case result.Duplicate:
		s.metrics.RecordPaymentEvent("duplicate")
	case result.Anomaly != "":
		s.metrics.RecordPaymentEvent("anomaly")
	default:
		s.metrics.RecordPaymentEvent("processed")
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) RefundPayment(c *gin.Context) {
	id, err := snowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req struct {
		Note string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	record, err := s.paymentSvc.Refund(c.Request.Context(), id, adminID(c), strings.TrimSpace(req.Note))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": record})
}
