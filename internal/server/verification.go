package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	verificationdomain "github.com/jose32011/beatbazaar/internal/verification/domain"
)

type passwordResetRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) RequestPasswordReset(c *gin.Context) {
	var req passwordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	code, err := s.verificationSvc.Issue(c.Request.Context(), strings.TrimSpace(req.UserID), verificationdomain.CodeTypePasswordReset)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.metrics.RecordCodeIssued()

	// The code itself travels over the notification channel, never the API.
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"expires_at": code.ExpiresAt,
	}})
}

type passwordResetVerify struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
}

func (s *Server) VerifyPasswordReset(c *gin.Context) {
	var req passwordResetVerify
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	err := s.verificationSvc.Verify(c.Request.Context(), strings.TrimSpace(req.UserID), verificationdomain.CodeTypePasswordReset, strings.TrimSpace(req.Code))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
