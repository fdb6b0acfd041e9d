package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListPurchases(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	purchases, err := s.purchaseSvc.ListByUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": purchases})
}

func (s *Server) GetPurchase(c *gin.Context) {
	id, err := snowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	purchase, err := s.purchaseSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": purchase})
}

func (s *Server) ListPurchasePayments(c *gin.Context) {
	id, err := snowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	payments, err := s.paymentSvc.ListByPurchase(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payments})
}

type appendNoteRequest struct {
	Note string `json:"note"`
}

func (s *Server) AppendPurchaseNote(c *gin.Context) {
	id, err := snowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req appendNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Note) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	note := strings.TrimSpace(req.Note) + " (by " + adminID(c) + ")"
	if err := s.purchaseSvc.AppendNote(c.Request.Context(), id, note); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
