package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	headerAdminToken = "X-Admin-Token"
	headerAdminID    = "X-Admin-Id"

	contextAdminIDKey = "admin_id"
)

// AdminRequired gates the operator endpoints on the shared admin token and
// requires an explicit admin identity so every decision is attributable.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(headerAdminToken))
		expected := strings.TrimSpace(s.cfg.AdminToken)
		if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		adminID := strings.TrimSpace(c.GetHeader(headerAdminID))
		if adminID == "" {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		c.Set(contextAdminIDKey, adminID)
		c.Next()
	}
}

func adminID(c *gin.Context) string {
	return c.GetString(contextAdminIDKey)
}
