package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListBeats(c *gin.Context) {
	beats, err := s.catalogSvc.ListBeats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": beats})
}

func (s *Server) GetBeat(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	beat, err := s.catalogSvc.GetBeatBySlug(c.Request.Context(), slug)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": beat})
}
