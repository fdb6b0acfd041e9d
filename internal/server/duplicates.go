package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	dedupdomain "github.com/jose32011/beatbazaar/internal/dedup/domain"
)

func (s *Server) ListDuplicateGroups(c *gin.Context) {
	groups, err := s.dedupSvc.FindDuplicateGroups(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": groups})
}

type resolveGroupRequest struct {
	UserID string `json:"user_id"`
	BeatID string `json:"beat_id"`
}

func (s *Server) ResolveDuplicateGroup(c *gin.Context) {
	var req resolveGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	beatID, err := snowflake.ParseString(strings.TrimSpace(req.BeatID))
	if err != nil || beatID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resolution, err := s.dedupSvc.ResolveGroup(c.Request.Context(), dedupdomain.GroupKey{
		UserID: strings.TrimSpace(req.UserID),
		BeatID: beatID,
	})
	if err != nil {
		if resolution.Skipped {
			// The skip detail matters to the operator; keep it alongside
			// the conflict status.
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": gin.H{
					"type":    "ambiguous_duplicate_group",
					"message": resolution.Reason,
				},
				"data": resolution,
			})
			return
		}
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resolution})
}

func (s *Server) SweepDuplicates(c *gin.Context) {
	report, err := s.dedupSvc.Sweep(c.Request.Context(), adminID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordSweep("swept", report.GroupsSwept)
	s.metrics.RecordSweep("failed", report.GroupsFailed)

	c.JSON(http.StatusOK, gin.H{"data": report})
}
