package ui

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cloneops/adapters/profile"
	apperrors "cloneops/internal/errors"
)

// handleUserProfile summarizes one user's behavioral profile.
func (s *Server) handleUserProfile(c *gin.Context) {
	userID := c.Query("user_id")
	if !profile.ValidUserID(userID) {
		s.respondError(c, apperrors.InvalidInput("user_id must match user_NNNNN"))
		return
	}

	summary, err := s.profiles.Summarize(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "profile": summary})
}

// handleUserProfileMetrics returns corpus-wide max and p95 per metric.
func (s *Server) handleUserProfileMetrics(c *gin.Context) {
	metrics, err := s.profiles.ComputeMetrics(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "metrics": metrics})
}

// handleUserFacepack serves the user's avatar PNG. Responses are immutable
// so the dashboard can cache aggressively.
func (s *Server) handleUserFacepack(c *gin.Context) {
	userID := c.Query("user_id")
	if !profile.ValidUserID(userID) {
		c.String(http.StatusBadRequest, "invalid user_id")
		return
	}

	path, err := s.profiles.FacepackPath(userID)
	if err != nil {
		c.String(http.StatusNotFound, "facepack not found")
		return
	}
	c.Header("Content-Type", "image/png")
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.File(path)
}
