package ui

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "cloneops/internal/errors"
)

// handlePrompts lists the persona corpus, or one record when idx is given.
func (s *Server) handlePrompts(c *gin.Context) {
	ctx := c.Request.Context()

	if raw := c.Query("idx"); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(c, apperrors.InvalidInput("idx must be an integer"))
			return
		}
		rec, err := s.corpus.LoadPersonaByIndex(ctx, idx)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "prompt": rec})
		return
	}

	corpus, err := s.corpus.LoadPersonas(ctx)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(corpus), "prompts": corpus})
}

// handleSimulateGet answers distribution queries over the stored panel, or
// lists corpus metadata with ?prompts=1.
func (s *Server) handleSimulateGet(c *gin.Context) {
	ctx := c.Request.Context()

	if c.Query("prompts") == "1" {
		corpus, err := s.corpus.LoadPersonas(ctx)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(corpus), "prompts": corpus})
		return
	}

	dist, err := s.simulation.Distribution(ctx)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "distribution": dist})
}

type simulateRequest struct {
	ShopName string `json:"shop_name"`
}

// handleSimulatePost regenerates the full panel and overwrites the stored
// results.
func (s *Server) handleSimulatePost(c *gin.Context) {
	var req simulateRequest
	_ = c.ShouldBindJSON(&req)

	results, path, err := s.simulation.RunPanel(c.Request.Context(), req.ShopName)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(results), "path": path})
}
