package ui

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "cloneops/internal/errors"
)

// handleChatbotGet proxies the upstream chatbot configuration.
func (s *Server) handleChatbotGet(c *gin.Context) {
	cfg, err := s.chatbot.FetchConfig(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "config": cfg})
}

// handleCustomPromptGet proxies the shop's custom chatbot prompt.
func (s *Server) handleCustomPromptGet(c *gin.Context) {
	prompt, err := s.chatbot.FetchCustomPrompt(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "custom_prompt": prompt})
}

type customPromptPutRequest struct {
	CustomPrompt string `json:"custom_prompt"`
}

// handleCustomPromptPut replaces the shop's custom chatbot prompt upstream.
func (s *Server) handleCustomPromptPut(c *gin.Context) {
	var req customPromptPutRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.CustomPrompt) == "" {
		s.respondError(c, apperrors.InvalidInput("custom_prompt is required"))
		return
	}

	stored, err := s.chatbot.UpdateCustomPrompt(c.Request.Context(), req.CustomPrompt)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "custom_prompt": stored})
}

type chatbotPutRequest struct {
	StartExamples []string `json:"start_examples"`
}

// handleChatbotPut replaces the chatbot's start examples upstream.
func (s *Server) handleChatbotPut(c *gin.Context) {
	var req chatbotPutRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.StartExamples) == 0 {
		s.respondError(c, apperrors.InvalidInput("start_examples array is required"))
		return
	}

	cfg, err := s.chatbot.UpdateStartExamples(c.Request.Context(), req.StartExamples)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "config": cfg})
}
