package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cloneops/ai"
	"cloneops/domain/run"
	apperrors "cloneops/internal/errors"
	"cloneops/ports"
)

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages []chatTurn `json:"messages"`
}

// handleChat answers one shop-ops question with the strategy-whitelisted
// assistant persona.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Messages) == 0 {
		s.respondError(c, apperrors.InvalidInput("messages array is required"))
		return
	}

	reply, err := s.chatLLM.GenerateText(c.Request.Context(), ports.TextRequest{
		System: ai.ChatSystemPrompt,
		Prompt: renderTranscript(req.Messages),
		Model:  s.cfg.AI.ChatModel,
	})
	if err != nil {
		s.respondError(c, apperrors.ExternalServiceError("chat model", err))
		return
	}
	c.String(http.StatusOK, reply)
}

func renderTranscript(messages []chatTurn) string {
	var sb strings.Builder
	for _, m := range messages {
		sb.WriteString(m.Role)
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("assistant:")
	return sb.String()
}

type detectRequest struct {
	Messages      []chatTurn `json:"messages"`
	LastAssistant string     `json:"last_assistant"`
}

// handleDetectActionable runs the simulation-offer detector over the latest
// assistant message. Repeated or rapid-fire identical requests are throttled
// to a non-actionable verdict without a model call.
func (s *Server) handleDetectActionable(c *gin.Context) {
	var req detectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperrors.InvalidInput("invalid request body"))
		return
	}

	last := req.LastAssistant
	if last == "" {
		for i := len(req.Messages) - 1; i >= 0; i-- {
			if req.Messages[i].Role == "assistant" {
				last = req.Messages[i].Content
				break
			}
		}
	}
	if strings.TrimSpace(last) == "" {
		s.respondError(c, apperrors.InvalidInput("no assistant message to analyze"))
		return
	}

	if !s.throttle.Allow(last) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "actionable": false, "throttled": true})
		return
	}

	turns := make([]ai.ConversationTurn, len(req.Messages))
	for i, m := range req.Messages {
		turns[i] = ai.ConversationTurn{Role: m.Role, Content: m.Content}
	}
	res, err := s.detector.Detect(c.Request.Context(), turns, last)
	if err != nil {
		s.respondError(c, apperrors.ExternalServiceError("detector model", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"actionable": res.Actionable,
		"hypotheses": res.Hypotheses,
		"reason":     res.Reason,
	})
}

type evalRequest struct {
	Hypothesis string   `json:"hypothesis"`
	Hypotheses []string `json:"hypotheses"`
	Stream     *bool    `json:"stream"`
}

// handleEvalSentiment evaluates one or more hypotheses across the panel. A
// single hypothesis streams NDJSON progress records by default; multiple
// hypotheses always run to completion and return the batch summary.
func (s *Server) handleEvalSentiment(c *gin.Context) {
	var req evalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperrors.InvalidInput("invalid request body"))
		return
	}

	if len(req.Hypotheses) > 0 {
		runs, err := s.coordinator.EvaluateAll(c.Request.Context(), req.Hypotheses)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(runs), "runs": runs})
		return
	}

	hypothesis := strings.TrimSpace(req.Hypothesis)
	if hypothesis == "" {
		s.respondError(c, apperrors.InvalidInput("hypothesis is required"))
		return
	}

	if req.Stream != nil && !*req.Stream {
		r, err := s.coordinator.Evaluate(c.Request.Context(), hypothesis)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(r.Outcomes), "results": r.Outcomes})
		return
	}

	s.streamEvaluation(c, hypothesis)
}

// streamEvaluation runs one hypothesis while relaying its bus events to the
// client as NDJSON records.
func (s *Server) streamEvaluation(c *gin.Context, hypothesis string) {
	corpus, err := s.corpus.LoadPersonas(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	// Subscribe before launching so no chunk can slip past.
	events, cancel := s.bus.Subscribe(len(corpus) + 16)
	defer cancel()

	title := run.TitleOf(hypothesis)
	errCh := make(chan error, 1)
	go func() {
		// Detached from the request context so a dropped client does not
		// abort the run; the board still fills in.
		_, err := s.coordinator.Evaluate(context.Background(), hypothesis)
		errCh <- err
	}()

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)

	write := func(v any) {
		line, err := json.Marshal(v)
		if err != nil {
			return
		}
		c.Writer.Write(line)
		c.Writer.Write([]byte("\n"))
		c.Writer.Flush()
	}

	write(gin.H{"type": "meta", "total": len(corpus)})

	count := 0
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case err := <-errCh:
			if err != nil {
				write(gin.H{"type": "error", "message": err.Error()})
				return
			}
		case e, ok := <-events:
			if !ok {
				write(gin.H{"type": "error", "message": "event stream closed"})
				return
			}
			if e.Title != title {
				continue
			}
			switch e.Kind {
			case run.EventChunk:
				write(gin.H{"idx": e.Idx, "label": e.Label, "reason": e.Reason})
				count++
			case run.EventDone:
				write(gin.H{"type": "done", "count": count})
				return
			}
		}
	}
}

// handleRunList returns every registered run.
func (s *Server) handleRunList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "runs": s.coordinator.List()})
}

// handleRunGet returns one run by id.
func (s *Server) handleRunGet(c *gin.Context) {
	r := s.coordinator.Get(c.Param("id"))
	if r == nil {
		s.respondError(c, apperrors.NotFound("run"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "run": r})
}
