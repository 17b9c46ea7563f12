package ui

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cloneops/adapters/excel"
	"cloneops/domain/action"
	"cloneops/domain/board"
	apperrors "cloneops/internal/errors"
)

// handleBoards returns every board with its derived summaries.
func (s *Server) handleBoards(c *gin.Context) {
	type boardView struct {
		Board   *board.Board        `json:"board"`
		Totals  board.Totals        `json:"totals"`
		ByScore []board.ScoreBucket `json:"by_score"`
	}
	all := s.aggregator.List()
	views := make([]boardView, 0, len(all))
	for _, b := range all {
		totals, byScore, _ := s.aggregator.Summarize(b.Name)
		views = append(views, boardView{Board: b, Totals: totals, ByScore: byScore})
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "boards": views})
}

// handleBoardsExport streams an xlsx workbook of board summaries. With a
// board query parameter only that board is exported, otherwise all of them.
func (s *Server) handleBoardsExport(c *gin.Context) {
	var selected []*board.Board
	if name := c.Query("board"); name != "" {
		b := s.aggregator.Get(name)
		if b == nil {
			s.respondError(c, apperrors.NotFound("board"))
			return
		}
		selected = []*board.Board{b}
	} else {
		selected = s.aggregator.List()
	}

	corpus, err := s.corpus.LoadPersonas(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("boards-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := excel.WriteWorkbook(c.Writer, excel.BuildExports(selected, corpus)); err != nil {
		s.logger.Error("workbook export failed: %v", err)
	}
}

type insightRequest struct {
	Board string `json:"board"`
}

// handleInsights returns the cached (or freshly generated) insight bullets
// for one board.
func (s *Server) handleInsights(c *gin.Context) {
	var req insightRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Board == "" {
		s.respondError(c, apperrors.InvalidInput("board is required"))
		return
	}

	totals, byScore, ok := s.aggregator.Summarize(req.Board)
	if !ok {
		s.respondError(c, apperrors.NotFound("board"))
		return
	}
	ins := s.insights.Insight(c.Request.Context(), req.Board, totals, byScore)
	c.JSON(http.StatusOK, gin.H{"ok": true, "markdown": ins.Markdown, "html": ins.HTML})
}

type nextActionsRequest struct {
	Board      string `json:"board"`
	Hypothesis string `json:"hypothesis"`
}

// handleNextActions returns the cached (or freshly generated) action plan
// for one board.
func (s *Server) handleNextActions(c *gin.Context) {
	var req nextActionsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Board == "" {
		s.respondError(c, apperrors.InvalidInput("board is required"))
		return
	}

	totals, byScore, ok := s.aggregator.Summarize(req.Board)
	if !ok {
		s.respondError(c, apperrors.NotFound("board"))
		return
	}
	hypothesis := req.Hypothesis
	if hypothesis == "" {
		hypothesis = req.Board
	}
	items := s.planner.Plan(c.Request.Context(), req.Board, hypothesis, totals, byScore)
	c.JSON(http.StatusOK, gin.H{"ok": true, "actions": items})
}

type deployRequest struct {
	Board   string        `json:"board"`
	Actions []action.Item `json:"actions"`
}

// handleDeployActions pushes a board's accepted actions to the shop.
func (s *Server) handleDeployActions(c *gin.Context) {
	var req deployRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Actions) == 0 {
		s.respondError(c, apperrors.InvalidInput("actions array is required"))
		return
	}

	deployed, err := s.chatbot.Deploy(c.Request.Context(), req.Board, req.Actions)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deployed": deployed})
}
