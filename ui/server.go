package ui

import (
	"context"

	"github.com/gin-gonic/gin"

	"cloneops/adapters/chatbot"
	"cloneops/adapters/profile"
	"cloneops/app"
	"cloneops/internal"
	"cloneops/internal/api"
	"cloneops/internal/boards"
	"cloneops/internal/config"
	"cloneops/internal/detect"
	apperrors "cloneops/internal/errors"
	"cloneops/internal/eval"
	"cloneops/internal/insight"
	"cloneops/ports"
)

// Server is the JSON API for the operations dashboard.
type Server struct {
	router *gin.Engine
	logger *internal.Logger
	cfg    *config.Config

	coordinator *eval.Coordinator
	aggregator  *boards.Aggregator
	insights    *insight.Generator
	planner     *insight.Planner
	detector    *detect.Detector
	throttle    *detect.Throttle
	chatLLM     ports.TextGenerator
	simulation  *app.SimulationService
	corpus      ports.CorpusProvider
	profiles    *profile.Store
	chatbot     *chatbot.Client
	bus         ports.EventBus
	hub         *api.SSEHub
}

// Deps carries everything the API server needs wired in.
type Deps struct {
	Config      *config.Config
	Logger      *internal.Logger
	Coordinator *eval.Coordinator
	Aggregator  *boards.Aggregator
	Insights    *insight.Generator
	Planner     *insight.Planner
	Detector    *detect.Detector
	ChatLLM     ports.TextGenerator
	Simulation  *app.SimulationService
	Corpus      ports.CorpusProvider
	Profiles    *profile.Store
	Chatbot     *chatbot.Client
	Bus         ports.EventBus
	Hub         *api.SSEHub
}

// NewServer builds the API router. The SSE hub bridge is started here so
// board events flow to clients as soon as the server exists.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		router:      gin.Default(),
		logger:      logger,
		cfg:         deps.Config,
		coordinator: deps.Coordinator,
		aggregator:  deps.Aggregator,
		insights:    deps.Insights,
		planner:     deps.Planner,
		detector:    deps.Detector,
		throttle:    detect.NewThrottle(),
		chatLLM:     deps.ChatLLM,
		simulation:  deps.Simulation,
		corpus:      deps.Corpus,
		profiles:    deps.Profiles,
		chatbot:     deps.Chatbot,
		bus:         deps.Bus,
		hub:         deps.Hub,
	}
	s.setupRoutes()
	if s.hub != nil && s.bus != nil {
		go s.hub.Bridge(context.Background(), s.bus)
	}
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	r.POST("/api/chat", s.handleChat)
	r.POST("/api/detect-actionable", s.handleDetectActionable)
	r.POST("/api/eval-sentiment", s.handleEvalSentiment)

	r.GET("/api/boards", s.handleBoards)
	r.GET("/api/boards/export", s.handleBoardsExport)
	r.POST("/api/insights", s.handleInsights)
	r.POST("/api/next-actions", s.handleNextActions)
	r.POST("/api/deploy-actions", s.handleDeployActions)

	r.GET("/api/runs", s.handleRunList)
	r.GET("/api/runs/:id", s.handleRunGet)

	r.GET("/api/prompts", s.handlePrompts)
	r.GET("/api/simulate", s.handleSimulateGet)
	r.POST("/api/simulate", s.handleSimulatePost)

	r.GET("/api/user-profile", s.handleUserProfile)
	r.GET("/api/user-profile/metrics", s.handleUserProfileMetrics)
	r.GET("/api/user-facepack", s.handleUserFacepack)

	r.GET("/api/chatbot", s.handleChatbotGet)
	r.PUT("/api/chatbot", s.handleChatbotPut)
	r.GET("/api/custom-prompt", s.handleCustomPromptGet)
	r.PUT("/api/custom-prompt", s.handleCustomPromptPut)

	if s.hub != nil {
		r.GET("/api/events", s.hub.HandleSSE)
	}
}

// Handler exposes the router for mounting under the shell app.
func (s *Server) Handler() *gin.Engine {
	return s.router
}

// Start runs the API standalone, without the chi shell.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting api on http://%s", addr)
	return s.router.Run(addr)
}

// respondError maps application errors to the uniform failure body.
func (s *Server) respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= 500 {
		s.logger.Error("request failed: %v", err)
	}
	c.JSON(status, gin.H{"ok": false, "error": err.Error()})
}
