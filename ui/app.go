package ui

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cloneops/internal"
)

//go:embed templates/*
var embeddedFiles embed.FS

// App is the shell application: it serves the dashboard page and mounts the
// JSON API underneath it.
type App struct {
	router    *chi.Mux
	api       *Server
	templates *template.Template
	logger    *internal.Logger
}

// NewApp builds the shell around an API server.
func NewApp(api *Server, logger *internal.Logger) (*App, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	templates, err := template.ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	app := &App{
		router:    chi.NewRouter(),
		api:       api,
		templates: templates,
		logger:    logger,
	}
	app.setupMiddleware()
	app.setupRoutes()
	return app, nil
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	// The API keeps its own routing; hand the whole /api subtree to it.
	a.router.Handle("/api/*", middleware.NoCache(a.api.Handler()))
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if err := a.templates.ExecuteTemplate(w, "index.html", nil); err != nil {
		a.logger.Error("template error: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// Start runs the shell server.
func (a *App) Start(addr string) error {
	a.logger.Info("starting dashboard on http://%s", addr)
	return http.ListenAndServe(addr, a.router)
}
