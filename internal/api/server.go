package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/dgallion1/closereader/internal/catalog"
	"github.com/dgallion1/closereader/internal/config"
	"github.com/dgallion1/closereader/internal/metrics"
	"github.com/dgallion1/closereader/internal/parser"
	"github.com/dgallion1/closereader/internal/pipeline"
	"github.com/dgallion1/closereader/internal/workspace"
)

// Server is the HTTP API server for closereader.
type Server struct {
	router     chi.Router
	catalog    *catalog.Catalog
	workspaces *workspace.Registry
	sync       *pipeline.Orchestrator
	loader     parser.Loader
	validate   *validator.Validate
	log        *slog.Logger
	cfg        config.Config
}

// NewServer creates and configures the HTTP server. sync may be nil, in
// which case the sync status endpoints report 503.
func NewServer(cat *catalog.Catalog, workspaces *workspace.Registry, sync *pipeline.Orchestrator, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		catalog:    cat,
		workspaces: workspaces,
		sync:       sync,
		loader:     parser.Loader{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
		validate:   validator.New(),
		log:        log,
		cfg:        cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		r.Use(UserMiddleware)

		r.Route("/api/texts", func(r chi.Router) {
			r.Post("/", s.handleUploadText)
			r.Get("/", s.handleListTexts)
			r.Route("/{textID}", func(r chi.Router) {
				r.Get("/", s.handleGetText)
				r.Get("/page", s.handlePage)
				r.Post("/page/next", s.handleNextPage)
				r.Post("/page/prev", s.handlePrevPage)
				r.Post("/page/goto", s.handleGotoPage)
				r.Post("/gate", s.handleGate)
				r.Post("/selections", s.handleSelection)
			})
		})

		r.Get("/api/annotations", s.handleListAnnotations)
		r.Put("/api/annotations/active", s.handleSetActive)
		r.Patch("/api/annotations/{id}", s.handleUpdateAnnotation)
		r.Delete("/api/annotations/{id}", s.handleDeleteAnnotation)
		r.Put("/api/context", s.handleSetContext)

		r.Get("/api/argument", s.handleGetArgument)
		r.Get("/api/argument/outline", s.handleOutline)
		r.Post("/api/argument/nodes/{id}/children", s.handleAddNode)
		r.Patch("/api/argument/nodes/{id}", s.handleUpdateNode)
		r.Delete("/api/argument/nodes/{id}", s.handleDeleteNode)

		r.Get("/api/sync/{jobID}", s.handleSyncStatus)
		r.Get("/api/stats/sync", s.handleSyncStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// workspace returns the caller's workspace.
func (s *Server) workspace(r *http.Request) *workspace.Workspace {
	return s.workspaces.Get(r.Context(), UserID(r.Context()))
}
