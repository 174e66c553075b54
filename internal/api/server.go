// Package api exposes the engine over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/intent-engine/internal/audience"
	"github.com/sells-group/intent-engine/internal/config"
	"github.com/sells-group/intent-engine/internal/export"
	"github.com/sells-group/intent-engine/internal/scorer"
	"github.com/sells-group/intent-engine/internal/store"
	"github.com/sells-group/intent-engine/pkg/serpapi"
)

// Server wires the HTTP routes to the engine's services.
type Server struct {
	store     store.Store
	scorer    *scorer.Service
	audiences *audience.Engine
	exports   *export.Engine
	enricher  *Enricher
	search    serpapi.Client
	cfg       config.Config
}

// NewServer assembles a server from its collaborators.
func NewServer(st store.Store, sc *scorer.Service, aud *audience.Engine, exp *export.Engine, enr *Enricher, search serpapi.Client, cfg config.Config) *Server {
	return &Server{
		store:     st,
		scorer:    sc,
		audiences: aud,
		exports:   exp,
		enricher:  enr,
		search:    search,
		cfg:       cfg,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/contacts", func(r chi.Router) {
		r.Get("/", s.handleListContacts)
		r.Post("/", s.handleCreateContact)
		r.Get("/{id}", s.handleGetContact)
		r.Put("/{id}", s.handleUpdateContact)
		r.Delete("/{id}", s.handleDeleteContact)
		r.Post("/{id}/enrich", s.handleEnrichContact)
		r.Post("/{id}/recalculate-intent", s.handleRecalculateIntent)
	})

	r.Route("/audiences", func(r chi.Router) {
		r.Get("/", s.handleListAudiences)
		r.Post("/", s.handleCreateAudience)
		r.Post("/preview", s.handlePreviewAudience)
		r.Get("/{id}", s.handleGetAudience)
		r.Put("/{id}", s.handleUpdateAudience)
		r.Delete("/{id}", s.handleDeleteAudience)
		r.Get("/{id}/contacts", s.handleAudienceContacts)
	})

	r.Route("/data-sources", func(r chi.Router) {
		r.Post("/serpapi/search", s.handleSerpAPISearch)
		r.Post("/csv/upload", s.handleCSVUpload)
		r.Post("/csv/preview", s.handleCSVPreview)
	})

	r.Route("/exports", func(r chi.Router) {
		r.Post("/", s.handleExport)
		r.Post("/download", s.handleExportDownload)
	})

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "running",
		"message": "Intent Data Engine API",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded", "database": "unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "connected"})
}
