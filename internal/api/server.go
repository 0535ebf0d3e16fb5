package api

import (
	"net/http"

	"github.com/dgallion1/ragutil/internal/config"
	"github.com/dgallion1/ragutil/internal/remote"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// maxBodyBytes caps request JSON bodies. File contents never travel in a
// request except for saveChunk.
const maxBodyBytes = 16 << 20

// Server is the HTTP API server for ragutil.
type Server struct {
	router chi.Router
	remote *remote.Client
	log    zerolog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(rc *remote.Client, log zerolog.Logger, cfg config.Config) *Server {
	s := &Server{
		remote: rc,
		log:    log,
		cfg:    cfg,
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

	// Authenticated endpoints when an API key is configured.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/tree/scan", s.handleScanTree)
		r.Post("/api/files/read", s.handleReadFiles)
		r.Post("/api/sheets/inspect", s.handleInspectSheet)
		r.Post("/api/sheets/units", s.handleSheetUnits)
		r.Post("/api/delimited/units", s.handleDelimitedUnits)
		r.Post("/api/html/units", s.handleHTMLUnits)
		r.Post("/api/chunks", s.handleSaveChunk)

		r.Post("/api/remote/units", s.handleRemoteUnits)
		r.Post("/api/remote/table", s.handleRemoteTable)
		r.Post("/api/remote/table-from-url", s.handleRemoteTableFromURL)
		r.Get("/api/stats/remote", s.handleRemoteStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
