package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/wordvault/wordvault/internal/config"
	"github.com/wordvault/wordvault/internal/storage"
)

// Server holds the dependencies for the HTTP API.
type Server struct {
	db         *storage.DB
	router     *http.ServeMux
	jwtSecret  []byte
	tokenTTL   time.Duration
	bcryptCost int
	reposDir   string

	// now is swappable so handler tests can pin the clock.
	now func() time.Time
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, cfg *config.Config) *Server {
	s := &Server{
		db:         db,
		router:     http.NewServeMux(),
		jwtSecret:  []byte(cfg.JWTSecret),
		tokenTTL:   cfg.TokenTTL,
		bcryptCost: cfg.BcryptCost,
		reposDir:   cfg.ReposDir,
		now:        func() time.Time { return time.Now().UTC() },
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("POST /register", s.handleRegister())
	s.router.HandleFunc("POST /login", s.handleLogin())

	s.router.Handle("GET /cards", s.requireAuth(s.handleListCards()))
	s.router.Handle("POST /cards", s.requireAuth(s.handleCreateCard()))
	s.router.Handle("GET /cards/due", s.requireAuth(s.handleDueCards()))
	s.router.Handle("GET /cards/{id}", s.requireAuth(s.handleGetCard()))
	s.router.Handle("PUT /cards/{id}", s.requireAuth(s.handleUpdateCard()))
	s.router.Handle("DELETE /cards/{id}", s.requireAuth(s.handleDeleteCard()))
	s.router.Handle("POST /cards/review/{id}", s.requireAuth(s.handleReviewCard()))
	s.router.Handle("GET /cards/{id}/history", s.requireAuth(s.handleReviewHistory()))

	s.router.Handle("GET /tags", s.requireAuth(s.handleListTags()))

	s.router.Handle("GET /sources", s.requireAuth(s.handleListSources()))
	s.router.Handle("POST /sources", s.requireAuth(s.handleAddSource()))
	s.router.Handle("DELETE /sources/{id}", s.requireAuth(s.handleDeleteSource()))
	s.router.Handle("POST /sync", s.requireAuth(s.handleSync()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
