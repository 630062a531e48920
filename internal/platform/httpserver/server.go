package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	votingservice "voteboard/contexts/elections/voting-service"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "voteboard/internal/platform/httpserver/docs"
)

type Server struct {
	mux        *http.ServeMux
	http       *http.Server
	logger     *slog.Logger
	addr       string
	adminToken string
	voting     votingservice.Module
}

// New builds the API server. An empty adminToken leaves the candidate
// registration routes open.
func New(
	voting votingservice.Module,
	logger *slog.Logger,
	addr string,
	adminToken string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		adminToken: adminToken,
		voting:     voting,
	}
	s.registerRoutes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server draining",
		"event", "http_server_shutdown",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return s.http.Shutdown(ctx)
}

// Handler exposes the route table, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/login", s.handleLogin)
	s.mux.HandleFunc("GET /api/candidates", s.handleListCandidates)
	s.mux.HandleFunc("POST /api/candidates", s.handleCreateCandidate)
	s.mux.HandleFunc("POST /api/candidates/bulk", s.handleBulkCreateCandidates)
	s.mux.HandleFunc("POST /api/votes", s.handleSubmitVotes)
	s.mux.HandleFunc("GET /api/results", s.handleResults)
	s.mux.HandleFunc("GET /api/results/export", s.handleExportResults)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/voters/{voter_id}/votes", s.handleBallotReceipt)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
