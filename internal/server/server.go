// Package server exposes every triage operation over HTTP and renders the
// human-facing status page. The transport is a thin shell: arbitration,
// validation and commit semantics all live in the engine packages.
package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/lewtec/triador/internal/domain"
	"github.com/lewtec/triador/internal/session"
	"github.com/lewtec/triador/internal/triage"
)

// Server binds the arbiter and the triage controller to HTTP routes.
type Server struct {
	arbiter *session.Arbiter
	engine  *triage.Controller
	ledger  domain.LedgerRepository
	logger  *zap.Logger
}

// New creates a Server.
func New(arbiter *session.Arbiter, engine *triage.Controller, ledger domain.LedgerRepository, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{arbiter: arbiter, engine: engine, ledger: ledger, logger: logger}
}

// Handler builds the full route table.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/help", s.handleHelp).Methods(http.MethodGet)
	r.HandleFunc("/session", s.handleAcquireSession).Methods(http.MethodPost)
	r.HandleFunc("/session/heartbeat", s.handleHeartbeat).Methods(http.MethodPost)

	// every route below requires the live session token
	api := r.NewRoute().Subrouter()
	api.Use(s.requireSession)
	api.HandleFunc("/initialize", s.handleInitialize).Methods(http.MethodPost)
	api.HandleFunc("/folders", s.handleListFolders).Methods(http.MethodGet)
	api.HandleFunc("/folders", s.handleCreateFolder).Methods(http.MethodPost)
	api.HandleFunc("/folders/{name}", s.handleDeleteFolder).Methods(http.MethodDelete)
	api.HandleFunc("/image", s.handleCurrentImage).Methods(http.MethodGet)
	api.HandleFunc("/classify", s.handleClassify).Methods(http.MethodPost)
	api.HandleFunc("/actions", s.handleAssign).Methods(http.MethodPost)
	api.HandleFunc("/actions", s.handleListPending).Methods(http.MethodGet)
	api.HandleFunc("/undo", s.handleUndo).Methods(http.MethodPost)
	api.HandleFunc("/commit", s.handleCommit).Methods(http.MethodPost)

	return s.logRequests(r)
}

// requireSession gates the operation surface behind a valid bearer token.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if err := s.arbiter.Validate(token); err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// logRequests records method, path, status and latency for every request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("http",
			zap.Int("status", rec.status),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// bearerToken extracts the session token from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
