// Package server exposes the database over a small HTTP REST API.
//
// Endpoints:
//   - GET  /health  - liveness probe
//   - GET  /stats   - database and server statistics
//   - GET  /stage   - developmental stage assessment
//   - GET  /export  - canonical export (?format=json for JSON)
//   - POST /import  - replace the graph from a canonical export
//   - POST /signals - ingest a batch of signals
//   - POST /query   - run a grounded query
//
// When an auth token is configured, every endpoint except /health requires
// a Bearer token. The token is kept only as a bcrypt hash in memory.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/skuld-db/skuld/pkg/graph"
	"github.com/skuld-db/skuld/pkg/ground"
	"github.com/skuld-db/skuld/pkg/ingest"
	"github.com/skuld-db/skuld/pkg/skuld"
)

// ErrServerClosed is returned by Start after Stop.
var ErrServerClosed = errors.New("server: closed")

// Config holds HTTP server settings.
type Config struct {
	// Address to bind to (default: "0.0.0.0")
	Address string
	// Port to listen on (default: 7400)
	Port int
	// AuthToken enables bearer auth when non-empty.
	AuthToken string
	// ReadTimeout for requests
	ReadTimeout time.Duration
	// WriteTimeout for responses
	WriteTimeout time.Duration
	// MaxRequestSize in bytes (default: 10MB)
	MaxRequestSize int64
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:        "0.0.0.0",
		Port:           7400,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,
		MaxRequestSize: 10 * 1024 * 1024, // 10MB
	}
}

// Server is the HTTP API server.
type Server struct {
	config *Config
	db     *skuld.DB

	// tokenHash is the bcrypt hash of the configured auth token, or nil
	// when auth is disabled.
	tokenHash []byte

	httpServer *http.Server
	listener   net.Listener
	closed     atomic.Bool

	requestCount atomic.Int64
	errorCount   atomic.Int64
}

// New creates a new HTTP server around db.
func New(db *skuld.DB, config *Config) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if db == nil {
		return nil, fmt.Errorf("database required")
	}

	s := &Server{config: config, db: db}

	if config.AuthToken != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(config.AuthToken), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash auth token: %w", err)
		}
		s.tokenHash = hash
	}

	return s, nil
}

// Start begins listening for HTTP connections. It returns once the
// listener is bound; serving continues in the background.
func (s *Server) Start() error {
	if s.closed.Load() {
		return ErrServerClosed
	}

	addr := fmt.Sprintf("%s:%d", s.config.Address, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:      s.buildRouter(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// ============================================================================
// Router and middleware
// ============================================================================

func (s *Server) buildRouter() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.withAuth(s.handleStats))
	mux.HandleFunc("/stage", s.withAuth(s.handleStage))
	mux.HandleFunc("/export", s.withAuth(s.handleExport))
	mux.HandleFunc("/import", s.withAuth(s.handleImport))
	mux.HandleFunc("/signals", s.withAuth(s.handleSignals))
	mux.HandleFunc("/query", s.withAuth(s.handleQuery))

	return s.loggingMiddleware(s.recoveryMiddleware(mux))
}

// withAuth enforces the bearer token when auth is enabled.
func (s *Server) withAuth(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.tokenHash == nil {
			handler(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			s.writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if bcrypt.CompareHashAndPassword(s.tokenHash, []byte(token)) != nil {
			s.writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		handler(w, r)
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requestCount.Add(1)
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[HTTP] %s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s: %v", r.URL.Path, rec)
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ============================================================================
// Handlers
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statsResponse combines database and server counters.
type statsResponse struct {
	Database skuld.DBStats `json:"database"`
	Requests int64         `json:"requests"`
	Errors   int64         `json:"errors"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}
	s.writeJSON(w, http.StatusOK, statsResponse{
		Database: s.db.Stats(),
		Requests: s.requestCount.Load(),
		Errors:   s.errorCount.Load(),
	})
}

func (s *Server) handleStage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}
	s.writeJSON(w, http.StatusOK, s.db.Stage())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}

	if r.URL.Query().Get("format") == "json" {
		data, err := s.db.ExportJSON()
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}

	data, err := s.db.ExportCanonical()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, "request too large")
		return
	}

	if err := s.db.ImportCanonical(data); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"imported": true})
}

// signalsRequest is the POST /signals body.
type signalsRequest struct {
	Signals []ingest.Signal `json:"signals"`
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	var req signalsRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := s.db.Ingest(r.Context(), req.Signals)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidSignal) {
			s.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":   true,
				"message": err.Error(),
				"applied": len(results),
			})
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"applied": len(results),
		"results": results,
	})
}

// queryRequest is the POST /query body. Kind selects the operation; only
// the fields that kind reads are required.
type queryRequest struct {
	Kind      string           `json:"kind"`
	Entity    graph.EntityID   `json:"entity"`
	Start     graph.NodeID     `json:"start"`
	End       graph.NodeID     `json:"end"`
	Depth     int              `json:"depth"`
	MinWeight graph.EdgeWeight `json:"minWeight"`
	Nodes     []graph.NodeID   `json:"nodes"`
}

func (r queryRequest) toQuery() (ground.Query, error) {
	switch r.Kind {
	case "lookup":
		return ground.Lookup(r.Entity), nil
	case "traverse":
		return ground.Traverse(r.Start, r.Depth), nil
	case "traverse_filtered":
		return ground.TraverseFiltered(r.Start, r.Depth, r.MinWeight), nil
	case "traverse_dfs":
		return ground.TraverseDFS(r.Start, r.Depth), nil
	case "strongest_path":
		return ground.StrongestPath(r.Start, r.End), nil
	case "intersect":
		return ground.Intersect(r.Nodes), nil
	case "related":
		return ground.Related(r.Start, r.Depth), nil
	default:
		return ground.Query{}, fmt.Errorf("unknown query kind: %q", r.Kind)
	}
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	var req queryRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q, err := req.toQuery()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.db.Query(r.Context(), q)
	if err != nil {
		if errors.Is(err, skuld.ErrCapabilityUnavailable) {
			s.writeError(w, http.StatusForbidden, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// ============================================================================
// Helpers
// ============================================================================

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.errorCount.Add(1)
	s.writeJSON(w, status, map[string]any{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
