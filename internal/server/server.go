// Package server exposes a connected resolver over HTTP for local
// consumers that cannot link the Go package.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/systmms/vaultcache/internal/address"
	dserrors "github.com/systmms/vaultcache/internal/errors"
	"github.com/systmms/vaultcache/internal/logging"
)

// Config holds configuration for the HTTP server.
type Config struct {
	// Listen is the host:port to listen on.
	Listen string

	// MetricsPath is the path to serve metrics on.
	MetricsPath string

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Listen:       "127.0.0.1:8210",
		MetricsPath:  "/metrics",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 35 * time.Second,
	}
}

// Resolver is the part of resolve.Resolver the server needs.
type Resolver interface {
	GetSecret(ctx context.Context, address string) (string, error)
	CheckHealth(ctx context.Context) bool
}

// Server serves secrets, health and metrics.
type Server struct {
	config   Config
	resolver Resolver
	metrics  http.Handler
	logger   *logging.Logger

	server   *http.Server
	listener net.Listener
}

// New creates a server. metrics may be nil to disable the metrics endpoint.
func New(cfg Config, r Resolver, metrics http.Handler, logger *logging.Logger) *Server {
	return &Server{
		config:   cfg,
		resolver: r,
		metrics:  metrics,
		logger:   logger,
	}
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/secret", s.handleSecret)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.metrics != nil && s.config.MetricsPath != "" {
		mux.Handle(s.config.MetricsPath, s.metrics)
	}
	return mux
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return dserrors.ConfigError{
			Field:      "server.listen",
			Value:      s.config.Listen,
			Message:    "cannot listen",
			Suggestion: "Choose a free port with --listen",
			Err:        err,
		}
	}
	s.listener = l

	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	go func() {
		if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

type secretResponse struct {
	Address string `json:"address"`
	Value   string `json:"value"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type healthResponse struct {
	Healthy bool `json:"healthy"`
}

func (s *Server) handleSecret(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed", Kind: "invalid_request"})
		return
	}

	q := r.URL.Query()
	addr := q.Get("address")
	if addr == "" && (q.Has("path") || q.Has("key")) {
		addr = address.Format(q.Get("path"), q.Get("key"))
	}

	value, err := s.resolver.GetSecret(r.Context(), addr)
	if err != nil {
		s.logger.Debug("GET /v1/secret %s: %s", addr, dserrors.KindOf(err))
		writeJSON(w, StatusFor(err), errorResponse{Error: err.Error(), Kind: dserrors.KindOf(err).String()})
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, secretResponse{Address: strings.TrimSpace(addr), Value: value})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.resolver.CheckHealth(r.Context()) {
		writeJSON(w, http.StatusOK, healthResponse{Healthy: true})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, healthResponse{Healthy: false})
}

// StatusFor maps an error kind to an HTTP status code.
func StatusFor(err error) int {
	switch dserrors.KindOf(err) {
	case dserrors.KindInvalidAddress:
		return http.StatusBadRequest
	case dserrors.KindSecretNotFound:
		return http.StatusNotFound
	case dserrors.KindNotConnected, dserrors.KindBackendUnavailable:
		return http.StatusServiceUnavailable
	case dserrors.KindUnexpectedBackend:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
