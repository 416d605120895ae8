// Package server is the HTTP surface of the chat service.
//
// Endpoints:
//   - POST /api/chat                 streamed chat turn in the configured framing
//   - POST /api/attachments/analyze  attachment analysis, JSON response
//   - GET  /api/metrics              counter snapshot
//   - GET  /healthz                  liveness
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/wyemhu12/vikini-sub002/attachment"
	"github.com/wyemhu12/vikini-sub002/chat"
	"github.com/wyemhu12/vikini-sub002/log"
	"github.com/wyemhu12/vikini-sub002/metrics"
	"github.com/wyemhu12/vikini-sub002/stream"
	"github.com/wyemhu12/vikini-sub002/types"
)

// Defaults for Config zero values.
const (
	DefaultAddr            = "127.0.0.1:8080"
	DefaultMaxBodyBytes    = 1 << 20
	DefaultReadTimeout     = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// ConversationIDHeader names the conversation a chat stream writes to.
const ConversationIDHeader = "X-Conversation-ID"

// Config holds listener settings. WriteTimeout stays zero by default so long
// streams are not cut off.
type Config struct {
	Addr            string
	MaxBodyBytes    int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	return c
}

// Server routes HTTP requests to the chat and attachment services.
type Server struct {
	chat      *chat.Service
	analyzer  *attachment.Analyzer
	codec     stream.Codec
	auth      Authenticator
	logger    *log.Logger
	collector *metrics.Collector
	config    Config
	newID     func() string

	mux     *http.ServeMux
	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithCodec selects the response framing. Defaults to the sentinel framing.
func WithCodec(c stream.Codec) Option { return func(s *Server) { s.codec = c } }

// WithAuthenticator sets how requests map to users.
func WithAuthenticator(a Authenticator) Option { return func(s *Server) { s.auth = a } }

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithCollector exposes c on /api/metrics.
func WithCollector(c *metrics.Collector) Option { return func(s *Server) { s.collector = c } }

// WithConfig sets listener settings.
func WithConfig(c Config) Option { return func(s *Server) { s.config = c } }

func withRequestIDs(newID func() string) Option { return func(s *Server) { s.newID = newID } }

// New creates a server. analyzer may be nil, which disables the attachment route.
func New(chatSvc *chat.Service, analyzer *attachment.Analyzer, opts ...Option) *Server {
	s := &Server{
		chat:     chatSvc,
		analyzer: analyzer,
		auth:     HeaderAuthenticator{},
		logger:   log.Nop(),
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.codec == nil {
		s.codec = stream.SentinelCodec{Logger: s.logger, Collector: s.collector}
	}
	s.config = s.config.withDefaults()
	s.routes()
	s.handler = Chain(
		requestIDMiddleware(s.newID),
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
	)(s.mux)
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	if s.analyzer != nil {
		s.mux.HandleFunc("POST /api/attachments/analyze", s.handleAnalyze)
	}
	s.mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("server listening", map[string]any{
		"addr":    ln.Addr().String(),
		"framing": s.codec.Name(),
		"version": types.Version,
	})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
