// Package server exposes the FMS tracker over HTTP and serves the bundled
// browser client.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/fms-tracker/internal/store"
	"github.com/nhle/fms-tracker/internal/tracker"
)

//go:embed static
var staticFiles embed.FS

// DelayScanner runs the overdue-step scan and reports alerts sent.
type DelayScanner interface {
	Scan(ctx context.Context) (int, error)
}

// Server routes the FMS HTTP API.
type Server struct {
	tracker        *tracker.Service
	scanner        DelayScanner
	logger         *zap.Logger
	maxUploadBytes int64

	mu     sync.Mutex
	server *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMaxUploadBytes limits the size of a multipart upload body.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) { s.maxUploadBytes = n }
}

// NewServer creates a Server.
func NewServer(t *tracker.Service, scanner DelayScanner, opts ...Option) *Server {
	s := &Server{
		tracker:        t,
		scanner:        scanner,
		logger:         zap.NewNop(),
		maxUploadBytes: 10 << 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the complete HTTP handler: API routes, static client and
// request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("POST /api/initialize", s.handleInitialize)
	mux.HandleFunc("POST /api/tasks", s.handleCreateTask)
	mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	mux.HandleFunc("POST /api/task_steps/{taskId}/{stepName}", s.handleCompleteStep)
	mux.HandleFunc("GET /api/check_delays", s.handleCheckDelays)
	mux.HandleFunc("GET /api/email_log", s.handleEmailLog)
	mux.HandleFunc("GET /api/database", s.handleDatabase)
	mux.HandleFunc("POST /api/upload/{taskId}/{stepName}", s.handleUpload)
	mux.HandleFunc("GET /api/file/{fileId}", s.handleFile)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /api/steps", s.handleSteps)

	// Static files
	assets, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle("GET /", http.FileServer(http.FS(assets)))

	return s.logRequests(mux)
}

// Start listens on addr and blocks until the server stops. It returns nil
// after a graceful Shutdown, including one that happened before Start.
func (s *Server) Start(addr string) error {
	srv := s.httpServer()
	s.mu.Lock()
	srv.Addr = addr
	s.mu.Unlock()

	s.logger.Info("http server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server. A later Start returns at once.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer().Shutdown(ctx)
}

// httpServer returns the single http.Server shared by Start and Shutdown.
func (s *Server) httpServer() *http.Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		s.server = &http.Server{
			Handler:           s.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return s.server
}

func (s *Server) respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encoding response", zap.Error(err))
	}
}

// respondError maps the error taxonomy onto HTTP status codes.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, tracker.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &maxBytes):
		status = http.StatusRequestEntityTooLarge
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.respond(w, status, map[string]string{"error": err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
