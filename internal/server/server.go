package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/label-analyzer/internal/pipeline"
)

// Options bounds request handling.
type Options struct {
	// TempDir receives the per-request upload file. Empty means os.TempDir.
	TempDir string

	// MaxUploadBytes caps the request body.
	MaxUploadBytes int64

	// RequestTimeout bounds one request end to end, model call included.
	RequestTimeout time.Duration
}

// Default limits, used for zero Options fields.
const (
	DefaultMaxUploadBytes = 20 << 20
	DefaultRequestTimeout = 150 * time.Second
)

// Server exposes the label pipeline over HTTP.
type Server struct {
	pipe *pipeline.Pipeline
	opts Options
	log  logrus.FieldLogger
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status        string `json:"status"`
	OCREngine     string `json:"ocr_engine"`
	OCRVersion    string `json:"ocr_version"`
	OCRError      string `json:"ocr_error,omitempty"`
	ModelProvider string `json:"model_provider"`
	Model         string `json:"model"`
}

// New creates a server instance. A nil logger discards output.
func New(pipe *pipeline.Pipeline, opts Options, log logrus.FieldLogger) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	return &Server{pipe: pipe, opts: opts, log: log}
}

// Handler returns the routing table. Unknown paths and methods are answered
// with an ErrorResponse like every other failure.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /process-image", s.handleProcessImage)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("/process-image", methodNotAllowed(http.MethodPost))
	mux.HandleFunc("/healthz", methodNotAllowed(http.MethodGet, http.MethodHead))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "no route for " + r.URL.Path})
	})
	return mux
}

func methodNotAllowed(allowed ...string) http.HandlerFunc {
	allow := strings.Join(allowed, ", ")
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allow)
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
			Error: fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path),
		})
	}
}

// Run listens on addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then drains
// in-flight requests for up to the request timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", ln.Addr().String()).Info("Listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.RequestTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a classified failure to its status and error body.
func (s *Server) writeError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	kind := pipeline.KindOf(err)
	log.WithError(err).WithField("kind", kind.String()).Error("Request failed")
	writeJSON(w, kind.Status(), ErrorResponse{Error: err.Error()})
}
