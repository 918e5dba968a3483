package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/SebastienMelki/relogs/internal/observability"
)

// Tracker receives decoded events.
type Tracker interface {
	Track(payload any, table string)
}

// HealthCheck reports a dependency's health.
type HealthCheck func(ctx context.Context) error

// Server is the local ingest HTTP server.
type Server struct {
	config  Config
	tracker Tracker
	checks  map[string]HealthCheck
	logger  *slog.Logger
	server  *http.Server
	handler http.Handler
}

// Options holds the server's collaborators. Metrics and MetricsHandler are
// optional.
type Options struct {
	Tracker        Tracker
	Checks         map[string]HealthCheck
	Metrics        *observability.Metrics
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// NewServer builds the server and its routes.
func NewServer(cfg Config, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "gateway")

	s := &Server{
		config:  cfg,
		tracker: opts.Tracker,
		checks:  opts.Checks,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.Handle("POST /v1/track/{table}", Chain(http.HandlerFunc(s.handleTrack),
		RateLimit(cfg.RateLimit),
		BodySizeLimit(cfg.MaxBodyBytes),
	))
	mux.HandleFunc("GET /health", s.handleHealth)
	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	middleware := []Middleware{Recovery(logger), RequestID}
	if opts.Metrics != nil {
		middleware = append(middleware, observability.HTTPMetrics(opts.Metrics))
	}
	s.handler = Chain(mux, middleware...)

	s.server = &http.Server{
		Addr:           cfg.Addr,
		Handler:        s.handler,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens and serves until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	s.logger.Info("gateway listening", "addr", s.config.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("gateway: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down gateway")
	return s.server.Shutdown(ctx)
}

type trackResponse struct {
	Accepted int `json:"accepted"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	events, err := decodeEvents(body, s.config.MaxEventsPerRequest)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	for _, event := range events {
		s.tracker.Track(event, table)
	}

	s.logger.Debug("events accepted",
		"table", table,
		"count", len(events),
		"request_id", GetRequestID(r.Context()),
	)

	writeJSON(w, http.StatusAccepted, trackResponse{Accepted: len(events)})
}

// decodeEvents parses a JSON object as one event or a JSON array as many.
func decodeEvents(body []byte, maxEvents int) ([]any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrEmptyBody
	}

	switch trimmed[0] {
	case '{':
		var event map[string]any
		if err := json.Unmarshal(trimmed, &event); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		return []any{event}, nil
	case '[':
		var events []any
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		if len(events) == 0 {
			return nil, ErrAtLeastOneEvent
		}
		if maxEvents > 0 && len(events) > maxEvents {
			return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(events), maxEvents)
		}
		return events, nil
	default:
		return nil, ErrInvalidJSON
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}

	writeJSON(w, status, map[string]any{
		"status": overall,
		"checks": results,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
