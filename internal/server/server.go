package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/spigell/mock-interviewer/internal/ai"
)

const (
	DefaultSessionTTL    = time.Hour
	DefaultSweepInterval = time.Minute
)

// ConnectRequest is the configuration a candidate submits when opening a session.
type ConnectRequest struct {
	APIKey string
	Model  string
}

// Backend is the set of provider collaborators bound to one credential and model.
type Backend struct {
	Model       string
	Models      []string
	Chat        ai.ChatStarter
	Transcriber ai.Transcriber
	Evaluator   ai.Evaluator
}

// Connector validates a credential and returns the collaborators for a new session.
type Connector interface {
	Connect(ctx context.Context, req ConnectRequest) (*Backend, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context, req ConnectRequest) (*Backend, error)

func (f ConnectorFunc) Connect(ctx context.Context, req ConnectRequest) (*Backend, error) {
	return f(ctx, req)
}

type Config struct {
	SessionTTL    time.Duration
	SweepInterval time.Duration
}

// Server exposes interview sessions over HTTP.
type Server struct {
	connector Connector
	registry  *Registry
	cfg       Config
	logger    *zap.Logger
}

func New(connector Connector, cfg Config, logger *zap.Logger) *Server {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		connector: connector,
		registry:  NewRegistry(),
		cfg:       cfg,
		logger:    logger,
	}
}

func (s *Server) Registry() *Registry { return s.registry }

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Put("/resume", s.uploadResume)
			r.Post("/start", s.startInterview)
			r.Post("/answers", s.submitAnswer)
			r.Post("/end", s.endInterview)
			r.Post("/report", s.generateReport)
			r.Post("/reset", s.resetSession)
		})
	})

	return r
}

// RunSweeper destroys idle sessions until ctx is done.
func (s *Server) RunSweeper(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if dropped := s.registry.Sweep(s.cfg.SessionTTL); dropped > 0 {
				s.logger.Info("idle sessions removed", zap.Int("count", dropped), zap.Int("remaining", s.registry.Len()))
			}
		}
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(started)),
			zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
		)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
