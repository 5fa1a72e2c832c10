// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/0xcro3dile/deskmate/internal/domain/chat"
	"github.com/0xcro3dile/deskmate/internal/domain/entities"
	"github.com/0xcro3dile/deskmate/internal/domain/ports"
)

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-ID"

// maxBodyBytes bounds decoded request bodies.
const maxBodyBytes = 1 << 20

// Server is the HTTP server for the assistant API.
type Server struct {
	assistant       ports.Assistant
	sessions        *chat.Registry
	log             *zap.Logger
	addr            string
	allowedOrigins  []string
	shutdownTimeout time.Duration
}

// Options configures the listener.
type Options struct {
	Addr            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// NewServer creates a new HTTP server.
func NewServer(assistant ports.Assistant, sessions *chat.Registry, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		assistant:       assistant,
		sessions:        sessions,
		log:             log,
		addr:            opts.Addr,
		allowedOrigins:  opts.AllowedOrigins,
		shutdownTimeout: opts.ShutdownTimeout,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logging)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/assistant", s.handleAssistant)

		r.Route("/sessions/{userID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleClearSession)
			r.Post("/messages", s.handleSendMessage)
		})
	})
	return r
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		// Assistant calls wait on the aggregator and the LLM.
		WriteTimeout: 180 * time.Second,
	}

	s.log.Info("deskmate server starting", zap.String("addr", s.addr))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("shutdown failed", zap.Error(err))
		}
	}()

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleAssistant answers one turn without a session.
func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	var req entities.AssistantRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := s.assistant.Invoke(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.log.Error("assistant request failed",
				zap.String("request_id", requestIDFrom(r.Context())),
				zap.String("user_id", req.UserID),
				zap.Error(err),
			)
		}
		writeError(w, status, errorMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*chat.Controller, bool) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return nil, false
	}
	c, err := s.sessions.Get(r.Context(), userID)
	if err != nil {
		s.log.Error("loading session failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load session")
		return nil, false
	}
	return c, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.State())
}

// SendMessageRequest is the body of POST /api/sessions/{userID}/messages.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// handleSendMessage queues a debounced send. The reply arrives in a later GET.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	c, ok := s.session(w, r)
	if !ok {
		return
	}
	c.SetInput(req.Text)
	c.Send()
	writeJSON(w, http.StatusAccepted, c.State())
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := c.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "could not clear history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps typed domain errors to HTTP status codes.
func statusFor(err error) int {
	var validation *entities.ValidationError
	var configuration *entities.ConfigurationError
	var upstream *entities.UpstreamError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &configuration):
		return http.StatusInternalServerError
	case errors.As(err, &upstream):
		if upstream.StatusCode >= 400 && upstream.StatusCode <= 599 {
			return upstream.StatusCode
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	var configuration *entities.ConfigurationError
	if errors.As(err, &configuration) {
		return configuration.Message
	}
	var upstream *entities.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Message
	}
	return err.Error()
}

type ctxKey struct{}

// requestID tags each request with an id, reusing the caller's when present.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
			w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowOrigin(origin string) string {
	for _, o := range s.allowedOrigins {
		if o == "*" {
			return "*"
		}
		if origin != "" && o == origin {
			return origin
		}
	}
	return ""
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
