package http

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"meetingbingo/internal/app"
	"meetingbingo/internal/config"
	"meetingbingo/internal/transcribe"
	"meetingbingo/internal/transport/ws"
)

// maxAudioBytes bounds the multipart form kept in memory for /api/transcribe.
const maxAudioBytes = 10 << 20

// Server represents the HTTP server
type Server struct {
	server   *http.Server
	registry *app.Registry
	provider transcribe.Provider
	config   *config.Config
	logger   *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, registry *app.Registry, provider transcribe.Provider, logger *slog.Logger) *Server {
	s := &Server{
		registry: registry,
		provider: provider,
		config:   cfg,
		logger:   logger,
	}

	router := mux.NewRouter()
	s.setupRoutes(router)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	})

	s.server = &http.Server{
		Addr:         cfg.GetAddr(),
		Handler:      s.middleware(corsHandler.Handler(router)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(router *mux.Router) {
	router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/join", s.handleJoin).Methods(http.MethodPost)
	api.HandleFunc("/mark", s.handleMark).Methods(http.MethodPost)
	api.HandleFunc("/room/{meetingId}", s.handleGetRoom).Methods(http.MethodGet)
	api.HandleFunc("/room/{meetingId}/player/{playerId}", s.handleLeave).Methods(http.MethodDelete)
	api.HandleFunc("/room/{meetingId}/player/{playerId}/words", s.handleSetWords).Methods(http.MethodPost)
	api.HandleFunc("/room/{meetingId}/reset", s.handleResetRoom).Methods(http.MethodPost)
	api.HandleFunc("/reset-all", s.handleResetAll).Methods(http.MethodPost)
	api.HandleFunc("/transcribe", s.handleTranscribe).Methods(http.MethodPost)

	// Real-time channel, one per (meetingId, playerId)
	wsHandler := ws.NewHandler(s.registry, s.logger)
	router.Handle("/ws/{meetingId}/{playerId}", wsHandler).Methods(http.MethodGet)
}

// middleware wraps the handler with request logging
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
		)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("server starting", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.server.Shutdown(ctx)
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker for WebSocket support
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// Flush implements http.Flusher
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
