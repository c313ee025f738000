package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Host        string
	Port        int
	ReadTimeout time.Duration
	IdleTimeout time.Duration
}

// DefaultConfig returns a ServerConfig with sensible defaults. There is
// deliberately no write timeout: the crawl stream stays open for the
// lifetime of a job.
func DefaultConfig() ServerConfig {
	return ServerConfig{
		Host:        "localhost",
		Port:        8080,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
}

// Server is the HTTP API server.
type Server struct {
	config   ServerConfig
	handlers *Handlers
	server   *http.Server
}

// NewServer creates a new API server.
func NewServer(handlers *Handlers, config ServerConfig) *Server {
	return &Server{
		config:   config,
		handlers: handlers,
	}
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs all requests.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// Handler builds the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	h := s.handlers
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /analyzePositionFromMatch", h.AnalyzePosition)

	mux.HandleFunc("GET /getQuiz", h.auth(h.GetQuiz))
	mux.HandleFunc("GET /getQuiz/{id}", h.auth(h.GetQuizByID))
	mux.HandleFunc("POST /updateQuiz", h.auth(h.UpdateQuiz))
	mux.HandleFunc("GET /getPlayers", h.auth(h.GetPlayers))
	mux.HandleFunc("GET /getStatistics", h.auth(h.GetStatistics))

	mux.HandleFunc("POST /addLastMatchesAndSave", h.auth(h.AddLastMatches))
	mux.HandleFunc("GET /addLastMatchesAndSave/stream", h.auth(h.CrawlStream))
	mux.HandleFunc("GET /addLastMatchesAndSave/ws", h.auth(h.CrawlWS))

	return corsMiddleware(loggingMiddleware(mux))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: s.config.ReadTimeout,
		IdleTimeout: s.config.IdleTimeout,
	}

	log.Printf("Starting bgquiz server on %s", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ListenAndServeWithGracefulShutdown starts the server and drains it on
// SIGINT/SIGTERM.
func (s *Server) ListenAndServeWithGracefulShutdown() error {
	errChan := make(chan error, 1)

	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		log.Printf("Received signal %v, shutting down...", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped gracefully")
	return nil
}
