package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmenanno/inventory-browser/internal/constants"
)

// Handler builds the route table wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health and metrics
	mux.HandleFunc("GET /health", s.HandleHealth)
	if s.registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	// API routes
	mux.HandleFunc("GET /api/items", s.HandleListItems)
	mux.HandleFunc("GET /api/items/{id}", s.HandleGetItem)
	mux.HandleFunc("POST /api/items", s.HandleCreateItem)
	mux.HandleFunc("GET /api/stats", s.HandleStats)

	// Everything else
	mux.HandleFunc("/", notFound)

	var handler http.Handler = mux
	if s.limiter != nil {
		handler = s.limiter.Middleware(handler)
	}
	if s.registry != nil {
		handler = Instrument(s.registry)(handler)
	}

	// Apply middleware chain (order matters: Recovery -> RequestID -> Logger -> RequestSizeLimit -> CORS -> handlers)
	return Recovery(RequestID(Logger(RequestSizeLimit(CORS(s.config.CORSAllowedOrigin)(handler)))))
}

// Run starts the HTTP server and shuts it down gracefully once ctx is done
func (s *Server) Run(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.StartPeriodicCleanup(ctx, constants.RateLimiterCleanupIntervalMinutes*time.Minute)
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("Starting server on %s", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Println("Server is ready to handle requests")
		serverErrors <- server.ListenAndServe()
	}()

	// Block until the context is cancelled or the server fails
	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		log.Println("Shutdown requested, starting graceful shutdown")

		// Give outstanding requests time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeoutSeconds*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Could not gracefully shutdown server: %v", err)
			return fmt.Errorf("server shutdown error: %w", err)
		}

		log.Println("Server stopped gracefully")
		return nil
	}
}
