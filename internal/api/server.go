package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"
)

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	Port            string
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns the default HTTP server settings
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            "8080",
		MaxBodyBytes:    1 << 20,
		ShutdownTimeout: 30 * time.Second,
	}
}

// ListenAndServe serves the API until ctx is cancelled, then shuts the HTTP
// server and the SSE server down gracefully
func ListenAndServe(ctx context.Context, cfg ServerConfig, handler *Handler) error {
	router := SetupRouter(handler)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxBodyBytes)
			router.ServeHTTP(w, r)
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")

	// Close event streams first; Shutdown waits for active handlers
	handler.SSEServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Println("Server stopped")
	return nil
}
