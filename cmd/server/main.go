package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/piske-alex/mongoexpr/internal/api"
	"github.com/piske-alex/mongoexpr/internal/history"
	"github.com/piske-alex/mongoexpr/internal/sse"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	if err := run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// run owns every deferred cleanup so that it executes before main exits
func run() error {
	cfg := api.DefaultServerConfig()
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}
	if v := os.Getenv("MAX_REQUEST_SIZE_MB"); v != "" {
		if size, err := strconv.Atoi(v); err == nil && size > 0 {
			cfg.MaxBodyBytes = int64(size) * 1024 * 1024
		}
	}
	log.Printf("Maximum request body size: %d bytes", cfg.MaxBodyBytes)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storeType := history.ParseStoreType(os.Getenv("STORE_TYPE"))
	log.Printf("Using %s history store", storeType)

	store, err := history.CreateStore(ctx, storeType)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}()

	if err := store.DisplayStoreInfo(); err != nil {
		log.Printf("Warning: Failed to display store information: %v", err)
	}

	handler := api.NewHandler(store, sse.NewServer(sse.DefaultOptions()))
	return api.ListenAndServe(ctx, cfg, handler)
}
