package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/piske-alex/mongoexpr/internal/api"
	"github.com/piske-alex/mongoexpr/internal/history"
	"github.com/piske-alex/mongoexpr/internal/sse"
)

var (
	servePort       string
	serveStore      string
	serveMaxBodyMB  int
	serveMaxClients int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API: expression analysis, history and the live event stream.

The mongo store reads MONGO_URI (or MONGO_HOST, MONGO_PORT, MONGO_USER,
MONGO_PASSWORD, MONGO_AUTH_DB), MONGO_DB_NAME and MONGO_COLLECTION.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	defaults := api.DefaultServerConfig()
	serveCmd.Flags().StringVarP(&servePort, "port", "p", defaults.Port, "Port to listen on")
	serveCmd.Flags().StringVar(&serveStore, "store", string(history.MemoryStoreType), "History store (memory, mongo)")
	serveCmd.Flags().IntVar(&serveMaxBodyMB, "max-body-mb", 1, "Maximum request body size in MB")
	serveCmd.Flags().IntVar(&serveMaxClients, "max-clients", sse.DefaultOptions().MaxClients, "Maximum concurrent event stream clients")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := history.CreateStore(ctx, history.ParseStoreType(serveStore))
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	if err := store.DisplayStoreInfo(); err != nil {
		log.Printf("Warning: Failed to display store information: %v", err)
	}

	sseOpts := sse.DefaultOptions()
	sseOpts.MaxClients = serveMaxClients

	cfg := api.DefaultServerConfig()
	cfg.Port = servePort
	if serveMaxBodyMB > 0 {
		cfg.MaxBodyBytes = int64(serveMaxBodyMB) * 1024 * 1024
	}

	return api.ListenAndServe(ctx, cfg, api.NewHandler(store, sse.NewServer(sseOpts)))
}
