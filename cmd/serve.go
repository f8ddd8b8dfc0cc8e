package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/redraw/internal/server"
	"github.com/cwbudde/redraw/internal/store"
)

var (
	serveAddr    string
	serveDataDir string
	serveNoStore bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP job server",
	Long: `Starts an HTTP server that runs redraw jobs in the background.
Jobs are created with POST /api/v1/jobs and report progress over SSE.
Unless --no-store is given, runs are checkpointed under --data-dir.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "./data", "Base directory for checkpoints")
	serveCmd.Flags().BoolVar(&serveNoStore, "no-store", false, "Keep jobs in memory only")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	var checkpointStore store.Store
	if !serveNoStore {
		fs, err := store.NewFSStore(serveDataDir)
		if err != nil {
			return err
		}
		checkpointStore = fs
	}

	srv := server.NewServer(serveAddr, checkpointStore)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("Server stopped")
	return nil
}
