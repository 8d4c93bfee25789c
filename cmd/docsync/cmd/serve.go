package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mfenderov/docsync/internal/api"
	"github.com/mfenderov/docsync/internal/metrics"
	"github.com/mfenderov/docsync/internal/runlock"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP trigger server",
	Long: `Start the HTTP server.

Routes:
  POST /gather-data         Sync every scheme and return per scheme counts
  GET  /files               List stored manifests
  GET  /files/{fileName}    Get one manifest
  GET  /health              Liveness
  GET  /metrics             Prometheus metrics

Example:
  docsync serve --addr :3001`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.HTTP.Addr = serveAddr
	}

	collector := metrics.NewCollector()
	a, err := newApp(ctx, cfg, collector)
	if err != nil {
		return err
	}
	if err := a.indices.ensure(ctx); err != nil {
		return fmt.Errorf("failed to create indices: %w", err)
	}

	handler := api.New(a.runner, a.manifests, runlock.New(cfg.Sync.LockFile), collector.Handler()).Handler()
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", cfg.HTTP.Addr, "schemes", a.runner.Schemes())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s\n", cfg.HTTP.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
