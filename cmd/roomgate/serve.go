package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	rghttp "github.com/fyrsmithlabs/roomgate/internal/http"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gate over HTTP",
	Long: `Serve POST /classify, GET /health and GET /metrics.

The classifier artifact is loaded from classifier.model_path, or trained
from the built-in corpus and cached there. With classifier.watch enabled
a rewritten artifact (for example by "roomgate train") is picked up
without a restart.

Examples:
  roomgate serve
  ROOMGATE_SERVER_PORT=8080 roomgate serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	comps, err := a.buildGate(ctx, a.cfg.Classifier.Watch)
	if err != nil {
		return fmt.Errorf("initializing gate: %w", err)
	}
	defer func() { _ = comps.Close() }()

	sc := a.cfg.Server
	srv, err := rghttp.NewServer(comps.gate, a.logger, &rghttp.Config{
		Host:        sc.Host,
		Port:        sc.Port,
		RateLimit:   sc.RateLimit,
		RateBurst:   sc.RateBurst,
		CORSOrigins: sc.CORSOrigins,
		BodyLimit:   sc.BodyLimit,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info(context.Background(), "received shutdown signal",
		zap.Duration("shutdown_timeout", sc.ShutdownTimeout.Duration()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), sc.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return <-errCh
}
