package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ceros-embed/ceros-embed/internal/config"
	httpapp "github.com/ceros-embed/ceros-embed/internal/http"
	"github.com/ceros-embed/ceros-embed/internal/http/handlers"
	"github.com/ceros-embed/ceros-embed/internal/metrics"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:         "serve",
	Short:       "Run the configuration and entry editor API.",
	Args:        cobra.NoArgs,
	Annotations: structuredLog,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func runServe(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return usageError(err)
	}
	logger := commandLogger(cmd)

	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	_, metricsErr := metrics.StartServer(ctx, cfg.MetricsAddr, logger)

	srv, err := httpapp.NewEchoServer(&handlers.Handlers{
		Cfg:     cfg,
		Screen:  a.screen,
		Params:  a.installation,
		Entries: a.entries,
		Fetcher: a.fetcher,
		Logger:  logger,
	}, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		_ = httpServer.Shutdown(shutdownCtx)
		return nil
	case err := <-metricsErr:
		return err
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
