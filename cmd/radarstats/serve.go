package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	httpadapter "github.com/dylanvkmns/rqmProject/internal/adapter/http"
	"github.com/dylanvkmns/rqmProject/internal/domain"
	"github.com/dylanvkmns/rqmProject/internal/pipeline"
	"github.com/dylanvkmns/rqmProject/internal/view"
	"github.com/spf13/cobra"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the view API and ingest INPUT_DIR on INGEST_SCHEDULE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	ing, err := a.ingester()
	if err != nil {
		return err
	}
	sched, err := pipeline.NewScheduler(a.cfg.IngestSchedule, ing, a.logger)
	if err != nil {
		return err
	}

	views := view.NewService(a.store, domain.DefaultMetricGroups(), a.cfg.ViewCacheSize, a.logger, a.metrics)
	srv := httpadapter.NewServer(a.cfg.HTTPAddr, views, a.store, a.logger, a.store, ing)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start scheduled ingestion.
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := sched.Run(ctx); err != nil {
			a.logger.Error("scheduler error", "error", err)
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-schedDone:
	case <-shutdownCtx.Done():
		a.logger.Warn("ingestion still running at shutdown deadline")
	}

	a.logger.Info("shutdown complete")
	return nil
}
