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

	"carsales/internal/api"
	"carsales/internal/telemetry"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (default command)",
		Long: `Start the HTTP API immediately and load the dataset in the background.
Data endpoints answer 503 until loading finishes; a load failure stops the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd)
		},
	}
}

func (a *app) serve(cmd *cobra.Command) error {
	cfg := a.cfg
	logger := a.logger(os.Stdout)
	slog.SetDefault(logger)

	shutdownTracing, err := telemetry.Setup(cfg.Tracing.Enabled, version, os.Stdout, logger)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("tracer shutdown", slog.String("error", err.Error()))
		}
	}()

	var metrics *api.Metrics
	if cfg.Metrics.Enabled {
		metrics = api.NewMetrics()
	}
	h := api.NewHandler(metrics, cfg.Server.AllowedOrigins, logger)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewEcho(cfg.Server, h, metrics, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server listening", slog.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// The API is live before the data is; handlers answer 503 until SetDashboard.
	g.Go(func() error {
		logger.Info("loading dataset", slog.String("path", cfg.Data.Path))
		t0 := time.Now()
		d, err := a.loadDashboard(gctx, logger)
		if err != nil {
			return err
		}
		h.SetDashboard(d)
		logger.Info("dataset ready",
			slog.Int("rows", d.Table().Len()),
			slog.Duration("elapsed", time.Since(t0)))
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}
