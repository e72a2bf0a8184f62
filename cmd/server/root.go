package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"carsales/internal/config"
	"carsales/internal/engine"
	"carsales/internal/logging"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// app carries flag values and the configuration they resolve to.
type app struct {
	cfgFile  string
	dataPath string
	addr     string
	logLevel string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "carsales",
		Short:         "Car sales analytics dashboard backend",
		Long:          "carsales loads a car sales dataset and serves filtered chart projections over HTTP.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.cfgFile, "config", "", "config file (default ./carsales.yaml or <user config dir>/carsales/carsales.yaml)")
	f.StringVar(&a.dataPath, "data", "", "dataset path, .csv or .xlsx (overrides data.path)")
	f.StringVar(&a.addr, "addr", "", "listen address (overrides server.addr)")
	f.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides log.level)")

	root.AddCommand(
		newServeCmd(a),
		newSummaryCmd(a),
		newChartCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("data") {
		cfg.Data.Path = a.dataPath
	}
	if f.Changed("addr") {
		cfg.Server.Addr = a.addr
	}
	if f.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	return nil
}

func (a *app) logger(w io.Writer) *slog.Logger {
	return logging.New(a.cfg.Log.Level, a.cfg.Log.Format, w)
}

// loadDashboard reads the configured dataset and precomputes its summaries.
func (a *app) loadDashboard(ctx context.Context, logger *slog.Logger) (*engine.Dashboard, error) {
	_, span := otel.Tracer("carsales/cmd").Start(ctx, "dataset.Load")
	defer span.End()
	span.SetAttributes(attribute.String("data.path", a.cfg.Data.Path))

	t, err := engine.Load(a.cfg.Data.Path,
		engine.WithDelimiter(a.cfg.DelimiterRune()),
		engine.WithSheet(a.cfg.Data.Sheet),
		engine.WithPreviewRows(a.cfg.Chart.PreviewRows),
		engine.WithLogger(logger),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	span.SetAttributes(attribute.Int("data.rows", t.Len()))

	opts := engine.ChartOptions{BinSize: a.cfg.Chart.BinSize, KDEPoints: a.cfg.Chart.KDEPoints}
	return engine.NewDashboard(t, opts, logger), nil
}
