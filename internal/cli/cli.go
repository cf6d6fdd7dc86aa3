// Package cli holds the wiring shared by the two loader binaries: flag
// registration over the environment-derived config, logger construction,
// metrics backend selection, and opening the store.
package cli

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/config"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/metrics"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/metrics/prompush"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/storage"
	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/storage/postgres"
)

// BindFlags registers the shared flags on fs. Defaults come from cfg, which
// the caller populates with config.FromEnv, so the precedence is
// flag > environment > built-in default.
func BindFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.DB.Host, "db_host", cfg.DB.Host, "database host")
	fs.StringVar(&cfg.DB.Port, "db_port", cfg.DB.Port, "database port")
	fs.StringVar(&cfg.DB.Name, "db_name", cfg.DB.Name, "database name")
	fs.StringVar(&cfg.DB.User, "db_user", cfg.DB.User, "database user")
	fs.StringVar(&cfg.DB.Password, "db_password", cfg.DB.Password, "database password")
	fs.BoolVar(&cfg.InitSchema, "init-schema", cfg.InitSchema, "create the destination tables if missing before loading")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "rows per insert batch")
	fs.StringVar(&cfg.MetricsBackend, "metrics-backend", cfg.MetricsBackend, "metrics backend (pushgateway, none)")
	fs.StringVar(&cfg.PushgatewayURL, "pushgateway-url", cfg.PushgatewayURL, "Pushgateway base URL")
}

// NewLogger builds the run logger. Structured JSON on stderr; stdout is
// reserved for the final result line.
func NewLogger(verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zcfg.Build()
}

// InitMetrics installs the configured metrics backend and returns a flush
// function for main to defer. A misconfigured backend degrades to the no-op
// backend rather than failing the load.
func InitMetrics(cfg config.Config, job string, logger *zap.Logger) func() {
	switch cfg.MetricsBackend {
	case "pushgateway":
		url := cfg.PushgatewayURL
		if url == "" {
			url = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(job, url)
		if err != nil {
			logger.Warn("metrics backend init failed, metrics disabled", zap.Error(err))
			return func() {}
		}
		metrics.SetBackend(b)
		return func() {
			if err := metrics.Flush(); err != nil {
				logger.Warn("metrics flush failed", zap.Error(err))
			}
		}
	case "", "none":
		return func() {}
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", cfg.MetricsBackend)
		return func() {}
	}
}

// OpenStore dials the database and, when asked, creates the schema.
func OpenStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Store, error) {
	store, err := postgres.Connect(ctx, cfg.DB.DSN(), logger)
	if err != nil {
		return nil, err
	}
	if cfg.InitSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close(ctx)
			return nil, err
		}
	}
	return store, nil
}
