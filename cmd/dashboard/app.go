package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"c19pulse/internal/cache"
	"c19pulse/internal/config"
	dp "c19pulse/internal/dataprocessing"
	"c19pulse/internal/datasets"
	"c19pulse/internal/infrastructure"
	"c19pulse/internal/report"
	"c19pulse/internal/sources"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath  string
	logLevel    string
	metricsFile string
}

// app holds the wired pipeline for one command invocation
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *infrastructure.Metrics
	providers *infrastructure.OTelProviders
	builder   *report.Builder
}

// loadConfig reads configuration and applies the global flag overrides
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.metricsFile != "" {
		cfg.Telemetry.MetricsFile = flags.metricsFile
		cfg.Telemetry.MetricsEnabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp loads configuration and wires the loader, engine, cache and
// report builder. The returned context carries the run id.
func newApp(cmd *cobra.Command, flags *globalFlags) (context.Context, *app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, nil, err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	ready := false
	defer func() {
		if !ready {
			infrastructure.ResetLogger()
		}
	}()

	ctx, _ := infrastructure.ContextWithRunID(cmd.Context())

	registry, err := datasets.Default(cfg)
	if err != nil {
		return nil, nil, err
	}

	metrics := infrastructure.NewMetrics()
	providers, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry, metrics.Registry), logger)
	if err != nil {
		return nil, nil, err
	}
	instruments, err := infrastructure.NewPipelineInstruments(providers.Meter)
	if err != nil {
		_ = providers.Shutdown(context.Background())
		return nil, nil, err
	}

	opener := sources.NewRouter(sources.NewHTTPOpener(cfg.HTTP, logger), metrics, logger)

	var memo *cache.Memo
	if cfg.Cache.Enabled {
		memo = cache.NewMemo(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	}

	builder := report.NewBuilder(cfg, registry, report.Dependencies{
		Loader:  dp.NewLoader(opener, logger, providers.Tracer),
		Engine:  dp.NewEngine(logger, providers.Tracer, instruments),
		Memo:    memo,
		Metrics: metrics,
		Tracer:  providers.Tracer,
		Logger:  logger,
	})

	logger.DebugContext(ctx, "dashboard initialized",
		slog.String("command", cmd.Name()),
		slog.Int("datasets", registry.Count()),
		slog.Bool("cache", cfg.Cache.Enabled))

	ready = true
	return ctx, &app{
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		providers: providers,
		builder:   builder,
	}, nil
}

// close writes the metrics textfile, flushes telemetry and releases the
// logger
func (a *app) close() error {
	var errs []error
	if a.cfg.Telemetry.MetricsFile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.Telemetry.MetricsFile); err != nil {
			errs = append(errs, err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.providers.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, err)
	}
	infrastructure.ResetLogger()
	return errors.Join(errs...)
}
