package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SLBlundell/Economics-Dissertation/internal/config"
	"github.com/SLBlundell/Economics-Dissertation/internal/infrastructure"
	"github.com/SLBlundell/Economics-Dissertation/internal/operations"
	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	outPath := flag.String("out", "", "output file (defaults to output.path)")
	format := flag.String("format", "", "output format: csv or parquet (defaults to output.format)")
	offline := flag.Bool("offline", false, "read prices from the local cache instead of the feed")
	strict := flag.Bool("strict", false, "fail when any trade date is skipped")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString("dataset"))
		return
	}

	os.Exit(run(*configPath, overrides{
		out:     *outPath,
		format:  *format,
		offline: *offline,
		strict:  *strict,
	}))
}

// overrides are command line settings that win over the configuration
type overrides struct {
	out     string
	format  string
	offline bool
	strict  bool
}

func (o overrides) apply(cfg *config.Config, paths *config.Paths) {
	if o.out != "" {
		cfg.Output.Path = o.out
	}
	if o.format != "" {
		cfg.Output.Format = o.format
	}
	if o.strict {
		cfg.Assembler.Strict = true
	}
	if o.offline && cfg.Equity.PricesFile == "" {
		cfg.Equity.PricesFile = paths.PriceCacheCSV
	}
}

func run(configPath string, o overrides) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	paths, err := config.GetPaths(cfg.Paths)
	if err != nil {
		logger.Error("Failed to resolve paths", slog.String("error", err.Error()))
		return 1
	}
	if err := paths.EnsureDirectories(); err != nil {
		logger.Error("Failed to create required directories", slog.String("error", err.Error()))
		return 1
	}
	paths.LogPathResolution(logger)
	o.apply(cfg, paths)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = infrastructure.EnsureRunID(ctx)

	tel, err := infrastructure.InitializeTelemetry(infrastructure.TelemetryConfig{
		EnableTracing:   cfg.Telemetry.Tracing,
		TracesFile:      cfg.Telemetry.TracesFile,
		MetricsTextfile: cfg.Telemetry.MetricsTextfile,
	}, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize telemetry", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	logger.InfoContext(ctx, "Starting herding dataset build",
		slog.String("version", contracts.Version),
		slog.String("sample_start", cfg.Sample.Start),
		slog.String("sample_end", cfg.Sample.End),
		slog.String("output", cfg.Output.Path),
		slog.String("format", cfg.Output.Format),
		slog.Bool("strict", cfg.Assembler.Strict),
		slog.Bool("offline", cfg.Equity.PricesFile != ""))

	p := newPipeline(cfg, paths, tel.Metrics, logger)
	runner := operations.NewRunner(operations.RunnerOptions{
		Retry:   retryConfig(cfg.Retry),
		Tracer:  tel.Tracer,
		Metrics: tel.Metrics,
		Logger:  logger,
	})

	results, err := runner.Run(ctx, p.steps()...)
	p.summary(ctx)
	if err != nil {
		failed, _ := operations.Failed(results)
		logger.ErrorContext(ctx, "Dataset build failed",
			slog.String("step", failed.ID),
			slog.String("error_type", string(operations.GetErrorType(err))),
			slog.String("error", err.Error()))
		return 1
	}

	return 0
}
