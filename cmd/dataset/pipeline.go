package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/SLBlundell/Economics-Dissertation/internal/assembler"
	"github.com/SLBlundell/Economics-Dissertation/internal/config"
	"github.com/SLBlundell/Economics-Dissertation/internal/crosssection"
	"github.com/SLBlundell/Economics-Dissertation/internal/exporter"
	"github.com/SLBlundell/Economics-Dissertation/internal/infrastructure"
	"github.com/SLBlundell/Economics-Dissertation/internal/operations"
	"github.com/SLBlundell/Economics-Dissertation/internal/returns"
	"github.com/SLBlundell/Economics-Dissertation/internal/sources"
	"github.com/SLBlundell/Economics-Dissertation/internal/sources/epidemic"
	"github.com/SLBlundell/Economics-Dissertation/internal/sources/equity"
	"github.com/SLBlundell/Economics-Dissertation/internal/sources/policy"
	"github.com/SLBlundell/Economics-Dissertation/internal/validation"
	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts/domain"
)

// pipeline carries one run's state between steps
type pipeline struct {
	cfg     *config.Config
	paths   *config.Paths
	fetcher *sources.Fetcher
	metrics *infrastructure.PipelineMetrics
	logger  *slog.Logger

	out    string
	format string

	instruments []domain.Instrument
	prices      []domain.EquityObservation
	policy      *policy.Index
	epidemic    *epidemic.Series
	returns     []domain.EquityReturn
	sections    []domain.DailyCrossSection
	skipped     []domain.SkippedDate
	dataset     domain.Dataset
	written     string
}

func newPipeline(cfg *config.Config, paths *config.Paths, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *pipeline {
	retry := retryConfig(cfg.Retry)
	return &pipeline{
		cfg:     cfg,
		paths:   paths,
		fetcher: sources.NewFetcher(cfg.Equity.Timeout, retry, metrics, logger),
		metrics: metrics,
		logger:  logger,
		out:     cfg.Output.Path,
		format:  cfg.Output.Format,
	}
}

func retryConfig(c config.RetryConfig) operations.RetryConfig {
	return operations.RetryConfig{
		MaxAttempts:  c.MaxAttempts,
		InitialDelay: c.InitialDelay,
		MaxDelay:     c.MaxDelay,
		Multiplier:   c.Multiplier,
	}
}

// steps lists the run in execution order
func (p *pipeline) steps() []operations.Step {
	return []operations.Step{
		operations.NewStep("validate-inputs", "Validate local inputs", p.validateInputs),
		operations.NewStep("fetch-instruments", "Load instrument list", p.fetchInstruments),
		operations.NewStep("fetch-prices", "Fetch daily closes", p.fetchPrices),
		operations.NewStep("load-policy", "Load policy index", p.loadPolicy),
		operations.NewStep("load-epidemic", "Load epidemic series", p.loadEpidemic),
		operations.NewStep("compute-returns", "Compute log returns", p.computeReturns),
		operations.NewStep("aggregate", "Aggregate cross sections", p.aggregate),
		operations.NewStep("assemble", "Assemble dataset", p.assemble),
		operations.NewStep("export", "Write dataset", p.export),
	}
}

func (p *pipeline) validateInputs(ctx context.Context) error {
	out := exporter.NewWriter(p.paths, p.logger).ResolvePath(p.out)
	if err := validation.NewFileValidator(p.logger).ValidateRun(p.cfg, out); err != nil {
		return operations.NewValidationError("validate-inputs", err.Error())
	}
	return nil
}

func (p *pipeline) fetchInstruments(ctx context.Context) error {
	if p.cfg.Equity.PricesFile != "" {
		p.logger.InfoContext(ctx, "using local prices, instrument list not needed",
			slog.String("prices_file", p.cfg.Equity.PricesFile))
		return nil
	}

	instruments, err := equity.LoadInstruments(p.cfg.Equity.InstrumentsFile, p.cfg.Equity.InstrumentSheet, p.logger)
	if err != nil {
		return operations.NewValidationError("fetch-instruments", err.Error())
	}
	p.instruments = instruments
	return nil
}

func (p *pipeline) fetchPrices(ctx context.Context) error {
	start, end := p.cfg.Sample.StartDate(), p.cfg.Sample.EndDate()

	if p.cfg.Equity.PricesFile != "" {
		obs, err := equity.ReadPrices(p.cfg.Equity.PricesFile, p.logger)
		if err != nil {
			return operations.NewValidationError("fetch-prices", err.Error())
		}
		p.prices = inSample(obs, start, end)
		return nil
	}

	client, err := equity.NewClient(equity.ClientConfig{
		BaseURL: p.cfg.Equity.BaseURL,
		Token:   p.cfg.Equity.Token,
		RPS:     p.cfg.Equity.RPS,
		Burst:   p.cfg.Equity.Burst,
		Timeout: p.cfg.Equity.Timeout,
		Retry:   retryConfig(p.cfg.Retry),
	}, p.metrics, p.logger)
	if err != nil {
		return operations.NewFatalError("equity client", err)
	}

	obs, err := client.FetchRange(ctx, p.instruments, start, end, p.cfg.Equity.WindowDays, p.cfg.Equity.StrideDays)
	if err != nil {
		return err
	}
	p.prices = obs

	if p.paths != nil {
		if err := equity.WritePrices(p.paths.PriceCacheCSV, obs); err != nil {
			p.logger.WarnContext(ctx, "price cache not written", slog.String("error", err.Error()))
		} else {
			p.logger.InfoContext(ctx, "price cache written", slog.String("path", p.paths.PriceCacheCSV))
		}
	}
	return nil
}

func (p *pipeline) loadPolicy(ctx context.Context) error {
	ix, err := policy.NewLoader(policy.Config{
		Country:       p.cfg.Policy.Country,
		SubIndicators: p.cfg.Policy.SubIndicators,
		Files:         p.cfg.Policy.Files,
		Parallelism:   p.cfg.Policy.Parallelism,
	}, p.fetcher, p.logger).Load(ctx)
	if err != nil {
		return err
	}
	p.policy = ix
	return nil
}

func (p *pipeline) loadEpidemic(ctx context.Context) error {
	s, err := epidemic.NewLoader(epidemic.Config{
		Country:       p.cfg.Epidemic.Country,
		DeathsSource:  p.cfg.Epidemic.DeathsSource,
		CasesSource:   p.cfg.Epidemic.CasesSource,
		RollingWindow: p.cfg.Epidemic.RollingWindow,
	}, p.fetcher, p.logger).Load(ctx)
	if err != nil {
		return err
	}
	p.epidemic = s
	return nil
}

func (p *pipeline) computeReturns(ctx context.Context) error {
	prices, dropped := returns.Dedupe(p.prices)
	for _, o := range dropped {
		p.logger.WarnContext(ctx, "duplicate price observation replaced",
			slog.String("code", o.Code),
			slog.String("date", o.TradeDate.Format(domain.DateLayout)))
	}
	p.returns = returns.Calculate(prices, p.cfg.Sample.Reset())

	defined := 0
	for _, r := range p.returns {
		if r.Defined() {
			defined++
		}
	}
	p.logger.InfoContext(ctx, "returns computed",
		slog.Int("observations", len(p.prices)),
		slog.Int("duplicates", len(dropped)),
		slog.Int("returns", len(p.returns)),
		slog.Int("defined", defined))
	return nil
}

func (p *pipeline) aggregate(ctx context.Context) error {
	sections, skipped, err := crosssection.AggregateAll(p.returns)
	if err != nil {
		return operations.NewValidationError("aggregate", err.Error())
	}
	p.sections, p.skipped = sections, skipped

	p.logger.InfoContext(ctx, "cross sections aggregated",
		slog.Int("dates", len(sections)),
		slog.Int("skipped", len(skipped)))
	return nil
}

func (p *pipeline) assemble(ctx context.Context) error {
	a := assembler.New(p.policy, p.epidemic, assembler.Options{
		SubIndicators: p.cfg.Policy.SubIndicators,
		Strict:        p.cfg.Assembler.Strict,
		Logger:        p.logger,
	})

	ds, err := a.Assemble(ctx, assembler.Input{
		Returns:  p.returns,
		Sections: p.sections,
		Skipped:  p.skipped,
	})
	p.dataset = ds
	p.recordSkipped(ctx)
	return err
}

func (p *pipeline) export(ctx context.Context) error {
	w := exporter.NewWriter(p.paths, p.logger)

	out, err := w.Write(ctx, p.out, p.format, p.dataset)
	if err != nil {
		return operations.NewExecutionError("export", err, false)
	}
	p.written = out

	if p.paths != nil {
		if _, err := w.WriteCSV(p.paths.CrossSectionCSV, exporter.CrossSectionTable(p.sections), exporter.WriteOptions{}); err != nil {
			p.logger.WarnContext(ctx, "cross sections not written", slog.String("error", err.Error()))
		}
	}

	if p.metrics != nil {
		p.metrics.RowsWritten.Add(ctx, int64(len(p.dataset.Rows)))
	}
	return nil
}

func (p *pipeline) recordSkipped(ctx context.Context) {
	if p.metrics == nil {
		return
	}
	for reason, n := range skipCounts(p.dataset.Skipped) {
		p.metrics.SkippedDates.Add(ctx, int64(n),
			metric.WithAttributes(attribute.String("reason", string(reason))))
	}
}

// summary logs the run outcome
func (p *pipeline) summary(ctx context.Context) {
	counts := skipCounts(p.dataset.Skipped)
	reasons := make([]string, 0, len(counts))
	for r, n := range counts {
		reasons = append(reasons, fmt.Sprintf("%s=%d", r, n))
	}
	sort.Strings(reasons)

	attrs := []any{
		slog.String("output", p.written),
		slog.Int("rows", len(p.dataset.Rows)),
		slog.Int("skipped", len(p.dataset.Skipped)),
		slog.String("skipped_by_reason", strings.Join(reasons, ",")),
	}
	if len(p.dataset.Rows) > 0 {
		attrs = append(attrs,
			slog.String("first_date", p.dataset.FirstDate().Format(domain.DateLayout)),
			slog.String("last_date", p.dataset.LastDate().Format(domain.DateLayout)))
	}
	p.logger.InfoContext(ctx, "run summary", attrs...)
}

func skipCounts(skipped []domain.SkippedDate) map[domain.SkipReason]int {
	counts := make(map[domain.SkipReason]int)
	for _, s := range skipped {
		counts[s.Reason]++
	}
	return counts
}

// inSample keeps observations dated within [start, end]
func inSample(obs []domain.EquityObservation, start, end time.Time) []domain.EquityObservation {
	out := make([]domain.EquityObservation, 0, len(obs))
	for _, o := range obs {
		d := returns.Day(o.TradeDate)
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, o)
	}
	return out
}
