package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/SLBlundell/Economics-Dissertation/internal/config"
	"github.com/SLBlundell/Economics-Dissertation/internal/crosssection"
	"github.com/SLBlundell/Economics-Dissertation/internal/exporter"
	"github.com/SLBlundell/Economics-Dissertation/internal/infrastructure"
	"github.com/SLBlundell/Economics-Dissertation/internal/returns"
	"github.com/SLBlundell/Economics-Dissertation/internal/sources/equity"
	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts"
	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts/domain"
)

func main() {
	pricesPath := flag.String("prices", "", "local price CSV with code, trade_date and close columns")
	outPath := flag.String("out", "cross_sections.csv", "output CSV; bare names go to the reports directory")
	reset := flag.String("reset", "", "reset date (YYYY-MM-DD) whose returns are discarded")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString("crosssection"))
		return
	}

	logger := infrastructure.NewLogger(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})

	if *pricesPath == "" {
		logger.Error("Missing -prices flag")
		flag.Usage()
		os.Exit(2)
	}

	var resetDate time.Time
	if *reset != "" {
		d, err := time.Parse(domain.DateLayout, *reset)
		if err != nil {
			logger.Error("Invalid reset date", slog.String("reset", *reset), slog.String("error", err.Error()))
			os.Exit(2)
		}
		resetDate = d
	}

	var paths *config.Paths
	if p, err := config.GetPaths(config.Default().Paths); err == nil {
		paths = p
	}

	out, n, err := build(*pricesPath, *outPath, resetDate, paths, logger)
	if err != nil {
		logger.Error("Cross-section build failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Cross sections written", slog.String("path", out), slog.Int("dates", n))
}

// build reads prices, aggregates each trade date and writes the table.
// It returns the written path and the number of dates emitted.
func build(pricesPath, outPath string, resetDate time.Time, paths *config.Paths, logger *slog.Logger) (string, int, error) {
	obs, err := equity.ReadPrices(pricesPath, logger)
	if err != nil {
		return "", 0, err
	}

	obs, dropped := returns.Dedupe(obs)
	for _, o := range dropped {
		logger.Warn("duplicate price observation replaced",
			slog.String("code", o.Code),
			slog.String("date", o.TradeDate.Format(domain.DateLayout)))
	}
	rets := returns.Calculate(obs, resetDate)
	sections, skipped, err := crosssection.AggregateAll(rets)
	if err != nil {
		return "", 0, fmt.Errorf("aggregate: %w", err)
	}
	for _, s := range skipped {
		logger.Warn("trade date skipped",
			slog.String("date", s.Date.Format(domain.DateLayout)),
			slog.String("reason", string(s.Reason)),
			slog.Int("n", s.N))
	}

	out, err := exporter.NewWriter(paths, logger).WriteCSV(outPath, exporter.CrossSectionTable(sections), exporter.WriteOptions{})
	if err != nil {
		return "", 0, err
	}
	return out, len(sections), nil
}
