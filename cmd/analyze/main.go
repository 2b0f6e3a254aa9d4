// Command analyze runs the efficient frontier analysis on a local price file
// and prints the result.
//
//	analyze -csv prices.csv -columns BTC,NYSE -rf 0.02 -bounds BTC=0:0.6
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/internal/modules/prices"
	"github.com/aristath/frontier/internal/utils"
	"github.com/aristath/frontier/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "analyze:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	defaults, err := cfg.Settings()
	if err != nil {
		return err
	}

	csvPath := flag.String("csv", "", "price table: a date column followed by one column per asset (required)")
	columns := flag.String("columns", "", "comma-separated asset columns to use (default all)")
	dateColumn := flag.String("date-column", "", "name of the date column (default first column)")
	rf := flag.Float64("rf", defaults.RiskFreeRate, "annual risk-free rate")
	samples := flag.Int("samples", defaults.Samples, "random portfolios to sample")
	seed := flag.Uint64("seed", defaults.Seed, "sampler seed")
	points := flag.Int("frontier-points", defaults.FrontierPoints, "points on the efficient frontier line (0 skips it)")
	bounds := flag.String("bounds", cfg.Bounds, "per-asset weight bounds, e.g. BTC=0:0.6,NYSE=0.1:1")
	periods := flag.Float64("periods", defaults.Estimator.PeriodsPerYear, "return periods per year")
	annualization := flag.String("annualization", string(defaults.Estimator.Annualization), "geometric or arithmetic")
	covariance := flag.String("covariance", string(defaults.Estimator.Covariance), "sample or ledoit_wolf")
	alignment := flag.String("alignment", string(defaults.Estimator.Alignment), "strict, intersect or ffill")
	threshold := flag.Float64("correlation-threshold", defaults.CorrelationThreshold, "only list correlation pairs at or above this absolute value")
	describe := flag.Bool("describe", false, "print per-asset statistics instead of optimizing")
	format := flag.String("format", "text", "output format: text or json")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		return fmt.Errorf("-csv is required")
	}
	if *format != "text" && *format != "json" {
		return fmt.Errorf("unknown format %q", *format)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})

	settings := defaults
	settings.RiskFreeRate = *rf
	settings.Samples = *samples
	settings.Seed = *seed
	settings.FrontierPoints = *points
	settings.CorrelationThreshold = *threshold
	settings.Estimator.PeriodsPerYear = *periods
	if settings.Estimator.Annualization, err = optimization.ParseAnnualization(*annualization); err != nil {
		return err
	}
	if settings.Estimator.Covariance, err = optimization.ParseCovarianceMethod(*covariance); err != nil {
		return err
	}
	if settings.Estimator.Alignment, err = optimization.ParseAlignmentPolicy(*alignment); err != nil {
		return err
	}
	settings.Bounds = nil
	if *bounds != "" {
		if settings.Bounds, err = optimization.ParseBounds(*bounds); err != nil {
			return err
		}
	}

	src := prices.NewCSVSource(log)
	src.Columns = utils.ParseList(*columns)
	src.DateColumn = *dateColumn
	series, report, err := src.LoadFile(*csvPath)
	if err != nil {
		return err
	}
	for asset, missing := range report.Missing {
		if missing > 0 {
			log.Warn().Str("asset", asset).Int("missing", missing).Msg("Skipped missing prices")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service := optimization.NewOptimizerService(cfg.Solver(), log)

	if *describe {
		stats, err := service.Describe(series, settings)
		if err != nil {
			return err
		}
		if *format == "json" {
			return writeJSON(stats)
		}
		return writeStats(os.Stdout, stats)
	}

	analysis, err := service.Analyze(ctx, series, settings)
	if err != nil {
		return err
	}
	if *format == "json" {
		return writeJSON(analysis)
	}
	return writeAnalysis(os.Stdout, analysis)
}

func writeJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
