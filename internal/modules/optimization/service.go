package optimization

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/utils"
)

// Defaults for an analysis run.
const (
	DefaultRiskFreeRate   = 0.02
	DefaultSeed           = 42
	DefaultWorkers        = 4
	DefaultFrontierPoints = 50

	// Request-level caps on the work one analysis may ask for.
	DefaultMaxSamples        = 100000
	DefaultMaxFrontierPoints = 1000
)

// Settings configures one analysis run.
type Settings struct {
	Estimator            EstimatorOptions
	RiskFreeRate         float64
	Bounds               map[string]domain.Bounds // per-asset overrides; others are long-only
	Samples              int
	Seed                 uint64
	Workers              int
	FrontierPoints       int // 0 skips the efficient frontier line
	CorrelationThreshold float64
	Linkage              Linkage
	IncludeSampleWeights bool
	RollingWindow        int
	IncludeRebased       bool
}

// DefaultSettings returns the settings used when nothing is overridden.
func DefaultSettings() Settings {
	return Settings{
		Estimator:      DefaultEstimatorOptions(),
		RiskFreeRate:   DefaultRiskFreeRate,
		Samples:        DefaultSamples,
		Seed:           DefaultSeed,
		Workers:        DefaultWorkers,
		FrontierPoints: DefaultFrontierPoints,
		RollingWindow:  DefaultRollingWindow,
	}
}

// OptimizerService orchestrates the complete analysis: estimation, both
// optimized allocations, the efficient frontier line and the sampled cloud.
type OptimizerService struct {
	mvOptimizer *MVOptimizer
	log         zerolog.Logger
}

// NewOptimizerService creates a new optimizer service.
func NewOptimizerService(solver SolverSettings, log zerolog.Logger) *OptimizerService {
	return &OptimizerService{
		mvOptimizer: NewMVOptimizer(solver, log),
		log:         log.With().Str("component", "optimizer_service").Logger(),
	}
}

// Analyze runs every stage over the given price histories. The first failing
// stage aborts the run and its error is returned wrapped with the stage name.
func (os *OptimizerService) Analyze(ctx context.Context, series []domain.PriceSeries, settings Settings) (*Analysis, error) {
	os.log.Info().
		Int("num_assets", len(series)).
		Float64("risk_free_rate", settings.RiskFreeRate).
		Int("samples", settings.Samples).
		Msg("Starting portfolio analysis")

	if settings.Samples < 0 {
		return nil, fmt.Errorf("sample count must not be negative, got %d", settings.Samples)
	}
	sw := utils.NewStopwatch(os.log)

	// 1. Expected returns and covariance
	stop := sw.Start("estimate")
	model, err := NewEstimator(settings.Estimator, os.log).Estimate(series)
	stop()
	if err != nil {
		return nil, fmt.Errorf("estimate: %w", err)
	}
	bounds, err := ResolveBounds(model.Assets, settings.Bounds)
	if err != nil {
		return nil, fmt.Errorf("bounds: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mu, cov := model.ExpectedReturns, model.Covariance

	// 2. Minimum volatility
	stop = sw.Start("min_volatility")
	minVol, err := os.mvOptimizer.MinVolatility(cov, bounds)
	stop()
	if err != nil {
		return nil, fmt.Errorf("min volatility: %w", err)
	}

	// 3. Maximum Sharpe
	stop = sw.Start("max_sharpe")
	maxSharpe, err := os.mvOptimizer.MaxSharpe(mu, cov, settings.RiskFreeRate, bounds)
	stop()
	if err != nil {
		return nil, fmt.Errorf("max sharpe: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 4. Hierarchical risk parity benchmark
	stop = sw.Start("hrp")
	hrp, err := NewHRPOptimizer(settings.Linkage, os.log).Optimize(cov)
	stop()
	if err != nil {
		return nil, fmt.Errorf("hrp: %w", err)
	}

	// 5. Efficient frontier line
	var line []FrontierPoint
	if settings.FrontierPoints > 0 {
		stop = sw.Start("frontier_line")
		line, err = os.mvOptimizer.FrontierLine(ctx, mu, cov, settings.RiskFreeRate, bounds, settings.FrontierPoints)
		stop()
		if err != nil {
			return nil, fmt.Errorf("frontier line: %w", err)
		}
	}

	// 6. Random portfolio cloud
	stop = sw.Start("sample")
	samples, err := SampleSeeded(ctx, model, settings.Samples, settings.RiskFreeRate, settings.Seed, settings.Workers)
	stop()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !settings.IncludeSampleWeights {
		for i := range samples {
			samples[i].Weights = nil
		}
	}

	expected := make(map[string]float64, model.N())
	for i, a := range model.Assets {
		expected[a] = mu[i]
	}

	analysis := &Analysis{
		ID:              uuid.New(),
		CreatedAt:       time.Now().UTC(),
		Assets:          model.Assets,
		Observations:    model.Observations(),
		Start:           model.Table.Dates[0],
		End:             model.Table.Dates[model.Table.Len()-1],
		RiskFreeRate:    settings.RiskFreeRate,
		Estimator:       model.Options,
		Alignment:       model.Alignment,
		ExpectedReturns: expected,
		Covariance:      model.CovarianceRows(),
		MinVolatility:   NewAllocation(ObjectiveMinVolatility, model.Assets, minVol, mu, cov, settings.RiskFreeRate),
		MaxSharpe:       NewAllocation(ObjectiveMaxSharpe, model.Assets, maxSharpe, mu, cov, settings.RiskFreeRate),
		HRP:             NewAllocation(ObjectiveHRP, model.Assets, hrp, mu, cov, settings.RiskFreeRate),
		FrontierLine:    line,
		Samples:         samples,
		Correlations:    model.CorrelationPairs(settings.CorrelationThreshold),
	}
	analysis.Timings = sw.Timings()

	os.log.Info().
		Str("analysis_id", analysis.ID.String()).
		Int("num_assets", model.N()).
		Int("observations", analysis.Observations).
		Float64("min_vol_volatility", analysis.MinVolatility.Performance.Volatility).
		Float64("max_sharpe_ratio", analysis.MaxSharpe.Performance.Sharpe).
		Msg("Portfolio analysis complete")

	return analysis, nil
}

// Describe computes per-asset descriptive statistics.
func (os *OptimizerService) Describe(series []domain.PriceSeries, settings Settings) ([]AssetStats, error) {
	timer := utils.NewTimer("describe", os.log)
	defer timer.Stop()

	stats, err := Describe(series, DescribeOptions{
		PeriodsPerYear: settings.Estimator.PeriodsPerYear,
		RollingWindow:  settings.RollingWindow,
		IncludeRebased: settings.IncludeRebased,
	})
	if err != nil {
		return nil, fmt.Errorf("describe: %w", err)
	}
	return stats, nil
}
