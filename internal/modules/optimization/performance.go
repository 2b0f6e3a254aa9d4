package optimization

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/frontier/internal/utils"
)

// Objective names the optimization target behind an allocation.
type Objective string

const (
	ObjectiveMinVolatility Objective = "min_volatility"
	ObjectiveMaxSharpe     Objective = "max_sharpe"
	ObjectiveHRP           Objective = "hrp"
)

const (
	// DefaultWeightCutoff zeroes weights smaller than this in absolute value.
	DefaultWeightCutoff = 1e-4
	// DefaultWeightPlaces is the number of decimal places kept when cleaning weights.
	DefaultWeightPlaces = 5

	minReportedVolatility = 1e-12
)

// PortfolioPerformance is the annualized (return, volatility, Sharpe) triple of a weight vector.
type PortfolioPerformance struct {
	ExpectedReturn float64 `json:"expected_return" msgpack:"expected_return"`
	Volatility     float64 `json:"volatility" msgpack:"volatility"`
	Sharpe         float64 `json:"sharpe" msgpack:"sharpe"`
}

// Performance evaluates weights against the expected returns and covariance.
// Sharpe is reported as zero when volatility vanishes.
func Performance(w, mu []float64, cov mat.Symmetric, riskFreeRate float64) PortfolioPerformance {
	ret := floats.Dot(w, mu)
	vol := math.Sqrt(math.Max(quadForm(cov, w), 0))

	sharpe := 0.0
	if vol >= minReportedVolatility {
		sharpe = (ret - riskFreeRate) / vol
	}
	return PortfolioPerformance{ExpectedReturn: ret, Volatility: vol, Sharpe: sharpe}
}

// FrontierPoint is one portfolio in (volatility, return) space.
type FrontierPoint struct {
	Volatility float64   `json:"volatility" msgpack:"volatility"`
	Return     float64   `json:"return" msgpack:"return"`
	Sharpe     float64   `json:"sharpe" msgpack:"sharpe"`
	Weights    []float64 `json:"weights,omitempty" msgpack:"weights,omitempty"`
}

func newFrontierPoint(perf PortfolioPerformance, w []float64) FrontierPoint {
	return FrontierPoint{
		Volatility: perf.Volatility,
		Return:     perf.ExpectedReturn,
		Sharpe:     perf.Sharpe,
		Weights:    w,
	}
}

// Allocation is an optimized weight vector keyed by asset.
type Allocation struct {
	Objective   Objective                  `json:"objective" msgpack:"objective"`
	Weights     map[string]float64         `json:"weights" msgpack:"weights"`
	Cleaned     map[string]decimal.Decimal `json:"cleaned_weights" msgpack:"cleaned_weights"`
	Performance PortfolioPerformance       `json:"performance" msgpack:"performance"`
}

// NewAllocation keys w by asset, evaluates it and attaches the cleaned weights.
func NewAllocation(objective Objective, assets []string, w, mu []float64, cov mat.Symmetric, riskFreeRate float64) Allocation {
	weights := make(map[string]float64, len(assets))
	for i, a := range assets {
		weights[a] = w[i]
	}
	return Allocation{
		Objective:   objective,
		Weights:     weights,
		Cleaned:     CleanWeights(weights, DefaultWeightCutoff, DefaultWeightPlaces),
		Performance: Performance(w, mu, cov, riskFreeRate),
	}
}

// CleanWeights zeroes weights below cutoff in absolute value and rounds the
// rest to the given number of decimal places. The result is for display and
// need not sum exactly to one.
func CleanWeights(weights map[string]float64, cutoff float64, places int32) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(weights))
	for asset, w := range weights {
		if math.Abs(w) < cutoff {
			out[asset] = decimal.Zero
			continue
		}
		out[asset] = decimal.NewFromFloat(w).Round(places)
	}
	return out
}

// Analysis is the full result of one optimizer run.
type Analysis struct {
	ID           uuid.UUID `json:"id" msgpack:"id"`
	CreatedAt    time.Time `json:"created_at" msgpack:"created_at"`
	Assets       []string  `json:"assets" msgpack:"assets"`
	Observations int       `json:"observations" msgpack:"observations"`
	Start        time.Time `json:"start" msgpack:"start"`
	End          time.Time `json:"end" msgpack:"end"`

	RiskFreeRate    float64            `json:"risk_free_rate" msgpack:"risk_free_rate"`
	Estimator       EstimatorOptions   `json:"estimator" msgpack:"estimator"`
	Alignment       AlignmentReport    `json:"alignment" msgpack:"alignment"`
	ExpectedReturns map[string]float64 `json:"expected_returns" msgpack:"expected_returns"`
	Covariance      [][]float64        `json:"covariance" msgpack:"covariance"`

	MinVolatility Allocation        `json:"min_volatility" msgpack:"min_volatility"`
	MaxSharpe     Allocation        `json:"max_sharpe" msgpack:"max_sharpe"`
	HRP           Allocation        `json:"hrp" msgpack:"hrp"`
	FrontierLine  []FrontierPoint   `json:"frontier_line" msgpack:"frontier_line"`
	Samples       []FrontierPoint   `json:"samples" msgpack:"samples"`
	Correlations  []CorrelationPair `json:"correlations" msgpack:"correlations"`

	Timings []utils.StageTiming `json:"timings" msgpack:"timings"`
}
