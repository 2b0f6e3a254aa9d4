package optimization

import (
	"fmt"
	"time"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/pkg/formulas"
)

// DefaultRollingWindow is the rolling volatility window, about one trading month.
const DefaultRollingWindow = 21

// RebaseLevel is the value every rebased price path starts at.
const RebaseLevel = 100.0

// DescribeOptions configures per-asset descriptive statistics.
type DescribeOptions struct {
	PeriodsPerYear float64
	RollingWindow  int
	IncludeRebased bool
}

// AssetStats summarizes one asset's own price history.
type AssetStats struct {
	Asset        string    `json:"asset" msgpack:"asset"`
	Observations int       `json:"observations" msgpack:"observations"`
	Start        time.Time `json:"start" msgpack:"start"`
	End          time.Time `json:"end" msgpack:"end"`
	FirstPrice   float64   `json:"first_price" msgpack:"first_price"`
	LastPrice    float64   `json:"last_price" msgpack:"last_price"`

	TotalReturn      float64 `json:"total_return" msgpack:"total_return"`
	GeometricReturn  float64 `json:"geometric_return" msgpack:"geometric_return"`
	ArithmeticReturn float64 `json:"arithmetic_return" msgpack:"arithmetic_return"`
	PeriodMean       float64 `json:"period_mean" msgpack:"period_mean"`
	PeriodStdDev     float64 `json:"period_std_dev" msgpack:"period_std_dev"`
	Volatility       float64 `json:"volatility" msgpack:"volatility"`
	MaxDrawdown      float64 `json:"max_drawdown" msgpack:"max_drawdown"`

	// RollingVolatility is the latest annualized volatility over the last
	// RollingWindow returns; nil when the history is shorter than the window.
	RollingVolatility *float64  `json:"rolling_volatility,omitempty" msgpack:"rolling_volatility,omitempty"`
	RollingWindow     int       `json:"rolling_window" msgpack:"rolling_window"`
	Rebased           []float64 `json:"rebased,omitempty" msgpack:"rebased,omitempty"`
}

// Describe computes descriptive statistics for every series independently,
// in input order. No alignment is applied.
func Describe(series []domain.PriceSeries, opts DescribeOptions) ([]AssetStats, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no assets provided", ErrInsufficientData)
	}
	if opts.PeriodsPerYear <= 0 {
		opts.PeriodsPerYear = formulas.TradingDaysPerYear
	}
	if opts.RollingWindow <= 0 {
		opts.RollingWindow = DefaultRollingWindow
	}

	out := make([]AssetStats, 0, len(series))
	for _, s := range series {
		if s.Len() < 2 {
			return nil, fmt.Errorf("%w: %s has %d price observations (need at least 2)",
				ErrInsufficientData, s.Asset, s.Len())
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		out = append(out, describeSeries(s, opts))
	}
	return out, nil
}

func describeSeries(s domain.PriceSeries, opts DescribeOptions) AssetStats {
	prices := s.Prices()
	returns := formulas.CalculateReturns(prices)
	drawdown, _ := formulas.MaxDrawdown(prices)

	st := AssetStats{
		Asset:            s.Asset,
		Observations:     len(prices),
		Start:            s.Points[0].Date,
		End:              s.Points[len(s.Points)-1].Date,
		FirstPrice:       prices[0],
		LastPrice:        prices[len(prices)-1],
		TotalReturn:      formulas.TotalReturn(prices),
		GeometricReturn:  formulas.GeometricAnnualReturn(returns, opts.PeriodsPerYear),
		ArithmeticReturn: formulas.ArithmeticAnnualReturn(returns, opts.PeriodsPerYear),
		PeriodMean:       formulas.Mean(returns),
		PeriodStdDev:     formulas.StdDev(returns),
		Volatility:       formulas.AnnualizedVolatility(returns, opts.PeriodsPerYear),
		MaxDrawdown:      drawdown,
		RollingWindow:    opts.RollingWindow,
	}

	if rolling := formulas.RollingVolatility(returns, opts.RollingWindow, opts.PeriodsPerYear); len(rolling) > 0 {
		latest := rolling[len(rolling)-1]
		st.RollingVolatility = &latest
	}
	if opts.IncludeRebased {
		st.Rebased = formulas.Rebase(prices, RebaseLevel)
	}
	return st
}
