package optimization

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/pkg/formulas"
)

// Annualization selects how mean periodic returns become annual returns.
type Annualization string

const (
	// AnnualizeGeometric compounds: (Π(1+r))^(P/T) - 1.
	AnnualizeGeometric Annualization = "geometric"
	// AnnualizeArithmetic scales: mean(r) * P.
	AnnualizeArithmetic Annualization = "arithmetic"
)

// ParseAnnualization validates an annualization name.
func ParseAnnualization(s string) (Annualization, error) {
	switch a := Annualization(s); a {
	case AnnualizeGeometric, AnnualizeArithmetic:
		return a, nil
	case "":
		return AnnualizeGeometric, nil
	default:
		return "", fmt.Errorf("unknown annualization %q", s)
	}
}

// EstimatorOptions configures the return/risk estimator.
type EstimatorOptions struct {
	PeriodsPerYear float64          `json:"periods_per_year" msgpack:"periods_per_year"`
	Annualization  Annualization    `json:"annualization" msgpack:"annualization"`
	Covariance     CovarianceMethod `json:"covariance" msgpack:"covariance"`
	Alignment      AlignmentPolicy  `json:"alignment" msgpack:"alignment"`
}

// DefaultEstimatorOptions matches daily trading data.
func DefaultEstimatorOptions() EstimatorOptions {
	return EstimatorOptions{
		PeriodsPerYear: formulas.TradingDaysPerYear,
		Annualization:  AnnualizeGeometric,
		Covariance:     CovarianceSample,
		Alignment:      AlignIntersect,
	}
}

// ReturnMatrix holds simple periodic returns, one row per period and one
// column per asset: Values[t][a] = price[t+1][a]/price[t][a] - 1.
type ReturnMatrix struct {
	Assets []string
	Dates  []time.Time // date closing each period
	Values *mat.Dense
}

// NewReturnMatrix computes period-over-period returns from an aligned table.
func NewReturnMatrix(table domain.PriceTable) (ReturnMatrix, error) {
	n := len(table.Assets)
	if n == 0 {
		return ReturnMatrix{}, fmt.Errorf("%w: no assets provided", ErrInsufficientData)
	}
	if table.Len() < 3 {
		// Two prices give one return, and a sample covariance needs two.
		return ReturnMatrix{}, fmt.Errorf("%w: need at least 3 aligned prices, got %d",
			ErrInsufficientData, table.Len())
	}

	periods := table.Len() - 1
	values := mat.NewDense(periods, n, nil)
	for t := 1; t < table.Len(); t++ {
		prev, cur := table.Prices[t-1], table.Prices[t]
		if len(prev) != n || len(cur) != n {
			return ReturnMatrix{}, fmt.Errorf("%w: row %d has %d prices for %d assets",
				ErrMisalignedSeries, t, len(cur), n)
		}
		for a := 0; a < n; a++ {
			if !(prev[a] > 0) || math.IsNaN(cur[a]) || math.IsInf(cur[a], 0) {
				return ReturnMatrix{}, fmt.Errorf("%w: %s has no usable price around %s",
					ErrInsufficientData, table.Assets[a], table.Dates[t].Format(time.DateOnly))
			}
			values.Set(t-1, a, cur[a]/prev[a]-1)
		}
	}

	return ReturnMatrix{
		Assets: table.Assets,
		Dates:  table.Dates[1:],
		Values: values,
	}, nil
}

// Periods returns the number of return observations.
func (rm ReturnMatrix) Periods() int {
	r, _ := rm.Values.Dims()
	return r
}

// Column returns a copy of one asset's return series.
func (rm ReturnMatrix) Column(a int) []float64 {
	return mat.Col(nil, a, rm.Values)
}

// RiskModel is the estimator output: μ and Σ plus the data they came from.
type RiskModel struct {
	Assets          []string
	ExpectedReturns []float64
	Covariance      *mat.SymDense
	Returns         ReturnMatrix
	Table           domain.PriceTable
	Alignment       AlignmentReport
	Options         EstimatorOptions
}

// N returns the number of assets.
func (m *RiskModel) N() int {
	return len(m.Assets)
}

// Observations returns the number of aligned price dates.
func (m *RiskModel) Observations() int {
	return m.Table.Len()
}

// CovarianceRows copies Σ into a row-major slice for serialization.
func (m *RiskModel) CovarianceRows() [][]float64 {
	n := m.N()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			rows[i][j] = m.Covariance.At(i, j)
		}
	}
	return rows
}

// Estimator turns price histories into expected returns and covariance.
type Estimator struct {
	opts EstimatorOptions
	log  zerolog.Logger
}

// NewEstimator creates a new estimator. Zero-valued options fall back to
// the defaults.
func NewEstimator(opts EstimatorOptions, log zerolog.Logger) *Estimator {
	def := DefaultEstimatorOptions()
	if opts.PeriodsPerYear <= 0 {
		opts.PeriodsPerYear = def.PeriodsPerYear
	}
	if opts.Annualization == "" {
		opts.Annualization = def.Annualization
	}
	if opts.Covariance == "" {
		opts.Covariance = def.Covariance
	}
	if opts.Alignment == "" {
		opts.Alignment = def.Alignment
	}
	return &Estimator{
		opts: opts,
		log:  log.With().Str("component", "estimator").Logger(),
	}
}

// Options returns the effective options.
func (e *Estimator) Options() EstimatorOptions {
	return e.opts
}

// Estimate validates and aligns the series, then estimates μ and Σ.
func (e *Estimator) Estimate(series []domain.PriceSeries) (*RiskModel, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no assets provided", ErrInsufficientData)
	}

	for _, s := range series {
		if s.Len() < 2 {
			return nil, fmt.Errorf("%w: %s has %d price observations (need at least 2)",
				ErrInsufficientData, s.Asset, s.Len())
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}

	table, report, err := Align(series, e.opts.Alignment)
	if err != nil {
		return nil, err
	}

	if report.DroppedDates > 0 {
		e.log.Warn().
			Int("dropped_dates", report.DroppedDates).
			Int("common_dates", report.CommonDates).
			Msg("Dropped dates not shared by every asset")
	}
	if report.FilledPoints > 0 {
		e.log.Warn().
			Int("filled_points", report.FilledPoints).
			Msg("Filled missing price data")
	}

	model, err := e.EstimateTable(table)
	if err != nil {
		return nil, err
	}
	model.Alignment = report
	return model, nil
}

// EstimateTable estimates μ and Σ from an already aligned table.
func (e *Estimator) EstimateTable(table domain.PriceTable) (*RiskModel, error) {
	returns, err := NewReturnMatrix(table)
	if err != nil {
		return nil, err
	}

	n := len(table.Assets)
	mu := make([]float64, n)
	for a := 0; a < n; a++ {
		col := returns.Column(a)
		switch e.opts.Annualization {
		case AnnualizeArithmetic:
			mu[a] = formulas.ArithmeticAnnualReturn(col, e.opts.PeriodsPerYear)
		default:
			mu[a] = formulas.GeometricAnnualReturn(col, e.opts.PeriodsPerYear)
		}
	}

	cov, err := estimateCovariance(returns, e.opts.Covariance, e.opts.PeriodsPerYear)
	if err != nil {
		return nil, err
	}

	e.log.Debug().
		Int("assets", n).
		Int("periods", returns.Periods()).
		Str("annualization", string(e.opts.Annualization)).
		Str("covariance", string(e.opts.Covariance)).
		Msg("Estimated risk model")

	return &RiskModel{
		Assets:          table.Assets,
		ExpectedReturns: mu,
		Covariance:      cov,
		Returns:         returns,
		Table:           table,
		Alignment:       AlignmentReport{Policy: e.opts.Alignment, UnionDates: table.Len(), CommonDates: table.Len()},
		Options:         e.opts,
	}, nil
}
