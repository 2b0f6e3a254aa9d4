// Package formulas holds the small statistical building blocks shared by the
// estimator, the descriptive statistics and the HTTP handlers.
package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the default annualization factor for daily data.
const TradingDaysPerYear = 252.0

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation (n-1 denominator)
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance (n-1 denominator)
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// CalculateReturns converts prices to simple period-over-period returns.
// Returns[i] = Price[i+1]/Price[i] - 1
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = prices[i]/prices[i-1] - 1
		}
	}

	return returns
}

// AnnualizedVolatility scales the sample standard deviation of periodic
// returns by sqrt(periodsPerYear).
func AnnualizedVolatility(returns []float64, periodsPerYear float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return StdDev(returns) * math.Sqrt(periodsPerYear)
}

// GeometricAnnualReturn compounds periodic returns and annualizes them:
//
//	(Π(1+r_t))^(periodsPerYear/T) - 1
func GeometricAnnualReturn(returns []float64, periodsPerYear float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	cumulative := 1.0
	for _, r := range returns {
		cumulative *= 1 + r
	}
	if cumulative <= 0 {
		// Total wipe-out: the compounded rate is -100% regardless of horizon.
		return -1
	}

	return math.Pow(cumulative, periodsPerYear/float64(len(returns))) - 1
}

// ArithmeticAnnualReturn is mean(r) * periodsPerYear.
func ArithmeticAnnualReturn(returns []float64, periodsPerYear float64) float64 {
	return Mean(returns) * periodsPerYear
}

// TotalReturn is last/first - 1 over a price path.
func TotalReturn(prices []float64) float64 {
	if len(prices) < 2 || prices[0] == 0 {
		return 0
	}
	return prices[len(prices)-1]/prices[0] - 1
}

// Rebase rescales a price path so that its first value equals base.
func Rebase(prices []float64, base float64) []float64 {
	if len(prices) == 0 || prices[0] == 0 {
		return []float64{}
	}
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[i] = p / prices[0] * base
	}
	return out
}

// RollingVolatility returns the annualized rolling standard deviation of
// returns over the given window. TA-Lib's StdDev is a population estimate.
// The result has len(returns)-window+1 entries; the first one covers
// returns[0:window].
func RollingVolatility(returns []float64, window int, periodsPerYear float64) []float64 {
	if window < 2 || len(returns) < window {
		return []float64{}
	}

	raw := talib.StdDev(returns, window, 1.0)
	out := make([]float64, 0, len(raw)-window+1)
	scale := math.Sqrt(periodsPerYear)
	for _, v := range raw[window-1:] {
		out = append(out, v*scale)
	}
	return out
}

// Correlation calculates the Pearson correlation coefficient between two datasets
func Correlation(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}
