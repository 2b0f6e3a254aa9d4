package optimization

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformance(t *testing.T) {
	cov := symCov(t, [][]float64{
		{0.04, 0},
		{0, 0.09},
	})

	perf := Performance([]float64{0.5, 0.5}, []float64{0.10, 0.20}, cov, 0.02)

	vol := math.Sqrt(0.25*0.04 + 0.25*0.09)
	assert.InDelta(t, 0.15, perf.ExpectedReturn, 1e-12)
	assert.InDelta(t, vol, perf.Volatility, 1e-12)
	assert.InDelta(t, (0.15-0.02)/vol, perf.Sharpe, 1e-12)
}

func TestPerformance_ZeroVolatility(t *testing.T) {
	cov := symCov(t, [][]float64{
		{0.04, -0.04},
		{-0.04, 0.04},
	})

	perf := Performance([]float64{0.5, 0.5}, []float64{0.10, 0.10}, cov, 0.02)
	assert.Zero(t, perf.Volatility)
	assert.Zero(t, perf.Sharpe)
}

func TestCleanWeights(t *testing.T) {
	cleaned := CleanWeights(map[string]float64{
		"BTC":  0.123456789,
		"NYSE": 0.87654316,
		"GLD":  0.00004,
	}, DefaultWeightCutoff, DefaultWeightPlaces)

	assert.True(t, cleaned["BTC"].Equal(decimal.RequireFromString("0.12346")))
	assert.True(t, cleaned["NYSE"].Equal(decimal.RequireFromString("0.87654")))
	assert.True(t, cleaned["GLD"].IsZero())
}

func TestNewAllocation(t *testing.T) {
	cov := symCov(t, [][]float64{
		{0.04, 0},
		{0, 0.09},
	})

	alloc := NewAllocation(ObjectiveMinVolatility, []string{"BTC", "NYSE"}, []float64{0.7, 0.3}, []float64{0.1, 0.05}, cov, 0)

	assert.Equal(t, ObjectiveMinVolatility, alloc.Objective)
	assert.Equal(t, map[string]float64{"BTC": 0.7, "NYSE": 0.3}, alloc.Weights)
	require.Contains(t, alloc.Cleaned, "BTC")
	assert.True(t, alloc.Cleaned["BTC"].Equal(decimal.RequireFromString("0.7")))
	assert.InDelta(t, 0.085, alloc.Performance.ExpectedReturn, 1e-12)
}
