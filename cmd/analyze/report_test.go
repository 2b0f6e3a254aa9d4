package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/modules/optimization"
)

func TestWriteAnalysis(t *testing.T) {
	alloc := optimization.Allocation{
		Objective: optimization.ObjectiveMaxSharpe,
		Weights:   map[string]float64{"BTC": 0.25, "NYSE": 0.75},
		Cleaned: map[string]decimal.Decimal{
			"BTC":  decimal.RequireFromString("0.25"),
			"NYSE": decimal.RequireFromString("0.75"),
		},
		Performance: optimization.PortfolioPerformance{ExpectedReturn: 0.12, Volatility: 0.2, Sharpe: 0.5},
	}
	a := &optimization.Analysis{
		Assets:          []string{"BTC", "NYSE"},
		Observations:    250,
		Start:           time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		End:             time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC),
		RiskFreeRate:    0.02,
		Estimator:       optimization.DefaultEstimatorOptions(),
		ExpectedReturns: map[string]float64{"BTC": 0.4, "NYSE": 0.08},
		MinVolatility:   alloc,
		MaxSharpe:       alloc,
		HRP:             alloc,
		Samples: []optimization.FrontierPoint{
			{Volatility: 0.3, Return: 0.1, Sharpe: 0.27},
			{Volatility: 0.25, Return: 0.15, Sharpe: 0.52},
		},
		Correlations: []optimization.CorrelationPair{{Asset1: "BTC", Asset2: "NYSE", Correlation: 0.31}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeAnalysis(&buf, a))
	out := buf.String()

	assert.Contains(t, out, "BTC, NYSE")
	assert.Contains(t, out, "2023-01-02 to 2023-12-29 (250 dates)")
	assert.Contains(t, out, "Maximum Sharpe")
	assert.Contains(t, out, "0.75000")
	assert.Contains(t, out, "Sharpe ratio:")
	assert.Contains(t, out, "best Sharpe 0.52")
	assert.Contains(t, out, "BTC / NYSE")
	assert.NotContains(t, out, "Efficient frontier")
}

func TestWriteStats(t *testing.T) {
	stats := []optimization.AssetStats{
		{Asset: "BTC", Observations: 10, TotalReturn: 0.5, GeometricReturn: 1.2, Volatility: 0.6, MaxDrawdown: 0.2},
	}
	var buf bytes.Buffer
	require.NoError(t, writeStats(&buf, stats))
	assert.Contains(t, buf.String(), "max drawdown")
	assert.Contains(t, buf.String(), "50.00%")
	assert.Contains(t, buf.String(), "20.00%")
}
