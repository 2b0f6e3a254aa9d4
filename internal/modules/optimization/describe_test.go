package optimization

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/domain"
)

func TestDescribe(t *testing.T) {
	series := []domain.PriceSeries{
		seriesFromPrices("BTC", randomWalk(40, 100, 0.002, 0.0125, 1)),
		seriesFromPrices("NYSE", []float64{100, 110, 99, 108.9, 98.01}),
	}

	stats, err := Describe(series, DescribeOptions{PeriodsPerYear: 4, RollingWindow: 3, IncludeRebased: true})
	require.NoError(t, err)
	require.Len(t, stats, 2)

	btc, nyse := stats[0], stats[1]
	assert.Equal(t, "BTC", btc.Asset)
	assert.Equal(t, 40, btc.Observations)
	require.NotNil(t, btc.RollingVolatility)
	assert.Greater(t, *btc.RollingVolatility, 0.0)

	assert.Equal(t, "NYSE", nyse.Asset)
	assert.Equal(t, day(0), nyse.Start)
	assert.Equal(t, day(4), nyse.End)
	assert.InDelta(t, -0.0199, nyse.TotalReturn, 1e-12)
	assert.InDelta(t, -0.0199, nyse.GeometricReturn, 1e-12)
	assert.InDelta(t, 0.0, nyse.ArithmeticReturn, 1e-12)
	assert.InDelta(t, (110-98.01)/110, nyse.MaxDrawdown, 1e-12)
	assert.Equal(t, 3, nyse.RollingWindow)
	require.Len(t, nyse.Rebased, 5)
	assert.InDelta(t, RebaseLevel, nyse.Rebased[0], 1e-12)
	assert.InDelta(t, 110.0, nyse.Rebased[1], 1e-12)
}

func TestDescribe_ShortHistoryHasNoRollingVolatility(t *testing.T) {
	stats, err := Describe([]domain.PriceSeries{seriesFromPrices("A", []float64{1, 2, 3})}, DescribeOptions{})
	require.NoError(t, err)
	assert.Nil(t, stats[0].RollingVolatility)
	assert.Equal(t, DefaultRollingWindow, stats[0].RollingWindow)
	assert.Nil(t, stats[0].Rebased)
}

func TestDescribe_Errors(t *testing.T) {
	_, err := Describe(nil, DescribeOptions{})
	assert.True(t, errors.Is(err, ErrInsufficientData))

	_, err = Describe([]domain.PriceSeries{seriesFromPrices("A", []float64{1})}, DescribeOptions{})
	assert.True(t, errors.Is(err, ErrInsufficientData))
}
