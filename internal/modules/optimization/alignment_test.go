package optimization

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/domain"
)

// gappedSeries returns BTC with a price every day and NYSE missing days 0 and 2.
func gappedSeries() []domain.PriceSeries {
	btc := seriesFromPrices("BTC", []float64{100, 101, 102, 103, 104})
	nyse := domain.PriceSeries{Asset: "NYSE", Points: []domain.PricePoint{
		{Date: day(1), Price: 50},
		{Date: day(3), Price: 52},
		{Date: day(4), Price: 53},
	}}
	return []domain.PriceSeries{btc, nyse}
}

func TestParseAlignmentPolicy(t *testing.T) {
	p, err := ParseAlignmentPolicy("")
	require.NoError(t, err)
	assert.Equal(t, AlignIntersect, p)

	p, err = ParseAlignmentPolicy("ffill")
	require.NoError(t, err)
	assert.Equal(t, AlignForwardFill, p)

	_, err = ParseAlignmentPolicy("nearest")
	assert.Error(t, err)
}

func TestAlign_Strict(t *testing.T) {
	_, _, err := Align(gappedSeries(), AlignStrict)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMisalignedSeries))

	aligned := []domain.PriceSeries{
		seriesFromPrices("A", []float64{1, 2, 3}),
		seriesFromPrices("B", []float64{4, 5, 6}),
	}
	table, report, err := Align(aligned, AlignStrict)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"A", "B"}, table.Assets)
	assert.Equal(t, []float64{2, 5}, table.Prices[1])
	assert.Zero(t, report.DroppedDates)
}

func TestAlign_Intersect(t *testing.T) {
	table, report, err := Align(gappedSeries(), AlignIntersect)
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC", "NYSE"}, table.Assets)
	require.Equal(t, 3, table.Len())
	assert.Equal(t, day(1), table.Dates[0])
	assert.Equal(t, day(3), table.Dates[1])
	assert.Equal(t, []float64{103, 52}, table.Prices[1])
	assert.Equal(t, 5, report.UnionDates)
	assert.Equal(t, 3, report.CommonDates)
	assert.Equal(t, 2, report.DroppedDates)
}

func TestAlign_ForwardFill(t *testing.T) {
	table, report, err := Align(gappedSeries(), AlignForwardFill)
	require.NoError(t, err)

	require.Equal(t, 5, table.Len())
	col, ok := table.Column("NYSE")
	require.True(t, ok)
	// Day 0 is back-filled from day 1, day 2 forward-filled from day 1.
	assert.Equal(t, []float64{50, 50, 50, 52, 53}, col)
	assert.Equal(t, 2, report.FilledPoints)
}

func TestAlign_DuplicateAsset(t *testing.T) {
	s := seriesFromPrices("BTC", []float64{1, 2, 3})
	_, _, err := Align([]domain.PriceSeries{s, s}, AlignIntersect)
	assert.Error(t, err)
}

func TestAlign_Empty(t *testing.T) {
	_, _, err := Align(nil, AlignIntersect)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}
