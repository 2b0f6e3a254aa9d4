package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2023, time.January, d, 0, 0, 0, 0, time.UTC)
}

func TestPriceSeries_Validate(t *testing.T) {
	tests := []struct {
		name    string
		series  PriceSeries
		wantErr bool
	}{
		{
			name:   "valid",
			series: PriceSeries{Asset: "BTC", Points: []PricePoint{{day(1), 100}, {day(2), 101}}},
		},
		{
			name:    "empty asset",
			series:  PriceSeries{Points: []PricePoint{{day(1), 100}}},
			wantErr: true,
		},
		{
			name:    "zero price",
			series:  PriceSeries{Asset: "BTC", Points: []PricePoint{{day(1), 0}}},
			wantErr: true,
		},
		{
			name:    "NaN price",
			series:  PriceSeries{Asset: "BTC", Points: []PricePoint{{day(1), math.NaN()}}},
			wantErr: true,
		},
		{
			name:    "duplicate date",
			series:  PriceSeries{Asset: "BTC", Points: []PricePoint{{day(1), 100}, {day(1), 101}}},
			wantErr: true,
		},
		{
			name:    "decreasing dates",
			series:  PriceSeries{Asset: "BTC", Points: []PricePoint{{day(2), 100}, {day(1), 101}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.series.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSeries)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPriceTable_ColumnAndSeries(t *testing.T) {
	table := PriceTable{
		Dates:  []time.Time{day(1), day(2)},
		Assets: []string{"NYSE", "LSE"},
		Prices: [][]float64{{10, 20}, {11, 22}},
	}

	col, ok := table.Column("LSE")
	require.True(t, ok)
	assert.Equal(t, []float64{20, 22}, col)

	_, ok = table.Column("BTC")
	assert.False(t, ok)

	series := table.Series()
	require.Len(t, series, 2)
	assert.Equal(t, "NYSE", series[0].Asset)
	assert.Equal(t, []float64{10, 11}, series[0].Prices())
	assert.Equal(t, day(2), series[1].Points[1].Date)
	assert.Equal(t, 2, table.Len())
}
