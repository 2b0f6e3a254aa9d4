// Package domain provides core domain models and types.
package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidSeries is returned when a price series breaks its invariants.
var ErrInvalidSeries = errors.New("invalid price series")

// PricePoint is one dated observation of an asset price.
type PricePoint struct {
	Date  time.Time `json:"date" msgpack:"date"`
	Price float64   `json:"price" msgpack:"price"`
}

// PriceSeries is the date-ordered price history of one asset.
// It is built once from a data source and never mutated afterwards.
type PriceSeries struct {
	Asset  string       `json:"asset" msgpack:"asset"`
	Points []PricePoint `json:"points" msgpack:"points"`
}

// Len returns the number of observations.
func (s PriceSeries) Len() int {
	return len(s.Points)
}

// Prices returns the price values in date order.
func (s PriceSeries) Prices() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Price
	}
	return out
}

// Validate checks that dates are strictly increasing and prices positive.
func (s PriceSeries) Validate() error {
	if s.Asset == "" {
		return fmt.Errorf("%w: empty asset name", ErrInvalidSeries)
	}
	for i, p := range s.Points {
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) || p.Price <= 0 {
			return fmt.Errorf("%w: %s has non-positive price %v on %s",
				ErrInvalidSeries, s.Asset, p.Price, p.Date.Format(time.DateOnly))
		}
		if i > 0 && !p.Date.After(s.Points[i-1].Date) {
			return fmt.Errorf("%w: %s dates not strictly increasing at %s",
				ErrInvalidSeries, s.Asset, p.Date.Format(time.DateOnly))
		}
	}
	return nil
}

// PriceTable is a set of price series sharing one date index.
// Prices[t][a] is the price of Assets[a] on Dates[t].
type PriceTable struct {
	Dates  []time.Time `json:"dates" msgpack:"dates"`
	Assets []string    `json:"assets" msgpack:"assets"`
	Prices [][]float64 `json:"prices" msgpack:"prices"`
}

// Len returns the number of dates in the table.
func (t PriceTable) Len() int {
	return len(t.Dates)
}

// Column returns the price path of one asset, or false if it is unknown.
func (t PriceTable) Column(asset string) ([]float64, bool) {
	idx := -1
	for i, a := range t.Assets {
		if a == asset {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}

	col := make([]float64, len(t.Prices))
	for i, row := range t.Prices {
		col[i] = row[idx]
	}
	return col, true
}

// Series splits the table back into one PriceSeries per asset.
func (t PriceTable) Series() []PriceSeries {
	out := make([]PriceSeries, len(t.Assets))
	for a, asset := range t.Assets {
		points := make([]PricePoint, len(t.Dates))
		for i, d := range t.Dates {
			points[i] = PricePoint{Date: d, Price: t.Prices[i][a]}
		}
		out[a] = PriceSeries{Asset: asset, Points: points}
	}
	return out
}

// Bounds is the allowed [Lower, Upper] weight range of one asset.
type Bounds struct {
	Lower float64 `json:"lower" msgpack:"lower"`
	Upper float64 `json:"upper" msgpack:"upper"`
}

// LongOnly is the default no-short, no-leverage bound.
var LongOnly = Bounds{Lower: 0, Upper: 1}
