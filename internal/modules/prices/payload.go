package prices

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"slices"
	"time"

	"github.com/aristath/frontier/internal/domain"
)

// Payload is the JSON form of a price table:
//
//	{"dates": ["2024-01-02", ...], "assets": ["BTC", "NYSE"], "prices": {"BTC": [42000.5, null, ...]}}
//
// Null prices are missing observations. Assets is optional and fixes the
// column order; without it assets are ordered by name.
type Payload struct {
	Dates  []string              `json:"dates"`
	Assets []string              `json:"assets,omitempty"`
	Prices map[string][]*float64 `json:"prices"`
}

// DecodePayload reads one JSON payload and rejects unknown fields.
func DecodePayload(r io.Reader) (Payload, error) {
	var p Payload
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrMalformedTable, err)
	}
	return p, nil
}

// Series converts the payload into per-asset series. When columns is
// non-empty only those assets are returned, in that order.
func (p Payload) Series(columns []string) ([]domain.PriceSeries, LoadReport, error) {
	if len(p.Prices) == 0 {
		return nil, LoadReport{}, fmt.Errorf("%w: no prices given", ErrMalformedTable)
	}

	assets := columns
	if len(assets) == 0 {
		assets = p.Assets
	}
	if len(assets) == 0 {
		assets = make([]string, 0, len(p.Prices))
		for a := range p.Prices {
			assets = append(assets, a)
		}
		slices.Sort(assets)
	}

	dates := make([]time.Time, len(p.Dates))
	for i, s := range p.Dates {
		d, err := ParseDate(s)
		if err != nil {
			return nil, LoadReport{}, err
		}
		dates[i] = d
	}

	cols := make([][]float64, len(assets))
	for k, a := range assets {
		raw, ok := p.Prices[a]
		if !ok {
			return nil, LoadReport{}, fmt.Errorf("%w: no prices for asset %q", ErrMalformedTable, a)
		}
		col := make([]float64, len(raw))
		for i, v := range raw {
			if v == nil {
				col[i] = math.NaN()
			} else {
				col[i] = *v
			}
		}
		cols[k] = col
	}
	return FromColumns(dates, assets, cols)
}
