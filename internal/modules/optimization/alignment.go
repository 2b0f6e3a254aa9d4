package optimization

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/aristath/frontier/internal/domain"
)

// AlignmentPolicy decides how price series with different date indexes are
// reconciled before returns are computed.
type AlignmentPolicy string

const (
	// AlignStrict rejects any date mismatch with ErrMisalignedSeries.
	AlignStrict AlignmentPolicy = "strict"
	// AlignIntersect keeps only the dates present in every series.
	AlignIntersect AlignmentPolicy = "intersect"
	// AlignForwardFill uses the union of dates and fills gaps from the
	// previous observation (leading gaps from the next one).
	AlignForwardFill AlignmentPolicy = "ffill"
)

// ParseAlignmentPolicy validates a policy name.
func ParseAlignmentPolicy(s string) (AlignmentPolicy, error) {
	switch p := AlignmentPolicy(s); p {
	case AlignStrict, AlignIntersect, AlignForwardFill:
		return p, nil
	case "":
		return AlignIntersect, nil
	default:
		return "", fmt.Errorf("unknown alignment policy %q", s)
	}
}

// AlignmentReport describes what alignment did to the input.
type AlignmentReport struct {
	Policy       AlignmentPolicy `json:"policy" msgpack:"policy"`
	UnionDates   int             `json:"union_dates" msgpack:"union_dates"`
	CommonDates  int             `json:"common_dates" msgpack:"common_dates"`
	DroppedDates int             `json:"dropped_dates" msgpack:"dropped_dates"`
	FilledPoints int             `json:"filled_points" msgpack:"filled_points"`
}

// Align builds a shared-date PriceTable from per-asset series.
// Asset order is preserved.
func Align(series []domain.PriceSeries, policy AlignmentPolicy) (domain.PriceTable, AlignmentReport, error) {
	report := AlignmentReport{Policy: policy}
	if len(series) == 0 {
		return domain.PriceTable{}, report, fmt.Errorf("%w: no assets provided", ErrInsufficientData)
	}

	seen := make(map[string]bool, len(series))
	assets := make([]string, len(series))
	lookup := make([]map[int64]float64, len(series))
	counts := make(map[int64]int)
	dateOf := make(map[int64]time.Time)

	for a, s := range series {
		if seen[s.Asset] {
			return domain.PriceTable{}, report, fmt.Errorf("duplicate asset %q", s.Asset)
		}
		seen[s.Asset] = true
		assets[a] = s.Asset

		lookup[a] = make(map[int64]float64, len(s.Points))
		for _, p := range s.Points {
			key := p.Date.UnixNano()
			lookup[a][key] = p.Price
			counts[key]++
			dateOf[key] = p.Date
		}
	}

	union := make([]int64, 0, len(counts))
	common := make([]int64, 0, len(counts))
	for key, c := range counts {
		union = append(union, key)
		if c == len(series) {
			common = append(common, key)
		}
	}
	slices.Sort(union)
	slices.Sort(common)

	report.UnionDates = len(union)
	report.CommonDates = len(common)

	var keys []int64
	switch policy {
	case AlignStrict:
		if len(common) != len(union) {
			for a, s := range series {
				if len(s.Points) != len(union) {
					return domain.PriceTable{}, report, fmt.Errorf("%w: %s has %d of %d dates",
						ErrMisalignedSeries, assets[a], len(s.Points), len(union))
				}
			}
			return domain.PriceTable{}, report, ErrMisalignedSeries
		}
		keys = common
	case AlignIntersect, "":
		report.Policy = AlignIntersect
		report.DroppedDates = len(union) - len(common)
		keys = common
	case AlignForwardFill:
		keys = union
	default:
		return domain.PriceTable{}, report, fmt.Errorf("unknown alignment policy %q", policy)
	}

	table := domain.PriceTable{
		Dates:  make([]time.Time, len(keys)),
		Assets: assets,
		Prices: make([][]float64, len(keys)),
	}
	for i, key := range keys {
		table.Dates[i] = dateOf[key]
		row := make([]float64, len(series))
		for a := range series {
			price, ok := lookup[a][key]
			if !ok {
				price = math.NaN()
			}
			row[a] = price
		}
		table.Prices[i] = row
	}

	if policy == AlignForwardFill {
		report.FilledPoints = fillMissing(table.Prices)
	}

	return table, report, nil
}

// fillMissing forward-fills NaN prices per column, then back-fills leading
// gaps. It returns the number of filled cells.
func fillMissing(rows [][]float64) int {
	if len(rows) == 0 {
		return 0
	}

	filled := 0
	for a := range rows[0] {
		lastValid := math.NaN()
		for i := range rows {
			if math.IsNaN(rows[i][a]) {
				if !math.IsNaN(lastValid) {
					rows[i][a] = lastValid
					filled++
				}
			} else {
				lastValid = rows[i][a]
			}
		}

		nextValid := math.NaN()
		for i := len(rows) - 1; i >= 0; i-- {
			if math.IsNaN(rows[i][a]) {
				if !math.IsNaN(nextValid) {
					rows[i][a] = nextValid
					filled++
				}
			} else {
				nextValid = rows[i][a]
			}
		}
	}
	return filled
}
