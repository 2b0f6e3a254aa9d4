package optimization

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/aristath/frontier/internal/domain"
)

// boundsTolerance absorbs rounding when checking that bounds admit a fully invested portfolio.
const boundsTolerance = 1e-9

// ResolveBounds returns one bound per asset, in asset order.
// Assets missing from overrides are long-only ([0, 1]).
func ResolveBounds(assets []string, overrides map[string]domain.Bounds) ([]domain.Bounds, error) {
	known := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		known[a] = struct{}{}
	}
	for a := range overrides {
		if _, ok := known[a]; !ok {
			return nil, fmt.Errorf("bounds given for unknown asset %q", a)
		}
	}

	out := make([]domain.Bounds, len(assets))
	for i, a := range assets {
		if b, ok := overrides[a]; ok {
			out[i] = b
		} else {
			out[i] = domain.LongOnly
		}
	}
	return out, ValidateBounds(assets, out)
}

// ParseBounds reads per-asset bounds written as "BTC=0:0.6,NYSE=0.1:1".
// Either side of the colon may be empty to keep the long-only default.
func ParseBounds(s string) (map[string]domain.Bounds, error) {
	out := make(map[string]domain.Bounds)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		asset, rng, ok := strings.Cut(item, "=")
		asset = strings.TrimSpace(asset)
		if !ok || asset == "" {
			return nil, fmt.Errorf("invalid bounds %q: want ASSET=LOWER:UPPER", item)
		}
		lo, hi, ok := strings.Cut(rng, ":")
		if !ok {
			return nil, fmt.Errorf("invalid bounds %q: want ASSET=LOWER:UPPER", item)
		}

		b := domain.LongOnly
		var err error
		if lo = strings.TrimSpace(lo); lo != "" {
			if b.Lower, err = strconv.ParseFloat(lo, 64); err != nil {
				return nil, fmt.Errorf("invalid lower bound for %s: %w", asset, err)
			}
		}
		if hi = strings.TrimSpace(hi); hi != "" {
			if b.Upper, err = strconv.ParseFloat(hi, 64); err != nil {
				return nil, fmt.Errorf("invalid upper bound for %s: %w", asset, err)
			}
		}
		if _, dup := out[asset]; dup {
			return nil, fmt.Errorf("bounds for %s given twice", asset)
		}
		out[asset] = b
	}
	return out, nil
}

// ValidateBounds checks that every bound is a well-formed long-only interval
// and that together they admit weights summing to one.
func ValidateBounds(assets []string, bounds []domain.Bounds) error {
	if len(bounds) != len(assets) {
		return fmt.Errorf("got %d bounds for %d assets", len(bounds), len(assets))
	}

	totalMin, totalMax := 0.0, 0.0
	for i, b := range bounds {
		if math.IsNaN(b.Lower) || math.IsNaN(b.Upper) || math.IsInf(b.Lower, 0) {
			return fmt.Errorf("%w: asset %s has non-numeric bounds", ErrInfeasibleConstraints, assets[i])
		}
		if b.Lower < 0 {
			return fmt.Errorf("%w: asset %s has negative lower bound %.4f (short positions are not supported)",
				ErrInfeasibleConstraints, assets[i], b.Lower)
		}
		if b.Lower > b.Upper {
			return fmt.Errorf("%w: asset %s has invalid bounds: lower=%.4f > upper=%.4f",
				ErrInfeasibleConstraints, assets[i], b.Lower, b.Upper)
		}
		totalMin += b.Lower
		totalMax += math.Min(b.Upper, 1)
	}

	if totalMin > 1+boundsTolerance {
		return fmt.Errorf("%w: total minimum weights %.2f%% exceed 100%%", ErrInfeasibleConstraints, totalMin*100)
	}
	if totalMax < 1-boundsTolerance {
		return fmt.Errorf("%w: total maximum weights %.2f%% are below 100%%", ErrInfeasibleConstraints, totalMax*100)
	}
	return nil
}

// greedyFill starts every asset at its lower bound and spends the remaining
// budget on assets in the given order, each up to its upper bound.
// The result is a vertex of {Σw = 1, l ≤ w ≤ u}.
func greedyFill(bounds []domain.Bounds, order []int) []float64 {
	w := make([]float64, len(bounds))
	remaining := 1.0
	for i, b := range bounds {
		w[i] = b.Lower
		remaining -= b.Lower
	}
	for _, i := range order {
		if remaining <= 0 {
			break
		}
		add := math.Min(math.Min(bounds[i].Upper, 1)-bounds[i].Lower, remaining)
		w[i] += add
		remaining -= add
	}
	return w
}

func naturalOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// descendingOrder ranks assets by score, highest first. Ties keep asset order.
func descendingOrder(score []float64) []int {
	order := naturalOrder(len(score))
	sort.SliceStable(order, func(a, b int) bool {
		return score[order[a]] > score[order[b]]
	})
	return order
}

// maxScoreVertex maximizes scoreᵀw over the constraint set. Filling the
// budget in descending score order is optimal for a linear objective.
func maxScoreVertex(score []float64, bounds []domain.Bounds) []float64 {
	return greedyFill(bounds, descendingOrder(score))
}

// boxRows returns the rows of G w ≤ h for the weight bounds. Upper bounds at
// or above one are implied by Σw = 1 with non-negative weights and are skipped.
func boxRows(bounds []domain.Bounds) ([][]float64, []float64) {
	n := len(bounds)
	var g [][]float64
	var h []float64
	for i, b := range bounds {
		lower := make([]float64, n)
		lower[i] = -1
		g = append(g, lower)
		h = append(h, -b.Lower)

		if b.Upper < 1 {
			upper := make([]float64, n)
			upper[i] = 1
			g = append(g, upper)
			h = append(h, b.Upper)
		}
	}
	return g, h
}

// clampToBounds removes solver round-off that leaves weights marginally outside their bounds.
func clampToBounds(w []float64, bounds []domain.Bounds) {
	for i, b := range bounds {
		w[i] = math.Max(b.Lower, math.Min(math.Min(b.Upper, 1), w[i]))
	}
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}
