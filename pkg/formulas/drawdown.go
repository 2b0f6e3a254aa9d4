package formulas

// MaxDrawdown returns the largest peak-to-trough decline of a price series as
// a positive fraction (0.25 = 25% below the running peak).
//
//	Drawdown = (Peak - Price) / Peak
//
// The second result is false when fewer than two prices are given.
func MaxDrawdown(prices []float64) (float64, bool) {
	if len(prices) < 2 {
		return 0, false
	}

	maxDrawdown := 0.0
	peak := prices[0]
	for _, price := range prices {
		if price > peak {
			peak = price
		}
		if peak > 0 {
			if dd := (peak - price) / peak; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}
	return maxDrawdown, true
}
