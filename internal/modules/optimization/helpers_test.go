package optimization

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/frontier/internal/domain"
)

func symCov(t *testing.T, rows [][]float64) *mat.SymDense {
	t.Helper()
	n := len(rows)
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		require.Len(t, rows[i], n)
		for j := i; j < n; j++ {
			cov.SetSym(i, j, rows[i][j])
		}
	}
	return cov
}

func day(i int) time.Time {
	return time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func seriesFromPrices(asset string, prices []float64) domain.PriceSeries {
	points := make([]domain.PricePoint, len(prices))
	for i, p := range prices {
		points[i] = domain.PricePoint{Date: day(i), Price: p}
	}
	return domain.PriceSeries{Asset: asset, Points: points}
}

// randomWalk builds a deterministic geometric random walk of n prices.
func randomWalk(n int, start, drift, vol float64, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, 0x5eed))
	prices := make([]float64, n)
	prices[0] = start
	for i := 1; i < n; i++ {
		prices[i] = prices[i-1] * math.Exp(drift+vol*rng.NormFloat64())
	}
	return prices
}

func sum(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s
}
