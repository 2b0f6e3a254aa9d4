package optimization

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CovarianceMethod selects the covariance estimator.
type CovarianceMethod string

const (
	// CovarianceSample is the unbiased sample covariance.
	CovarianceSample CovarianceMethod = "sample"
	// CovarianceLedoitWolf shrinks the sample covariance toward a
	// constant-covariance target.
	CovarianceLedoitWolf CovarianceMethod = "ledoit_wolf"
)

// ParseCovarianceMethod validates a covariance method name.
func ParseCovarianceMethod(s string) (CovarianceMethod, error) {
	switch m := CovarianceMethod(s); m {
	case CovarianceSample, CovarianceLedoitWolf:
		return m, nil
	case "":
		return CovarianceSample, nil
	default:
		return "", fmt.Errorf("unknown covariance method %q", s)
	}
}

// estimateCovariance returns the annualized covariance of the return matrix.
func estimateCovariance(returns ReturnMatrix, method CovarianceMethod, periodsPerYear float64) (*mat.SymDense, error) {
	if returns.Periods() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 return observations, got %d",
			ErrInsufficientData, returns.Periods())
	}

	n := len(returns.Assets)
	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, returns.Values, nil)

	switch method {
	case CovarianceLedoitWolf:
		cov = shrinkLedoitWolf(cov)
	case CovarianceSample, "":
	default:
		return nil, fmt.Errorf("unknown covariance method %q", method)
	}

	cov.ScaleSym(periodsPerYear, cov)
	return cov, nil
}

// shrinkLedoitWolf blends the sample covariance with a target that keeps the
// average variance on the diagonal and the average covariance elsewhere.
// The intensity is a simplified Ledoit-Wolf estimate capped at 0.5.
func shrinkLedoitWolf(sample *mat.SymDense) *mat.SymDense {
	n := sample.SymmetricDim()
	if n < 2 {
		return sample
	}

	var avgVar, avgCov float64
	for i := 0; i < n; i++ {
		avgVar += sample.At(i, i)
		for j := 0; j < n; j++ {
			if i != j {
				avgCov += sample.At(i, j)
			}
		}
	}
	avgVar /= float64(n)
	avgCov /= float64(n * (n - 1))
	if avgVar <= 0 {
		avgCov = 0
	}

	target := func(i, j int) float64 {
		if i == j {
			return avgVar
		}
		return avgCov
	}

	shrinkage := 0.2
	if n > 2 && avgVar > 0 {
		var sumSqDiff, sum, sumSq float64
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				v := sample.At(i, j)
				d := v - target(i, j)
				sumSqDiff += d * d
				sum += v
				sumSq += v * v
			}
		}
		count := float64(n * n)
		meanSqDiff := sumSqDiff / count
		meanSample := sum / count
		varSample := sumSq/count - meanSample*meanSample

		if varSample > 0 && meanSqDiff > 0 {
			shrinkage = math.Min(0.5, math.Max(0.0, varSample/(varSample+meanSqDiff)))
		}
	}

	shrunk := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			shrunk.SetSym(i, j, (1-shrinkage)*sample.At(i, j)+shrinkage*target(i, j))
		}
	}
	return shrunk
}

// Correlation derives the correlation matrix from the covariance matrix.
// Assets with zero variance get zero correlation with everything else.
func (m *RiskModel) Correlation() *mat.SymDense {
	n := m.N()
	corr := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			vi, vj := m.Covariance.At(i, i), m.Covariance.At(j, j)
			switch {
			case i == j:
				corr.SetSym(i, j, 1)
			case vi > 0 && vj > 0:
				corr.SetSym(i, j, m.Covariance.At(i, j)/math.Sqrt(vi*vj))
			}
		}
	}
	return corr
}

// CorrelationPair is the correlation of two distinct assets.
type CorrelationPair struct {
	Asset1      string  `json:"asset1" msgpack:"asset1"`
	Asset2      string  `json:"asset2" msgpack:"asset2"`
	Correlation float64 `json:"correlation" msgpack:"correlation"`
}

// CorrelationPairs lists every unordered asset pair whose absolute return
// correlation is at least threshold, strongest first.
func (m *RiskModel) CorrelationPairs(threshold float64) []CorrelationPair {
	corr := m.Correlation()
	n := m.N()

	pairs := make([]CorrelationPair, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := corr.At(i, j)
			if math.Abs(c) >= threshold {
				pairs = append(pairs, CorrelationPair{
					Asset1:      m.Assets[i],
					Asset2:      m.Assets[j],
					Correlation: c,
				})
			}
		}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		ca, cb := math.Abs(pairs[a].Correlation), math.Abs(pairs[b].Correlation)
		if ca != cb {
			return ca > cb
		}
		if pairs[a].Asset1 != pairs[b].Asset1 {
			return pairs[a].Asset1 < pairs[b].Asset1
		}
		return pairs[a].Asset2 < pairs[b].Asset2
	})

	return pairs
}
