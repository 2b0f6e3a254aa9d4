package optimization

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Linkage selects how the distance between two asset clusters is measured.
type Linkage string

const (
	LinkageSingle   Linkage = "single"
	LinkageComplete Linkage = "complete"
	LinkageAverage  Linkage = "average"
)

// ParseLinkage validates a linkage name. Empty means single linkage.
func ParseLinkage(s string) (Linkage, error) {
	switch l := Linkage(s); l {
	case LinkageSingle, LinkageComplete, LinkageAverage:
		return l, nil
	case "":
		return LinkageSingle, nil
	default:
		return "", fmt.Errorf("unknown linkage %q", s)
	}
}

// HRPOptimizer performs Hierarchical Risk Parity allocation. It needs no
// expected returns and no matrix inversion, so it is reported next to the
// mean-variance allocations as a benchmark. Weight bounds are not applied.
type HRPOptimizer struct {
	linkage Linkage
	log     zerolog.Logger
}

// NewHRPOptimizer creates a new HRP optimizer.
func NewHRPOptimizer(linkage Linkage, log zerolog.Logger) *HRPOptimizer {
	if linkage == "" {
		linkage = LinkageSingle
	}
	return &HRPOptimizer{
		linkage: linkage,
		log:     log.With().Str("component", "hrp_optimizer").Logger(),
	}
}

type hrpCluster struct {
	left    *hrpCluster
	right   *hrpCluster
	leaves  []int
	minLeaf int
}

// Optimize returns long-only weights summing to one:
//  1. distance d_ij = sqrt((1 - ρ_ij) / 2) from the correlation matrix
//  2. agglomerative clustering with a deterministic tie-break
//  3. quasi-diagonal leaf order from the dendrogram
//  4. recursive bisection, splitting weight by inverse cluster variance
func (hrp *HRPOptimizer) Optimize(cov *mat.SymDense) ([]float64, error) {
	n, err := checkCovariance(cov)
	if err != nil {
		return nil, err
	}
	if n == 1 {
		return []float64{1}, nil
	}

	dist := correlationDistance(cov)
	root := hrp.buildDendrogram(dist)
	order := quasiDiagonalOrder(root)
	if len(order) != n {
		return nil, fmt.Errorf("invalid HRP order length %d", len(order))
	}

	weights := ones(n)
	recursiveBisection(weights, cov, order)

	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("invalid HRP weight sum: %v", sum)
	}
	for i := range weights {
		weights[i] /= sum
	}

	hrp.log.Debug().
		Int("assets", n).
		Str("linkage", string(hrp.linkage)).
		Ints("order", order).
		Msg("HRP allocation computed")
	return weights, nil
}

// correlationDistance maps correlations to a metric in [0, 1].
// Assets with zero variance are treated as uncorrelated with the rest.
func correlationDistance(cov *mat.SymDense) [][]float64 {
	n := cov.SymmetricDim()
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			rho := 0.0
			if vi, vj := cov.At(i, i), cov.At(j, j); vi > 0 && vj > 0 {
				rho = math.Max(-1, math.Min(1, cov.At(i, j)/math.Sqrt(vi*vj)))
			}
			d := math.Sqrt((1 - rho) / 2)
			dist[i][j], dist[j][i] = d, d
		}
	}
	return dist
}

func (hrp *HRPOptimizer) buildDendrogram(dist [][]float64) *hrpCluster {
	n := len(dist)
	clusters := make([]*hrpCluster, 0, n)
	for i := 0; i < n; i++ {
		clusters = append(clusters, &hrpCluster{leaves: []int{i}, minLeaf: i})
	}

	for len(clusters) > 1 {
		bestI, bestJ := 0, 1
		bestD := hrp.clusterDistance(dist, clusters[0], clusters[1])

		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				d := hrp.clusterDistance(dist, clusters[i], clusters[j])
				if d < bestD || (d == bestD && clusterPairLess(clusters[i], clusters[j], clusters[bestI], clusters[bestJ])) {
					bestD, bestI, bestJ = d, i, j
				}
			}
		}

		left, right := clusters[bestI], clusters[bestJ]
		if right.minLeaf < left.minLeaf {
			left, right = right, left
		}
		leaves := make([]int, 0, len(left.leaves)+len(right.leaves))
		leaves = append(leaves, left.leaves...)
		leaves = append(leaves, right.leaves...)
		merged := &hrpCluster{left: left, right: right, leaves: leaves, minLeaf: left.minLeaf}

		next := make([]*hrpCluster, 0, len(clusters)-1)
		for k, c := range clusters {
			if k != bestI && k != bestJ {
				next = append(next, c)
			}
		}
		clusters = append(next, merged)
	}

	return clusters[0]
}

// clusterPairLess orders candidate merges by their smallest leaves.
func clusterPairLess(a1, b1, a2, b2 *hrpCluster) bool {
	x1, y1 := a1.minLeaf, b1.minLeaf
	if y1 < x1 {
		x1, y1 = y1, x1
	}
	x2, y2 := a2.minLeaf, b2.minLeaf
	if y2 < x2 {
		x2, y2 = y2, x2
	}
	if x1 != x2 {
		return x1 < x2
	}
	return y1 < y2
}

func (hrp *HRPOptimizer) clusterDistance(dist [][]float64, a, b *hrpCluster) float64 {
	switch hrp.linkage {
	case LinkageComplete:
		worst := 0.0
		for _, i := range a.leaves {
			for _, j := range b.leaves {
				worst = math.Max(worst, dist[i][j])
			}
		}
		return worst
	case LinkageAverage:
		sum := 0.0
		for _, i := range a.leaves {
			for _, j := range b.leaves {
				sum += dist[i][j]
			}
		}
		return sum / float64(len(a.leaves)*len(b.leaves))
	default:
		best := math.Inf(1)
		for _, i := range a.leaves {
			for _, j := range b.leaves {
				best = math.Min(best, dist[i][j])
			}
		}
		return best
	}
}

func quasiDiagonalOrder(node *hrpCluster) []int {
	if node == nil {
		return nil
	}
	if node.left == nil && node.right == nil {
		return []int{node.leaves[0]}
	}
	return append(quasiDiagonalOrder(node.left), quasiDiagonalOrder(node.right)...)
}

func recursiveBisection(weights []float64, cov *mat.SymDense, order []int) {
	if len(order) <= 1 {
		return
	}
	split := len(order) / 2
	left, right := order[:split], order[split:]

	vLeft := inverseVarianceClusterVariance(cov, left)
	vRight := inverseVarianceClusterVariance(cov, right)

	alpha := 0.5
	if vLeft+vRight > 0 {
		alpha = 1 - vLeft/(vLeft+vRight)
	}
	alpha = math.Max(0, math.Min(1, alpha))

	for _, idx := range left {
		weights[idx] *= alpha
	}
	for _, idx := range right {
		weights[idx] *= 1 - alpha
	}

	recursiveBisection(weights, cov, left)
	recursiveBisection(weights, cov, right)
}

// inverseVarianceClusterVariance is the variance of the inverse-variance
// portfolio of the cluster.
func inverseVarianceClusterVariance(cov *mat.SymDense, idxs []int) float64 {
	if len(idxs) == 1 {
		return math.Max(cov.At(idxs[0], idxs[0]), 0)
	}

	const eps = 1e-12
	w := make([]float64, len(idxs))
	sumInv := 0.0
	for k, i := range idxs {
		w[k] = 1 / math.Max(cov.At(i, i), eps)
		sumInv += w[k]
	}

	variance := 0.0
	for a, i := range idxs {
		for b, j := range idxs {
			variance += w[a] / sumInv * cov.At(i, j) * w[b] / sumInv
		}
	}
	return math.Max(variance, 0)
}
