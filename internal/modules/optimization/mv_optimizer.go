package optimization

import (
	"context"
	"fmt"
	"math"

	"github.com/aristath/frontier/internal/domain"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// degenerateVariance is the portfolio variance below which a Sharpe ratio is undefined.
const degenerateVariance = 1e-14

// MVOptimizer performs mean-variance portfolio optimization over long-only
// box constraints with fully invested weights.
//
// Formulations:
//   - min_volatility: minimize w'Σw
//   - max_sharpe: maximize (μ'w - r_f) / sqrt(w'Σw)
//   - efficient_return: minimize w'Σw subject to μ'w ≥ target
//
// Constraints:
//   - Σw = 1
//   - lower_i ≤ w_i ≤ upper_i
type MVOptimizer struct {
	settings SolverSettings
	log      zerolog.Logger
}

// NewMVOptimizer creates a new mean-variance optimizer.
func NewMVOptimizer(settings SolverSettings, log zerolog.Logger) *MVOptimizer {
	return &MVOptimizer{
		settings: settings,
		log:      log.With().Str("component", "mv_optimizer").Logger(),
	}
}

// MinVolatility returns the fully invested weights with the lowest variance.
// A nil bounds slice means long-only for every asset.
func (mvo *MVOptimizer) MinVolatility(cov *mat.SymDense, bounds []domain.Bounds) ([]float64, error) {
	n, err := checkCovariance(cov)
	if err != nil {
		return nil, err
	}
	bounds, err = boundsOrDefault(n, bounds)
	if err != nil {
		return nil, err
	}
	if n == 1 {
		return []float64{1}, nil
	}

	g, h := boxRows(bounds)
	problem := qpProblem{
		Q: cov,
		A: [][]float64{ones(n)},
		B: []float64{1},
		G: g,
		H: h,
	}

	res, err := solveQP(problem, greedyFill(bounds, naturalOrder(n)), mvo.settings)
	if err != nil {
		return nil, fmt.Errorf("min volatility: %w", err)
	}

	w := res.X
	clampToBounds(w, bounds)
	mvo.log.Debug().
		Int("assets", n).
		Int("iterations", res.Iterations).
		Int("active_bounds", len(res.Working)).
		Msg("Min volatility solved")
	return w, nil
}

// MaxSharpe returns the fully invested weights with the highest Sharpe ratio.
//
// The ratio is not convex in w, so it is solved in homogenized variables
// y = κw with κ > 0: minimize y'Σy subject to (μ - r_f)'y = 1, Σy = κ and
// l_i κ ≤ y_i ≤ u_i κ. The weights are then y/κ.
func (mvo *MVOptimizer) MaxSharpe(mu []float64, cov *mat.SymDense, riskFreeRate float64, bounds []domain.Bounds) ([]float64, error) {
	n, err := checkCovariance(cov)
	if err != nil {
		return nil, err
	}
	if err := checkReturns(mu, n); err != nil {
		return nil, err
	}
	if math.IsNaN(riskFreeRate) || math.IsInf(riskFreeRate, 0) {
		return nil, fmt.Errorf("risk-free rate must be finite, got %v", riskFreeRate)
	}
	bounds, err = boundsOrDefault(n, bounds)
	if err != nil {
		return nil, err
	}

	excess := make([]float64, n)
	for i := range mu {
		excess[i] = mu[i] - riskFreeRate
	}

	// The only feasible portfolio is trivially the best one.
	if n == 1 {
		return []float64{1}, nil
	}

	vertex := maxScoreVertex(excess, bounds)
	best := floats.Dot(excess, vertex)
	if best <= 1e-12 {
		return nil, fmt.Errorf("%w: best achievable excess return is %.6f", ErrNoExcessReturn, best)
	}

	// Variables are (y_1..y_n, κ).
	size := n + 1
	q := mat.NewSymDense(size, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			q.SetSym(i, j, cov.At(i, j))
		}
	}

	returnRow := make([]float64, size)
	copy(returnRow, excess)
	budgetRow := ones(size)
	budgetRow[n] = -1

	var g [][]float64
	var h []float64
	for i, b := range bounds {
		lower := make([]float64, size)
		lower[i] = -1
		lower[n] = b.Lower
		g = append(g, lower)
		h = append(h, 0)

		if b.Upper < 1 {
			upper := make([]float64, size)
			upper[i] = 1
			upper[n] = -b.Upper
			g = append(g, upper)
			h = append(h, 0)
		}
	}
	kappaRow := make([]float64, size)
	kappaRow[n] = -1
	g = append(g, kappaRow)
	h = append(h, 0)

	kappa0 := 1 / best
	x0 := make([]float64, size)
	for i := range vertex {
		x0[i] = vertex[i] * kappa0
	}
	x0[n] = kappa0

	problem := qpProblem{
		Q: q,
		A: [][]float64{returnRow, budgetRow},
		B: []float64{1, 0},
		G: g,
		H: h,
	}
	res, err := solveQP(problem, x0, mvo.settings)
	if err != nil {
		return nil, fmt.Errorf("max sharpe: %w", err)
	}

	kappa := res.X[n]
	if kappa <= 0 {
		return nil, fmt.Errorf("%w: homogenization scale collapsed to %.3g", ErrDegenerateSharpe, kappa)
	}
	w := make([]float64, n)
	for i := range w {
		w[i] = res.X[i] / kappa
	}
	clampToBounds(w, bounds)
	floats.Scale(1/floats.Sum(w), w)

	if v := quadForm(cov, w); v <= degenerateVariance {
		return nil, fmt.Errorf("%w: optimal portfolio variance is %.3g", ErrDegenerateSharpe, v)
	}

	mvo.log.Debug().
		Int("assets", n).
		Int("iterations", res.Iterations).
		Float64("risk_free_rate", riskFreeRate).
		Msg("Max Sharpe solved")
	return w, nil
}

// EfficientReturn returns the minimum-variance weights whose expected return
// is at least target. Targets at or below the min-volatility return yield the
// min-volatility portfolio.
func (mvo *MVOptimizer) EfficientReturn(mu []float64, cov *mat.SymDense, target float64, bounds []domain.Bounds) ([]float64, error) {
	n, err := checkCovariance(cov)
	if err != nil {
		return nil, err
	}
	if err := checkReturns(mu, n); err != nil {
		return nil, err
	}
	bounds, err = boundsOrDefault(n, bounds)
	if err != nil {
		return nil, err
	}

	minVol, err := mvo.MinVolatility(cov, bounds)
	if err != nil {
		return nil, err
	}
	return mvo.efficientReturn(mu, cov, target, bounds, minVol, maxScoreVertex(mu, bounds))
}

func (mvo *MVOptimizer) efficientReturn(mu []float64, cov *mat.SymDense, target float64, bounds []domain.Bounds, minVol, maxRet []float64) ([]float64, error) {
	n := len(mu)
	rMin := floats.Dot(mu, minVol)
	rMax := floats.Dot(mu, maxRet)

	tol := 1e-9 * math.Max(1, math.Abs(rMax))
	if target > rMax+tol {
		return nil, fmt.Errorf("%w: target return %.6f exceeds maximum achievable %.6f",
			ErrInfeasibleConstraints, target, rMax)
	}
	if target <= rMin+tol || rMax-rMin <= tol {
		return append([]float64(nil), minVol...), nil
	}
	if target >= rMax-tol {
		return append([]float64(nil), maxRet...), nil
	}

	// The segment between the two endpoints crosses the target return.
	alpha := (rMax - target) / (rMax - rMin)
	x0 := make([]float64, n)
	for i := range x0 {
		x0[i] = alpha*minVol[i] + (1-alpha)*maxRet[i]
	}

	g, h := boxRows(bounds)
	problem := qpProblem{
		Q: cov,
		A: [][]float64{ones(n), mu},
		B: []float64{1, target},
		G: g,
		H: h,
	}
	res, err := solveQP(problem, x0, mvo.settings)
	if err != nil {
		return nil, fmt.Errorf("efficient return %.6f: %w", target, err)
	}
	clampToBounds(res.X, bounds)
	return res.X, nil
}

// FrontierLine traces the efficient frontier at evenly spaced target returns
// from the min-volatility return up to the maximum achievable return.
// ctx is checked before each target is solved.
func (mvo *MVOptimizer) FrontierLine(ctx context.Context, mu []float64, cov *mat.SymDense, riskFreeRate float64, bounds []domain.Bounds, points int) ([]FrontierPoint, error) {
	n, err := checkCovariance(cov)
	if err != nil {
		return nil, err
	}
	if err := checkReturns(mu, n); err != nil {
		return nil, err
	}
	if points < 1 {
		return nil, fmt.Errorf("frontier line needs at least one point, got %d", points)
	}
	bounds, err = boundsOrDefault(n, bounds)
	if err != nil {
		return nil, err
	}

	minVol, err := mvo.MinVolatility(cov, bounds)
	if err != nil {
		return nil, err
	}
	maxRet := maxScoreVertex(mu, bounds)
	rMin := floats.Dot(mu, minVol)
	rMax := floats.Dot(mu, maxRet)

	if points == 1 || rMax-rMin <= 1e-9*math.Max(1, math.Abs(rMax)) {
		perf := Performance(minVol, mu, cov, riskFreeRate)
		return []FrontierPoint{newFrontierPoint(perf, minVol)}, nil
	}

	targets := make([]float64, points)
	floats.Span(targets, rMin, rMax)

	line := make([]FrontierPoint, 0, points)
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w, err := mvo.efficientReturn(mu, cov, target, bounds, minVol, maxRet)
		if err != nil {
			return nil, err
		}
		line = append(line, newFrontierPoint(Performance(w, mu, cov, riskFreeRate), w))
	}
	return line, nil
}

func boundsOrDefault(n int, bounds []domain.Bounds) ([]domain.Bounds, error) {
	if bounds == nil {
		bounds = make([]domain.Bounds, n)
		for i := range bounds {
			bounds[i] = domain.LongOnly
		}
	}
	assets := make([]string, n)
	for i := range assets {
		assets[i] = fmt.Sprintf("#%d", i)
	}
	if err := ValidateBounds(assets, bounds); err != nil {
		return nil, err
	}
	return bounds, nil
}

func checkCovariance(cov *mat.SymDense) (int, error) {
	if cov == nil {
		return 0, fmt.Errorf("%w: no covariance matrix", ErrInsufficientData)
	}
	n := cov.SymmetricDim()
	if n == 0 {
		return 0, fmt.Errorf("%w: empty covariance matrix", ErrInsufficientData)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := cov.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("covariance entry (%d,%d) is not finite", i, j)
			}
		}
		if cov.At(i, i) < 0 {
			return 0, fmt.Errorf("covariance diagonal entry %d is negative", i)
		}
	}
	return n, nil
}

func checkReturns(mu []float64, n int) error {
	if len(mu) != n {
		return fmt.Errorf("expected returns size %d doesn't match covariance size %d", len(mu), n)
	}
	for i, v := range mu {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("expected return %d is not finite", i)
		}
	}
	return nil
}

// quadForm returns wᵀΣw.
func quadForm(cov mat.Symmetric, w []float64) float64 {
	v := mat.NewVecDense(len(w), w)
	return mat.Inner(v, cov, v)
}
