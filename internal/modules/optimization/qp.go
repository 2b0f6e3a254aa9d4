package optimization

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SolverSettings bounds the work the QP solver may do.
type SolverSettings struct {
	MaxIterations int           // 0 picks a limit from the problem size
	Timeout       time.Duration // 0 disables the wall-clock limit
}

// qpProblem is: minimize xᵀQx + cᵀx subject to A x = b and G x ≤ h.
type qpProblem struct {
	Q *mat.SymDense
	C []float64
	A [][]float64
	B []float64
	G [][]float64
	H []float64
}

type qpResult struct {
	X          []float64
	Iterations int
	Working    []int // indices of G rows active at the solution
}

const (
	qpFeasTol = 1e-10
	qpStepTol = 1e-11
	qpDirTol  = 1e-13
	qpMultTol = 1e-10
)

// solveQP runs a primal active-set method from the feasible point x0.
// Each iteration solves the equality-constrained sub-problem on the current
// working set through its KKT system, then either steps to the first
// blocking inequality or drops the working constraint with the most
// negative multiplier.
func solveQP(p qpProblem, x0 []float64, settings SolverSettings) (qpResult, error) {
	n := len(x0)
	meq := len(p.A)
	maxIter := settings.MaxIterations
	if maxIter <= 0 {
		maxIter = 100 + 50*(n+len(p.G))
	}
	var deadline time.Time
	if settings.Timeout > 0 {
		deadline = time.Now().Add(settings.Timeout)
	}

	x := make([]float64, n)
	copy(x, x0)

	inWorking := make([]bool, len(p.G))
	working := make([]int, 0, n)
	for i := range p.G {
		if math.Abs(floats.Dot(p.G[i], x)-p.H[i]) > qpFeasTol*math.Max(1, math.Abs(p.H[i])) {
			continue
		}
		candidate := append(stackRows(p.A, p.G, working), p.G[i])
		if fullRowRank(candidate) {
			working = append(working, i)
			inWorking[i] = true
		}
	}

	grad := make([]float64, n)
	for iter := 1; iter <= maxIter; iter++ {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return qpResult{}, fmt.Errorf("%w: timeout after %d iterations", ErrSolverTimeout, iter-1)
		}

		objectiveGradient(grad, p.Q, p.C, x)
		step, mult, err := solveKKT(p.Q, stackRows(p.A, p.G, working), grad)
		if err != nil {
			return qpResult{}, err
		}

		if floats.Norm(step, math.Inf(1)) <= qpStepTol*math.Max(1, floats.Norm(x, math.Inf(1))) {
			// Stationary on the working face: check inequality multipliers.
			tol := qpMultTol * math.Max(1, floats.Norm(grad, math.Inf(1)))
			drop, worst := -1, -tol
			for k := range working {
				if m := mult[meq+k]; m < worst {
					drop, worst = k, m
				}
			}
			if drop < 0 {
				return qpResult{X: x, Iterations: iter, Working: append([]int(nil), working...)}, nil
			}
			inWorking[working[drop]] = false
			working = append(working[:drop], working[drop+1:]...)
			continue
		}

		alpha, blocking := 1.0, -1
		for i, row := range p.G {
			if inWorking[i] {
				continue
			}
			gp := floats.Dot(row, step)
			if gp <= qpDirTol {
				continue
			}
			if s := (p.H[i] - floats.Dot(row, x)) / gp; s < alpha {
				alpha, blocking = s, i
			}
		}
		alpha = math.Max(alpha, 0)
		floats.AddScaled(x, alpha, step)

		if blocking >= 0 {
			working = append(working, blocking)
			inWorking[blocking] = true
		}
	}

	return qpResult{}, fmt.Errorf("%w: no convergence after %d iterations", ErrSolverTimeout, maxIter)
}

// objectiveGradient writes 2Qx + c into dst.
func objectiveGradient(dst []float64, q *mat.SymDense, c []float64, x []float64) {
	g := mat.NewVecDense(len(dst), dst)
	g.MulVec(q, mat.NewVecDense(len(x), x))
	g.ScaleVec(2, g)
	if c != nil {
		floats.Add(dst, c)
	}
}

// solveKKT solves
//
//	[2Q  Cᵀ] [p]   [-g]
//	[C   0 ] [m] = [ 0]
//
// and returns the step p and the multipliers m of the constraint rows C.
func solveKKT(q *mat.SymDense, rows [][]float64, grad []float64) ([]float64, []float64, error) {
	n := len(grad)
	m := len(rows)
	size := n + m

	kkt := mat.NewDense(size, size, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			kkt.Set(i, j, 2*q.At(i, j))
		}
	}
	for k, row := range rows {
		for j := 0; j < n; j++ {
			kkt.Set(n+k, j, row[j])
			kkt.Set(j, n+k, row[j])
		}
	}

	rhs := mat.NewVecDense(size, nil)
	for i := 0; i < n; i++ {
		rhs.SetVec(i, -grad[i])
	}

	var sol mat.VecDense
	if err := sol.SolveVec(kkt, rhs); err != nil {
		return nil, nil, fmt.Errorf("%w: KKT system is not solvable (%v)", ErrSingularCovariance, err)
	}

	raw := sol.RawVector().Data
	step := make([]float64, n)
	copy(step, raw[:n])
	mult := make([]float64, m)
	copy(mult, raw[n:])
	return step, mult, nil
}

// stackRows returns the equality rows followed by the selected inequality rows.
func stackRows(eq, ineq [][]float64, idx []int) [][]float64 {
	out := make([][]float64, 0, len(eq)+len(idx)+1)
	out = append(out, eq...)
	for _, i := range idx {
		out = append(out, ineq[i])
	}
	return out
}

// fullRowRank reports whether the rows are linearly independent.
func fullRowRank(rows [][]float64) bool {
	r := len(rows)
	if r == 0 {
		return true
	}
	c := len(rows[0])
	if r > c {
		return false
	}

	m := mat.NewDense(r, c, nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}

	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDNone) {
		return false
	}
	values := svd.Values(nil)
	tol := values[0] * 1e-10 * float64(c)
	return values[len(values)-1] > tol
}
