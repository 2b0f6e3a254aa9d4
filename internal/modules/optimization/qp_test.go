package optimization

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSolveQP_EqualityOnly(t *testing.T) {
	// minimize x1² + x2² subject to x1 + x2 = 1
	p := qpProblem{
		Q: mat.NewSymDense(2, []float64{1, 0, 0, 1}),
		A: [][]float64{{1, 1}},
		B: []float64{1},
	}

	res, err := solveQP(p, []float64{1, 0}, SolverSettings{})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.X[0], 1e-12)
	assert.InDelta(t, 0.5, res.X[1], 1e-12)
	assert.Empty(t, res.Working)
}

func TestSolveQP_BindingUpperBound(t *testing.T) {
	// minimize x1² + x2² - 4x1 subject to x1 + x2 = 1, x ≥ 0, x1 ≤ 0.8.
	// Without the cap the optimum would be x1 = 1.
	p := qpProblem{
		Q: mat.NewSymDense(2, []float64{1, 0, 0, 1}),
		C: []float64{-4, 0},
		A: [][]float64{{1, 1}},
		B: []float64{1},
		G: [][]float64{{-1, 0}, {0, -1}, {1, 0}},
		H: []float64{0, 0, 0.8},
	}

	res, err := solveQP(p, []float64{0.5, 0.5}, SolverSettings{})
	require.NoError(t, err)
	assert.InDelta(t, 0.8, res.X[0], 1e-12)
	assert.InDelta(t, 0.2, res.X[1], 1e-12)
	assert.Contains(t, res.Working, 2)
}

func TestSolveQP_DropsConstraintWithNegativeMultiplier(t *testing.T) {
	// Start on the vertex x = (1, 0) where x2 ≥ 0 is active but not optimal.
	p := qpProblem{
		Q: mat.NewSymDense(2, []float64{1, 0, 0, 1}),
		A: [][]float64{{1, 1}},
		B: []float64{1},
		G: [][]float64{{-1, 0}, {0, -1}},
		H: []float64{0, 0},
	}

	res, err := solveQP(p, []float64{1, 0}, SolverSettings{})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.X[0], 1e-12)
	assert.InDelta(t, 0.5, res.X[1], 1e-12)
	assert.Empty(t, res.Working)
}

func TestSolveQP_IterationLimit(t *testing.T) {
	p := qpProblem{
		Q: mat.NewSymDense(2, []float64{1, 0, 0, 1}),
		A: [][]float64{{1, 1}},
		B: []float64{1},
	}

	_, err := solveQP(p, []float64{1, 0}, SolverSettings{MaxIterations: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSolverTimeout))
}

func TestSolveQP_SingularKKT(t *testing.T) {
	// Two identical assets: every split has the same variance.
	p := qpProblem{
		Q: mat.NewSymDense(2, []float64{1, 1, 1, 1}),
		A: [][]float64{{1, 1}},
		B: []float64{1},
	}

	_, err := solveQP(p, []float64{1, 0}, SolverSettings{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSingularCovariance))
}

func TestFullRowRank(t *testing.T) {
	assert.True(t, fullRowRank(nil))
	assert.True(t, fullRowRank([][]float64{{1, 1, 0}, {0, 1, 0}}))
	assert.False(t, fullRowRank([][]float64{{1, 1}, {2, 2}}))
	assert.False(t, fullRowRank([][]float64{{1, 0}, {0, 1}, {1, 1}}))
}
