package optimization

import "errors"

// Every error below is terminal for the analysis run that raised it: the
// inputs and the computation are deterministic, so retrying cannot help.
var (
	// ErrInsufficientData is returned when an asset has fewer than two
	// price observations and no covariance can be estimated.
	ErrInsufficientData = errors.New("insufficient price data")

	// ErrMisalignedSeries is returned when price series do not share a
	// date index and the alignment policy forbids reconciling them.
	ErrMisalignedSeries = errors.New("price series are not aligned")

	// ErrSingularCovariance is returned when the KKT system of the solver's
	// working face is singular. Collinear assets alone do not trigger it
	// while a binding bound keeps that system invertible.
	ErrSingularCovariance = errors.New("covariance matrix is singular")

	// ErrInfeasibleConstraints is returned when no weight vector can
	// satisfy the bounds and the full-investment constraint.
	ErrInfeasibleConstraints = errors.New("weight constraints are infeasible")

	// ErrDegenerateSharpe is returned when the Sharpe-optimal candidate
	// has (near) zero volatility.
	ErrDegenerateSharpe = errors.New("sharpe ratio is degenerate")

	// ErrNoExcessReturn is returned when no feasible portfolio earns more
	// than the risk-free rate.
	ErrNoExcessReturn = errors.New("no asset has an expected return above the risk-free rate")

	// ErrSolverTimeout is returned when the QP solver runs out of
	// iterations or time.
	ErrSolverTimeout = errors.New("solver did not finish in time")
)
