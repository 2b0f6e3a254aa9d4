package optimization

import (
	"context"
	"fmt"
	"iter"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distmv"
)

const (
	// DefaultSamples is the size of the random portfolio cloud.
	DefaultSamples = 1000

	// sampleChunk is the number of samples drawn from one seeded stream.
	// It is fixed so seeded output does not depend on the worker count.
	sampleChunk = 256
)

// Sample lazily draws k long-only, fully invested portfolios uniformly from
// the probability simplex (a flat Dirichlet) and evaluates each against the
// risk model.
func Sample(model *RiskModel, k int, riskFreeRate float64, src rand.Source) iter.Seq[FrontierPoint] {
	return func(yield func(FrontierPoint) bool) {
		n := model.N()
		if k <= 0 || n == 0 {
			return
		}
		dirichlet := distmv.NewDirichlet(ones(n), src)
		for i := 0; i < k; i++ {
			w := dirichlet.Rand(nil)
			perf := Performance(w, model.ExpectedReturns, model.Covariance, riskFreeRate)
			if !yield(newFrontierPoint(perf, w)) {
				return
			}
		}
	}
}

// SampleSeeded draws k portfolios deterministically from seed. Samples are
// split into fixed-size chunks and chunk c draws from PCG(seed, c), so the
// result is the same for any number of workers.
func SampleSeeded(ctx context.Context, model *RiskModel, k int, riskFreeRate float64, seed uint64, workers int) ([]FrontierPoint, error) {
	if k < 0 {
		return nil, fmt.Errorf("sample count must not be negative, got %d", k)
	}
	if workers < 1 {
		workers = 1
	}

	points := make([]FrontierPoint, k)
	chunks := (k + sampleChunk - 1) / sampleChunk

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c := 0; c < chunks; c++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := c * sampleChunk
			end := min(start+sampleChunk, k)

			i := start
			for p := range Sample(model, end-start, riskFreeRate, rand.NewPCG(seed, uint64(c))) {
				points[i] = p
				i++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("frontier sampling: %w", err)
	}
	return points, nil
}
