package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aristath/frontier/internal/modules/optimization"
)

// writeAnalysis prints a human-readable summary of one analysis.
func writeAnalysis(out io.Writer, a *optimization.Analysis) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Assets:\t%s\n", strings.Join(a.Assets, ", "))
	fmt.Fprintf(w, "Period:\t%s to %s (%d dates)\n",
		a.Start.Format(time.DateOnly), a.End.Format(time.DateOnly), a.Observations)
	fmt.Fprintf(w, "Estimator:\t%s returns, %s covariance, %s alignment\n",
		a.Estimator.Annualization, a.Estimator.Covariance, a.Estimator.Alignment)
	if a.Alignment.DroppedDates > 0 || a.Alignment.FilledPoints > 0 {
		fmt.Fprintf(w, "Alignment:\t%d dates dropped, %d prices filled\n",
			a.Alignment.DroppedDates, a.Alignment.FilledPoints)
	}
	fmt.Fprintf(w, "Risk-free rate:\t%.2f%%\n\n", a.RiskFreeRate*100)

	fmt.Fprintln(w, "Expected annual returns")
	for _, asset := range a.Assets {
		fmt.Fprintf(w, "  %s\t%8.2f%%\n", asset, a.ExpectedReturns[asset]*100)
	}
	fmt.Fprintln(w)

	for _, alloc := range []struct {
		title string
		a     optimization.Allocation
	}{
		{"Minimum volatility", a.MinVolatility},
		{"Maximum Sharpe", a.MaxSharpe},
		{"Hierarchical risk parity", a.HRP},
	} {
		writeAllocation(w, alloc.title, a.Assets, alloc.a)
	}

	if len(a.Samples) > 0 {
		best := a.Samples[0]
		for _, p := range a.Samples[1:] {
			if p.Sharpe > best.Sharpe {
				best = p
			}
		}
		fmt.Fprintf(w, "Random portfolios:\t%d sampled, best Sharpe %.2f (return %.2f%%, volatility %.2f%%)\n",
			len(a.Samples), best.Sharpe, best.Return*100, best.Volatility*100)
	}
	if len(a.FrontierLine) > 0 {
		lo, hi := a.FrontierLine[0], a.FrontierLine[len(a.FrontierLine)-1]
		fmt.Fprintf(w, "Efficient frontier:\t%d points, volatility %.2f%% to %.2f%%\n",
			len(a.FrontierLine), lo.Volatility*100, hi.Volatility*100)
	}

	if len(a.Correlations) > 0 {
		fmt.Fprintln(w, "\nStrongest correlations")
		for i, p := range a.Correlations {
			if i == 10 {
				break
			}
			fmt.Fprintf(w, "  %s / %s\t%6.2f\n", p.Asset1, p.Asset2, p.Correlation)
		}
	}
	return w.Flush()
}

func writeAllocation(w io.Writer, title string, assets []string, alloc optimization.Allocation) {
	fmt.Fprintln(w, title)
	for _, asset := range assets {
		fmt.Fprintf(w, "  %s\t%s\n", asset, alloc.Cleaned[asset].StringFixed(optimization.DefaultWeightPlaces))
	}
	perf := alloc.Performance
	fmt.Fprintf(w, "  Expected annual return:\t%.1f%%\n", perf.ExpectedReturn*100)
	fmt.Fprintf(w, "  Annual volatility:\t%.1f%%\n", perf.Volatility*100)
	fmt.Fprintf(w, "  Sharpe ratio:\t%.2f\n\n", perf.Sharpe)
}

// writeStats prints per-asset descriptive statistics as a table.
func writeStats(out io.Writer, stats []optimization.AssetStats) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "asset\tobs\ttotal\tcagr\tvolatility\tmax drawdown\t")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%d\t%.2f%%\t%.2f%%\t%.2f%%\t%.2f%%\t\n",
			s.Asset, s.Observations, s.TotalReturn*100, s.GeometricReturn*100,
			s.Volatility*100, s.MaxDrawdown*100)
	}
	return w.Flush()
}
