// Package bench runs an optimizer over many seeds and summarizes the final
// scores.
package bench

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/egwo/internal/opt"
	"github.com/cwbudde/egwo/internal/problem"
)

// Factory builds the optimizer used for one seed.
type Factory func(seed int64) (opt.Optimizer, error)

// Summary describes the distribution of best scores over independent runs.
type Summary struct {
	Problem                  string    `json:"problem"`
	Algo                     string    `json:"algo"`
	Iters                    int       `json:"iters"`
	Runs                     int       `json:"runs"`
	Mean                     float64   `json:"mean"`
	StdDev                   float64   `json:"stdDev"`
	Median                   float64   `json:"median"`
	Min                      float64   `json:"min"`
	Max                      float64   `json:"max"`
	Feasible                 int       `json:"feasible"` // runs that ended below problem.Penalty
	MeanConvergenceIteration float64   `json:"meanConvergenceIteration"`
	Scores                   []float64 `json:"scores"` // in seed order
}

// Seeds returns n consecutive seeds starting at base.
func Seeds(base int64, n int) []int64 {
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = base + int64(i)
	}
	return seeds
}

// Run optimizes p once per seed using up to parallel concurrent runs
// (parallel < 1 means one at a time) and summarizes the outcome. The first
// failing run cancels the rest.
func Run(ctx context.Context, p problem.Problem, factory Factory, seeds []int64, parallel int) (*Summary, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("at least one seed is required")
	}
	if parallel < 1 {
		parallel = 1
	}
	lower, upper := p.Bounds()

	scores := make([]float64, len(seeds))
	convIters := make([]float64, len(seeds))

	optimizers := make([]opt.Optimizer, len(seeds))
	for i, seed := range seeds {
		o, err := factory(seed)
		if err != nil {
			return nil, fmt.Errorf("failed to create optimizer for seed %d: %w", seed, err)
		}
		optimizers[i] = o
	}

	wp := pool.New().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(parallel)
	for i, seed := range seeds {
		i, seed := i, seed
		wp.Go(func(ctx context.Context) error {
			res, err := optimizers[i].Run(ctx, p.Eval, lower, upper)
			if err != nil {
				return fmt.Errorf("run with seed %d failed: %w", seed, err)
			}
			scores[i] = res.BestScore
			convIters[i] = float64(res.ConvergenceIteration)
			return nil
		})
	}
	if err := wp.Wait(); err != nil {
		return nil, err
	}

	s := summarize(scores)
	s.Problem = p.Name()
	s.Algo = optimizers[0].Name()
	s.MeanConvergenceIteration = stat.Mean(convIters, nil)

	slog.Info("Benchmark complete",
		"problem", s.Problem,
		"algo", s.Algo,
		"runs", s.Runs,
		"mean", s.Mean,
		"std_dev", s.StdDev,
		"min", s.Min,
	)
	return s, nil
}

// Compare runs the same seeds at each iteration count and returns one
// summary per count, in the order given.
func Compare(ctx context.Context, p problem.Problem, algo string, base opt.Settings, iters []int, seeds []int64, parallel int) ([]*Summary, error) {
	out := make([]*Summary, 0, len(iters))
	for _, n := range iters {
		settings := base
		settings.Iters = n
		factory := func(seed int64) (opt.Optimizer, error) {
			s := settings
			s.Seed = seed
			return opt.New(algo, s, nil)
		}

		s, err := Run(ctx, p, factory, seeds, parallel)
		if err != nil {
			return nil, fmt.Errorf("failed at %d iterations: %w", n, err)
		}
		s.Iters = n
		out = append(out, s)
	}
	return out, nil
}

func summarize(scores []float64) *Summary {
	s := &Summary{
		Runs:   len(scores),
		Scores: append([]float64(nil), scores...),
		Min:    floats.Min(scores),
		Max:    floats.Max(scores),
	}
	for _, v := range scores {
		if v < problem.Penalty {
			s.Feasible++
		}
	}

	s.Mean, s.StdDev = stat.MeanStdDev(scores, nil)

	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)

	// A single run has no spread.
	if math.IsNaN(s.StdDev) {
		s.StdDev = 0
	}
	return s
}
