package opt

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"

	"github.com/cwbudde/egwo/internal/egwo"
	"github.com/cwbudde/mayfly"
)

// minMayflyPop is the smallest population mayfly v0.1.0 accepts.
const minMayflyPop = 20

// MayflyAdapter wraps the external Mayfly library to conform to our Optimizer interface
type MayflyAdapter struct {
	settings Settings
}

// NewMayfly creates a new Mayfly optimizer adapter
func NewMayfly(s Settings) Optimizer {
	return &MayflyAdapter{settings: s}
}

func (m *MayflyAdapter) Name() string { return "mayfly" }

// Run executes the Mayfly optimization using the external library.
//
// The library only takes scalar bounds, so the search runs on the unit cube
// and every position is mapped onto [lower, upper] before evaluation.
// The library cannot be interrupted; once ctx is done every evaluation
// returns +Inf without calling eval and the run is discarded.
func (m *MayflyAdapter) Run(ctx context.Context, eval func([]float64) float64, lower, upper []float64) (*egwo.Result, error) {
	if len(lower) == 0 || len(lower) != len(upper) {
		return nil, fmt.Errorf("mayfly: invalid bounds: %d lower vs %d upper", len(lower), len(upper))
	}
	if m.settings.PopSize < minMayflyPop {
		return nil, fmt.Errorf("mayfly: population must be at least %d, got %d", minMayflyPop, m.settings.PopSize)
	}
	dim := len(lower)

	var evaluations atomic.Int64
	unitEval := func(u []float64) float64 {
		if ctx.Err() != nil {
			return math.Inf(1)
		}
		evaluations.Add(1)
		x := make([]float64, dim)
		toBox(u, lower, upper, x)
		return eval(x)
	}

	// Create config for external Mayfly library
	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = unitEval
	config.ProblemSize = dim
	config.MaxIterations = m.settings.Iters
	config.NPop = m.settings.PopSize
	config.LowerBound = 0
	config.UpperBound = 1

	// Set random seed for reproducibility
	config.Rand = rand.New(rand.NewSource(m.settings.Seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, fmt.Errorf("mayfly optimization failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("mayfly optimization stopped: %w", err)
	}

	best := make([]float64, dim)
	toBox(result.GlobalBest.Position, lower, upper, best)

	return &egwo.Result{
		BestScore:    result.GlobalBest.Cost,
		BestPosition: best,
		Evaluations:  int(evaluations.Load()),
	}, nil
}

// toBox maps u in the unit cube onto [lower, upper], clamping stray values.
func toBox(u, lower, upper, out []float64) {
	for i := range out {
		v := u[i]
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		out[i] = lower[i] + v*(upper[i]-lower[i])
	}
}
