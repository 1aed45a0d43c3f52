// Package egwo implements the Enhanced Grey Wolf Optimizer: a population of
// wolves repeatedly encircles a noisy estimate of the prey location derived
// from the three best wolves found so far.
package egwo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// Result is the outcome of a run.
type Result struct {
	BestScore            float64   `json:"bestScore"`
	InitialScore         float64   `json:"initialScore"` // best of the initial population
	BestPosition         []float64 `json:"bestPosition"`
	ConvergenceIteration int       `json:"convergenceIteration"`
	History              []float64 `json:"history"`
	Evaluations          int       `json:"evaluations"`
	Leaders              Leaders   `json:"leaders"`
}

// IterationStats is passed to the Observer after every iteration.
type IterationStats struct {
	Iteration  int     // 1-based
	BestScore  float64 // global best after this iteration
	Alpha      float64
	Beta       float64
	Delta      float64
	Sigma      float64 // prey noise level used in this iteration
	Improved   bool    // global best changed during this iteration
	StaleCount int
}

// Observer receives per-iteration progress. It runs on the optimizer's
// goroutine and must not retain the stats beyond the call.
type Observer func(IterationStats)

// Option customizes an Optimizer.
type Option func(*Optimizer)

// WithSource makes the optimizer draw from src instead of a source seeded
// with Config.Seed. Consecutive runs then continue the same stream.
func WithSource(src Source) Option {
	return func(o *Optimizer) {
		o.src = src
	}
}

// WithObserver registers a per-iteration callback.
func WithObserver(fn Observer) Option {
	return func(o *Optimizer) {
		o.observer = fn
	}
}

// Optimizer runs EGWO with a fixed configuration.
type Optimizer struct {
	cfg      Config
	src      Source
	observer Observer
}

// New validates cfg and returns an optimizer for it.
func New(cfg Config, opts ...Option) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Lower = append([]float64(nil), cfg.Lower...)
	cfg.Upper = append([]float64(nil), cfg.Upper...)

	o := &Optimizer{cfg: cfg}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Config returns a copy of the optimizer's configuration.
func (o *Optimizer) Config() Config {
	cfg := o.cfg
	cfg.Lower = append([]float64(nil), o.cfg.Lower...)
	cfg.Upper = append([]float64(nil), o.cfg.Upper...)
	return cfg
}

// Run minimizes obj. Without WithSource every call starts from Config.Seed
// and returns the same result.
func (o *Optimizer) Run(obj Objective) (*Result, error) {
	return o.RunContext(context.Background(), obj)
}

// RunContext is Run with cancellation. ctx is checked between iterations;
// a cancelled run returns no result.
func (o *Optimizer) RunContext(ctx context.Context, obj Objective) (*Result, error) {
	if obj == nil {
		return nil, errors.New("objective cannot be nil")
	}
	src := o.src
	if src == nil {
		src = NewSource(o.cfg.Seed)
	}

	slog.Info("Starting EGWO optimization",
		"pop", o.cfg.PopSize,
		"iters", o.cfg.Iterations,
		"dim", o.cfg.Dim(),
		"workers", o.cfg.Workers,
	)
	start := time.Now()

	st := newRunState(o.cfg, src, obj)
	for t := 0; t < o.cfg.Iterations; t++ {
		if err := ctx.Err(); err != nil {
			slog.Info("EGWO optimization cancelled", "iteration", t)
			return nil, fmt.Errorf("optimization stopped after %d iterations: %w", t, err)
		}
		stats := st.iterate(t)
		if o.observer != nil {
			o.observer(stats)
		}
	}
	res := st.result()

	slog.Info("EGWO optimization complete",
		"elapsed", time.Since(start),
		"best_score", res.BestScore,
		"convergence_iteration", res.ConvergenceIteration,
		"evaluations", res.Evaluations,
		"improvement", st.conv.Improvement(),
	)
	return res, nil
}

// Minimize is a one-call convenience wrapper around New and Run.
func Minimize(obj Objective, popSize, iterations int, lower, upper []float64, seed int64) (*Result, error) {
	o, err := New(Config{
		PopSize:    popSize,
		Iterations: iterations,
		Lower:      lower,
		Upper:      upper,
		Seed:       seed,
	})
	if err != nil {
		return nil, err
	}
	return o.Run(obj)
}

// runState is everything that changes during a run.
type runState struct {
	cfg         Config
	src         Source
	obj         Objective
	pop         *population
	leaders     Leaders
	conv        *ConvergenceTracker
	prey        []float64
	evaluations int
}

func newRunState(cfg Config, src Source, obj Objective) *runState {
	pop := newPopulation(src, cfg.PopSize, cfg.Lower, cfg.Upper, obj)
	leaders := seedLeaders(pop)
	return &runState{
		cfg:         cfg,
		src:         src,
		obj:         obj,
		pop:         pop,
		leaders:     leaders,
		conv:        NewConvergenceTracker(leaders.Alpha, cfg.Iterations),
		prey:        make([]float64, cfg.Dim()),
		evaluations: cfg.PopSize,
	}
}

// iterate performs 0-based iteration t: estimate the prey from the leaders
// as they stand now, move and evaluate every wolf, fold the new scores into
// the leaders and the global best, and record history.
func (st *runState) iterate(t int) IterationStats {
	sigma := estimatePrey(st.src, &st.leaders, t, st.cfg.Iterations, st.prey)
	before := st.conv.ConvergenceIteration()

	if st.cfg.Workers > 1 {
		st.moveParallel()
		for i := 0; i < st.pop.size(); i++ {
			st.absorb(i, t+1)
		}
	} else {
		for i := 0; i < st.pop.size(); i++ {
			pos := st.pop.positions[i]
			moveCandidate(st.src, pos, st.prey, st.cfg.Lower, st.cfg.Upper)
			st.pop.scores[i] = st.obj(pos)
			st.absorb(i, t+1)
		}
	}
	st.evaluations += st.pop.size()
	st.conv.Record()

	stats := IterationStats{
		Iteration:  t + 1,
		BestScore:  st.conv.BestScore(),
		Alpha:      st.leaders.Alpha.Score,
		Beta:       st.leaders.Beta.Score,
		Delta:      st.leaders.Delta.Score,
		Sigma:      sigma,
		Improved:   st.conv.ConvergenceIteration() != before,
		StaleCount: st.conv.StaleCount(),
	}
	slog.Debug("EGWO iteration",
		"iteration", stats.Iteration,
		"best_score", stats.BestScore,
		"alpha", stats.Alpha,
		"sigma", stats.Sigma,
	)
	return stats
}

// moveParallel moves and evaluates all wolves concurrently. Each wolf draws
// from its own sub-stream seeded from the master source in index order, so
// the outcome does not depend on scheduling or the worker count.
func (st *runState) moveParallel() {
	n := st.pop.size()
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = st.src.Int63()
	}

	p := pool.New().WithMaxGoroutines(st.cfg.Workers)
	for i := 0; i < n; i++ {
		i := i
		p.Go(func() {
			sub := NewSource(seeds[i])
			pos := st.pop.positions[i]
			moveCandidate(sub, pos, st.prey, st.cfg.Lower, st.cfg.Upper)
			st.pop.scores[i] = st.obj(pos)
		})
	}
	p.Wait()
}

// absorb folds wolf i's fresh score into the leaders and the global best.
func (st *runState) absorb(i, iter int) {
	score, pos := st.pop.scores[i], st.pop.positions[i]
	st.leaders.Offer(score, pos)
	st.conv.Offer(iter, score, pos)
}

func (st *runState) result() *Result {
	best := st.conv.Best()
	return &Result{
		BestScore:            best.Score,
		InitialScore:         st.conv.InitialScore(),
		BestPosition:         best.Position,
		ConvergenceIteration: st.conv.ConvergenceIteration(),
		History:              st.conv.History(),
		Evaluations:          st.evaluations,
		Leaders:              st.leaders.clone(),
	}
}
