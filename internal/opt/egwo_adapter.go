package opt

import (
	"context"

	"github.com/cwbudde/egwo/internal/egwo"
)

// EGWOAdapter runs the Enhanced Grey Wolf Optimizer
type EGWOAdapter struct {
	settings Settings
	observer egwo.Observer
}

// NewEGWO creates an EGWO optimizer adapter
func NewEGWO(s Settings, observer egwo.Observer) Optimizer {
	return &EGWOAdapter{settings: s, observer: observer}
}

func (a *EGWOAdapter) Name() string { return "egwo" }

// Run executes EGWO over the given bounds
func (a *EGWOAdapter) Run(ctx context.Context, eval func([]float64) float64, lower, upper []float64) (*egwo.Result, error) {
	cfg := egwo.Config{
		PopSize:    a.settings.PopSize,
		Iterations: a.settings.Iters,
		Lower:      lower,
		Upper:      upper,
		Seed:       a.settings.Seed,
		Workers:    a.settings.Workers,
	}

	var opts []egwo.Option
	if a.observer != nil {
		opts = append(opts, egwo.WithObserver(a.observer))
	}

	optimizer, err := egwo.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return optimizer.RunContext(ctx, eval)
}
