package opt

import (
	"context"
	"fmt"
	"strings"

	"github.com/cwbudde/egwo/internal/egwo"
)

// Optimizer defines an optimization algorithm interface
type Optimizer interface {
	// Run minimizes eval over the box [lower, upper]. Both algorithms report
	// through egwo.Result; History is nil when the algorithm does not track it.
	// A cancelled ctx aborts the run with ctx's error.
	Run(ctx context.Context, eval func([]float64) float64, lower, upper []float64) (*egwo.Result, error)

	// Name identifies the algorithm
	Name() string
}

// Settings are the knobs shared by all algorithms.
type Settings struct {
	Iters   int   `json:"iters"`
	PopSize int   `json:"popSize"`
	Seed    int64 `json:"seed"`
	Workers int   `json:"workers,omitempty"`
}

// Algorithms lists the names accepted by New.
var Algorithms = []string{"egwo", "mayfly"}

// New creates the named optimizer. The observer is only used by egwo.
func New(algo string, s Settings, observer egwo.Observer) (Optimizer, error) {
	switch strings.ToLower(algo) {
	case "", "egwo":
		return NewEGWO(s, observer), nil
	case "mayfly":
		return NewMayfly(s), nil
	default:
		return nil, fmt.Errorf("unknown algorithm: %s (available: %s)", algo, strings.Join(Algorithms, ", "))
	}
}
