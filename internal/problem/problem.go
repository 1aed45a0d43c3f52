// Package problem provides objective functions with their search boxes:
// the constrained pressure vessel design problem and a few unconstrained
// benchmarks.
package problem

import (
	"fmt"
	"sort"
	"strings"
)

// Penalty is returned for infeasible designs. It is large but finite so
// scores stay totally ordered.
const Penalty = 1e10

// Problem is a box-constrained minimization target.
type Problem interface {
	Name() string
	Eval(x []float64) float64
	Bounds() (lower, upper []float64)
}

// KnownOptimum is implemented by problems whose global minimum value is known.
type KnownOptimum interface {
	Optimum() float64
}

// Dim returns the dimensionality of p.
func Dim(p Problem) int {
	lower, _ := p.Bounds()
	return len(lower)
}

// InsideBounds reports whether x lies within the bounds of p.
func InsideBounds(x []float64, p Problem) bool {
	lower, upper := p.Bounds()
	if len(x) != len(lower) {
		return false
	}
	for i, v := range x {
		if v < lower[i] || v > upper[i] {
			return false
		}
	}
	return true
}

type factory func(dim int) (Problem, error)

var registry = map[string]factory{
	"pressure-vessel": func(dim int) (Problem, error) {
		if dim != 0 && dim != 4 {
			return nil, fmt.Errorf("pressure-vessel is 4-dimensional, got dim %d", dim)
		}
		return PressureVessel{}, nil
	},
	"sphere":     func(dim int) (Problem, error) { return Sphere{NDim: orDefault(dim, 2)}, nil },
	"rastrigin":  func(dim int) (Problem, error) { return Rastrigin{NDim: orDefault(dim, 2)}, nil },
	"rosenbrock": func(dim int) (Problem, error) { return Rosenbrock{NDim: orDefault(dim, 2)}, nil },
	"ackley": func(dim int) (Problem, error) {
		if dim != 0 && dim != 2 {
			return nil, fmt.Errorf("ackley is 2-dimensional, got dim %d", dim)
		}
		return Ackley{}, nil
	},
}

func orDefault(dim, def int) int {
	if dim <= 0 {
		return def
	}
	return dim
}

// Lookup returns the named problem. dim 0 selects the problem's default
// dimensionality; fixed-size problems reject any other value.
func Lookup(name string, dim int) (Problem, error) {
	f, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown problem: %s (available: %s)", name, strings.Join(Names(), ", "))
	}
	if dim < 0 {
		return nil, fmt.Errorf("dimension cannot be negative: %d", dim)
	}
	return f(dim)
}

// Names lists the registered problems in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
