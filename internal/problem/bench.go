package problem

import "math"

// Sphere is sum(x_i^2) on [-5, 5]^n.
type Sphere struct{ NDim int }

func (fn Sphere) Name() string     { return "sphere" }
func (fn Sphere) Optimum() float64 { return 0 }

func (fn Sphere) Bounds() (lower, upper []float64) {
	return box(fn.NDim, -5, 5)
}

func (fn Sphere) Eval(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum
}

// Rastrigin is highly multimodal with its minimum at the origin.
type Rastrigin struct{ NDim int }

func (fn Rastrigin) Name() string     { return "rastrigin" }
func (fn Rastrigin) Optimum() float64 { return 0 }

func (fn Rastrigin) Bounds() (lower, upper []float64) {
	return box(fn.NDim, -5.12, 5.12)
}

func (fn Rastrigin) Eval(x []float64) float64 {
	sum := 10 * float64(len(x))
	for _, v := range x {
		sum += v*v - 10*math.Cos(2*math.Pi*v)
	}
	return sum
}

// Rosenbrock has a narrow curved valley with its minimum at (1, ..., 1).
type Rosenbrock struct{ NDim int }

func (fn Rosenbrock) Name() string     { return "rosenbrock" }
func (fn Rosenbrock) Optimum() float64 { return 0 }

func (fn Rosenbrock) Bounds() (lower, upper []float64) {
	return box(fn.NDim, -5, 10)
}

func (fn Rosenbrock) Eval(x []float64) float64 {
	var sum float64
	for i := 0; i < len(x)-1; i++ {
		a := x[i+1] - x[i]*x[i]
		b := 1 - x[i]
		sum += 100*a*a + b*b
	}
	return sum
}

// Ackley is the two-dimensional Ackley function.
type Ackley struct{}

func (fn Ackley) Name() string     { return "ackley" }
func (fn Ackley) Optimum() float64 { return 0 }

func (fn Ackley) Bounds() (lower, upper []float64) {
	return []float64{-5, -5}, []float64{5, 5}
}

func (fn Ackley) Eval(x []float64) float64 {
	a, b := x[0], x[1]
	return -20*math.Exp(-0.2*math.Sqrt(0.5*(a*a+b*b))) -
		math.Exp(0.5*(math.Cos(2*math.Pi*a)+math.Cos(2*math.Pi*b))) +
		20 + math.E
}

func box(n int, lo, hi float64) (lower, upper []float64) {
	lower = make([]float64, n)
	upper = make([]float64, n)
	for i := 0; i < n; i++ {
		lower[i] = lo
		upper[i] = hi
	}
	return lower, upper
}
