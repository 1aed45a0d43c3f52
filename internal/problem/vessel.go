package problem

import "math"

// PressureVessel is the cylindrical pressure vessel cost problem.
//
// x[0] shell thickness Ts, x[1] head thickness Th, x[2] inner radius R,
// x[3] cylinder length L. Designs violating any constraint score Penalty.
// The volume constraint g3 only involves R: the enclosed volume term is
// pi*R^2 + 4/3*pi*R^3, so feasible radii start near 67.5.
type PressureVessel struct{}

func (PressureVessel) Name() string { return "pressure-vessel" }

func (PressureVessel) Bounds() (lower, upper []float64) {
	return []float64{0, 0, 10, 10}, []float64{99, 99, 200, 200}
}

func (pv PressureVessel) Eval(x []float64) float64 {
	if !pv.Feasible(x) {
		return Penalty
	}
	return pv.Cost(x)
}

// Cost is the material, forming and welding cost, ignoring constraints.
func (PressureVessel) Cost(x []float64) float64 {
	x1, x2, x3, x4 := x[0], x[1], x[2], x[3]
	return 0.6224*x1*x3*x4 +
		1.7781*x2*x3*x3 +
		3.1661*x1*x1*x4 +
		19.84*x1*x1*x3
}

// Constraints returns g1..g4; a design is feasible when all are <= 0.
func (PressureVessel) Constraints(x []float64) [4]float64 {
	x1, x2, x3, x4 := x[0], x[1], x[2], x[3]
	return [4]float64{
		-x1 + 0.0193*x3,
		-x2 + 0.00954*x3,
		-math.Pi*x3*x3 - 4*math.Pi*x3*x3*x3/3 + 1296000,
		x4 - 240,
	}
}

// Feasible reports whether x is 4-dimensional and satisfies every constraint.
func (pv PressureVessel) Feasible(x []float64) bool {
	if len(x) != 4 {
		return false
	}
	for _, g := range pv.Constraints(x) {
		if g > 0 || math.IsNaN(g) {
			return false
		}
	}
	return true
}
