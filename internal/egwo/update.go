package egwo

import "math"

// moveCandidate relocates pos around the prey, one dimension at a time.
func moveCandidate(src Source, pos, prey, lower, upper []float64) {
	for d := range pos {
		pos[d] = stepCoordinate(src, pos[d], prey[d], lower[d], upper[d])
	}
}

// stepCoordinate applies the encircling move to a single coordinate. A move
// that leaves the box is discarded and the old coordinate is instead pulled a
// random fraction of the way toward the violated bound.
func stepCoordinate(src Source, x, prey, lo, hi float64) float64 {
	r := uniform(src, -2, 2)
	y := prey - r*math.Abs(prey-x)
	switch {
	case y > hi:
		return repair(x, hi, openUnit(src))
	case y < lo:
		return repair(x, lo, openUnit(src))
	default:
		return y
	}
}

// repair moves x toward bound by fraction u in (0, 1).
func repair(x, bound, u float64) float64 {
	return x + u*(bound-x)
}
