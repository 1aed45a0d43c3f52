package egwo

import (
	"math"
	"sort"
)

// Sigma is the standard deviation of the noise added to the prey estimate at
// 0-based iteration t of a run with total iterations.
func Sigma(t, total int) float64 {
	return math.Exp(-100 * float64(t+1) / float64(total))
}

// preyWeights draws three values from (1, 3), sorts them descending and
// normalizes them to sum to one.
func preyWeights(src Source) [3]float64 {
	raw := []float64{uniform(src, 1, 3), uniform(src, 1, 3), uniform(src, 1, 3)}
	sort.Sort(sort.Reverse(sort.Float64Slice(raw)))
	sum := raw[0] + raw[1] + raw[2]
	return [3]float64{raw[0] / sum, raw[1] / sum, raw[2] / sum}
}

// estimatePrey writes the iteration's prey location into prey and returns
// the noise level used. The largest weight goes to alpha and the smallest to
// delta.
func estimatePrey(src Source, l *Leaders, t, total int, prey []float64) float64 {
	w := preyWeights(src)
	std := Sigma(t, total)
	for d := range prey {
		prey[d] = w[0]*l.Alpha.Position[d] +
			w[1]*l.Beta.Position[d] +
			w[2]*l.Delta.Position[d] +
			normal(src, 0, std)
	}
	return std
}
