package egwo

// Objective scores a candidate position. Lower is better. Infeasible
// positions should return a large finite penalty instead of panicking.
type Objective func(x []float64) float64

// Wolf is a candidate position together with its score.
type Wolf struct {
	Position []float64 `json:"position"`
	Score    float64   `json:"score"`
}

// clone returns a value copy that shares no memory with w.
func (w Wolf) clone() Wolf {
	return Wolf{Position: append([]float64(nil), w.Position...), Score: w.Score}
}

// population is the pack of N wolves. Positions are mutated in place.
type population struct {
	positions [][]float64
	scores    []float64
}

// newPopulation samples every dimension of every wolf uniformly from its
// bounds and evaluates each wolf once.
func newPopulation(src Source, n int, lower, upper []float64, obj Objective) *population {
	p := &population{
		positions: make([][]float64, n),
		scores:    make([]float64, n),
	}
	for i := 0; i < n; i++ {
		pos := make([]float64, len(lower))
		for d := range pos {
			pos[d] = lower[d] + (upper[d]-lower[d])*src.Float64()
		}
		p.positions[i] = pos
		p.scores[i] = obj(pos)
	}
	return p
}

func (p *population) size() int {
	return len(p.scores)
}

// wolf returns a copy of the i-th wolf.
func (p *population) wolf(i int) Wolf {
	return Wolf{Position: append([]float64(nil), p.positions[i]...), Score: p.scores[i]}
}

// inBounds reports whether every coordinate of every wolf is inside the box.
func (p *population) inBounds(lower, upper []float64) bool {
	for _, pos := range p.positions {
		for d, v := range pos {
			if v < lower[d] || v > upper[d] {
				return false
			}
		}
	}
	return true
}
