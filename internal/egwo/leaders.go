package egwo

import "sort"

// Rank identifies a leadership slot.
type Rank int

const (
	RankNone Rank = iota
	RankAlpha
	RankBeta
	RankDelta
)

func (r Rank) String() string {
	switch r {
	case RankAlpha:
		return "alpha"
	case RankBeta:
		return "beta"
	case RankDelta:
		return "delta"
	default:
		return "none"
	}
}

// Leaders holds value copies of the three best-ranked wolves. Scores always
// satisfy Alpha.Score <= Beta.Score <= Delta.Score.
type Leaders struct {
	Alpha Wolf `json:"alpha"`
	Beta  Wolf `json:"beta"`
	Delta Wolf `json:"delta"`
}

// seedLeaders ranks the initial population. Equal scores keep candidate
// index order.
func seedLeaders(p *population) Leaders {
	idx := make([]int, p.size())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return p.scores[idx[a]] < p.scores[idx[b]]
	})
	return Leaders{
		Alpha: p.wolf(idx[0]),
		Beta:  p.wolf(idx[1]),
		Delta: p.wolf(idx[2]),
	}
}

// Offer runs the exclusive cascade for a freshly evaluated wolf: it replaces
// at most one slot, checking alpha, then beta, then delta, and never shifts
// the displaced leader down. It returns the replaced slot.
func (l *Leaders) Offer(score float64, pos []float64) Rank {
	w := Wolf{Position: pos, Score: score}
	switch {
	case score < l.Alpha.Score:
		l.Alpha = w.clone()
		return RankAlpha
	case score < l.Beta.Score:
		l.Beta = w.clone()
		return RankBeta
	case score < l.Delta.Score:
		l.Delta = w.clone()
		return RankDelta
	}
	return RankNone
}

// Ordered reports whether the alpha <= beta <= delta invariant holds.
func (l *Leaders) Ordered() bool {
	return l.Alpha.Score <= l.Beta.Score && l.Beta.Score <= l.Delta.Score
}

func (l *Leaders) clone() Leaders {
	return Leaders{Alpha: l.Alpha.clone(), Beta: l.Beta.clone(), Delta: l.Delta.clone()}
}
