package egwo

import "math"

// ConvergenceTracker records the best-so-far score per iteration and the
// iteration of the last strict improvement.
type ConvergenceTracker struct {
	best       Wolf
	initial    float64
	lastImprov int // 1-based, 0 = never improved after initialization
	history    []float64
	staleCount int // iterations recorded since the last improvement
}

// NewConvergenceTracker starts tracking from the given initial best.
func NewConvergenceTracker(initial Wolf, capacity int) *ConvergenceTracker {
	return &ConvergenceTracker{
		best:    initial.clone(),
		initial: initial.Score,
		history: make([]float64, 0, capacity),
	}
}

// Offer replaces the global best if score is strictly better, stamping the
// improvement with iter. It reports whether the best changed.
func (c *ConvergenceTracker) Offer(iter int, score float64, pos []float64) bool {
	if !(score < c.best.Score) {
		return false
	}
	c.best = Wolf{Position: append([]float64(nil), pos...), Score: score}
	c.lastImprov = iter
	return true
}

// Record appends the current best score to the history.
func (c *ConvergenceTracker) Record() {
	if c.lastImprov == len(c.history)+1 {
		c.staleCount = 0
	} else {
		c.staleCount++
	}
	c.history = append(c.history, c.best.Score)
}

// BestScore returns the best score seen so far.
func (c *ConvergenceTracker) BestScore() float64 {
	return c.best.Score
}

// Best returns a copy of the best wolf seen so far.
func (c *ConvergenceTracker) Best() Wolf {
	return c.best.clone()
}

// InitialScore returns the best score of the initial population.
func (c *ConvergenceTracker) InitialScore() float64 {
	return c.initial
}

// ConvergenceIteration returns the 1-based iteration of the last strict
// improvement, or 0.
func (c *ConvergenceTracker) ConvergenceIteration() int {
	return c.lastImprov
}

// History returns a copy of the recorded best scores.
func (c *ConvergenceTracker) History() []float64 {
	return append([]float64{}, c.history...)
}

// StaleCount returns the number of recorded iterations since the last
// improvement.
func (c *ConvergenceTracker) StaleCount() int {
	return c.staleCount
}

// Improvement returns the relative improvement of the current best over the
// initial population's best, or 0 when that is zero or infinite.
func (c *ConvergenceTracker) Improvement() float64 {
	if c.initial == 0 || math.IsInf(c.initial, 0) {
		return 0
	}
	return (c.initial - c.best.Score) / math.Abs(c.initial)
}
