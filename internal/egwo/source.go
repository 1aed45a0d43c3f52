package egwo

import "math/rand"

// Source supplies every random draw the optimizer makes. *rand.Rand
// satisfies it.
type Source interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
	// NormFloat64 returns a standard normal value.
	NormFloat64() float64
	// Int63 returns a non-negative 63-bit integer, used to seed sub-streams.
	Int63() int64
}

// NewSource returns the default seeded source.
func NewSource(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}

// openUnit draws from the open interval (0, 1).
func openUnit(src Source) float64 {
	for {
		if u := src.Float64(); u > 0 {
			return u
		}
	}
}

// uniform draws from the open interval (lo, hi).
func uniform(src Source, lo, hi float64) float64 {
	return lo + (hi-lo)*openUnit(src)
}

// normal draws from N(mean, std).
func normal(src Source, mean, std float64) float64 {
	return mean + std*src.NormFloat64()
}
