package egwo

import (
	"fmt"
	"math"
)

// Config holds the parameters of a single optimization run.
type Config struct {
	// PopSize is the number of wolves N. At least three are needed to fill
	// the alpha, beta and delta slots.
	PopSize int

	// Iterations is the number of main-loop iterations T. Zero is allowed and
	// returns the best candidate of the initial population.
	Iterations int

	// Lower and Upper are the per-dimension search bounds.
	Lower []float64
	Upper []float64

	// Seed initializes the default random source. Ignored when a Source is
	// supplied with WithSource.
	Seed int64

	// Workers bounds the goroutines used to move and evaluate candidates
	// within one iteration. Values <= 1 run serially.
	Workers int
}

// DefaultConfig returns the settings used for the pressure vessel design run.
func DefaultConfig() Config {
	return Config{
		PopSize:    50,
		Iterations: 2000,
		Lower:      []float64{0, 0, 10, 10},
		Upper:      []float64{99, 99, 200, 200},
		Seed:       42,
		Workers:    1,
	}
}

// Dim returns the dimensionality of the search space.
func (c Config) Dim() int {
	return len(c.Lower)
}

// Validate reports the first configuration problem found, or nil.
func (c Config) Validate() error {
	if c.PopSize <= 0 {
		return &ConfigError{Field: "PopSize", Reason: "must be positive"}
	}
	if c.PopSize < 3 {
		return &ConfigError{Field: "PopSize", Reason: fmt.Sprintf("must be at least 3 to rank alpha, beta and delta (got %d)", c.PopSize)}
	}
	if c.Iterations < 0 {
		return &ConfigError{Field: "Iterations", Reason: "cannot be negative"}
	}
	if len(c.Lower) != len(c.Upper) {
		return &ConfigError{
			Field:  "Bounds",
			Reason: fmt.Sprintf("length mismatch: %d lower vs %d upper", len(c.Lower), len(c.Upper)),
		}
	}
	if len(c.Lower) == 0 {
		return &ConfigError{Field: "Bounds", Reason: "cannot be empty"}
	}
	for i := range c.Lower {
		lo, hi := c.Lower[i], c.Upper[i]
		if math.IsNaN(lo) || math.IsInf(lo, 0) || math.IsNaN(hi) || math.IsInf(hi, 0) {
			return &ConfigError{Field: fmt.Sprintf("Bounds[%d]", i), Reason: "must be finite"}
		}
		if lo > hi {
			return &ConfigError{
				Field:  fmt.Sprintf("Bounds[%d]", i),
				Reason: fmt.Sprintf("lower %g exceeds upper %g", lo, hi),
			}
		}
	}
	return nil
}

// ErrInvalidConfig matches every *ConfigError via errors.Is.
var ErrInvalidConfig = &ConfigError{}

// ConfigError describes a rejected Config field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "invalid configuration"
	}
	return "invalid configuration: " + e.Field + " " + e.Reason
}

func (e *ConfigError) Is(target error) bool {
	_, ok := target.(*ConfigError)
	return ok
}
