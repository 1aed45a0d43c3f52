package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/cwbudde/egwo/internal/egwo"
)

// RunConfig holds the configuration of an optimization run.
// This avoids import cycles with server package.
type RunConfig struct {
	Problem string `json:"problem"`
	Algo    string `json:"algo"`          // egwo, mayfly
	Dim     int    `json:"dim,omitempty"` // 0 = problem default
	Iters   int    `json:"iters"`
	PopSize int    `json:"popSize"`
	Seed    int64  `json:"seed"`
	Workers int    `json:"workers,omitempty"`
}

// RunRecord is the persisted outcome of a finished run.
type RunRecord struct {
	// RunID is the unique identifier for this run
	RunID string `json:"runId"`

	Config RunConfig `json:"config"`

	BestScore    float64   `json:"bestScore"`
	BestPosition []float64 `json:"bestPosition"`

	// ConvergenceIteration is the 1-based iteration of the last strict
	// improvement, 0 if the initial population's best was never beaten
	ConvergenceIteration int `json:"convergenceIteration"`

	// Iterations is the number of history entries recorded
	Iterations  int `json:"iterations"`
	Evaluations int `json:"evaluations"`

	Elapsed   time.Duration `json:"elapsed"`
	Timestamp time.Time     `json:"timestamp"`
}

// RunInfo contains metadata about a run without the position vector.
type RunInfo struct {
	RunID                string    `json:"runId"`
	Problem              string    `json:"problem"`
	Algo                 string    `json:"algo"`
	BestScore            float64   `json:"bestScore"`
	ConvergenceIteration int       `json:"convergenceIteration"`
	Iterations           int       `json:"iterations"`
	Timestamp            time.Time `json:"timestamp"`
}

// NewRunRecord converts an optimizer result into a persistable record.
func NewRunRecord(runID string, config RunConfig, result *egwo.Result, elapsed time.Duration) *RunRecord {
	return &RunRecord{
		RunID:                runID,
		Config:               config,
		BestScore:            result.BestScore,
		BestPosition:         append([]float64(nil), result.BestPosition...),
		ConvergenceIteration: result.ConvergenceIteration,
		Iterations:           len(result.History),
		Evaluations:          result.Evaluations,
		Elapsed:              elapsed,
		Timestamp:            time.Now(),
	}
}

// ToInfo converts a full RunRecord to RunInfo (metadata only).
func (r *RunRecord) ToInfo() RunInfo {
	return RunInfo{
		RunID:                r.RunID,
		Problem:              r.Config.Problem,
		Algo:                 r.Config.Algo,
		BestScore:            r.BestScore,
		ConvergenceIteration: r.ConvergenceIteration,
		Iterations:           r.Iterations,
		Timestamp:            r.Timestamp,
	}
}

// Validate checks if the record has valid data.
func (r *RunRecord) Validate() error {
	if err := ValidateRunID(r.RunID); err != nil {
		return err
	}
	if len(r.BestPosition) == 0 {
		return &ValidationError{Field: "BestPosition", Reason: "cannot be empty"}
	}
	if r.Config.Dim > 0 && len(r.BestPosition) != r.Config.Dim {
		return &ValidationError{
			Field:  "BestPosition",
			Reason: fmt.Sprintf("length mismatch: expected %d, got %d", r.Config.Dim, len(r.BestPosition)),
		}
	}
	if r.Config.Problem == "" {
		return &ValidationError{Field: "Config.Problem", Reason: "cannot be empty"}
	}
	if r.Config.Iters < 0 {
		return &ValidationError{Field: "Config.Iters", Reason: "cannot be negative"}
	}
	if r.Config.PopSize <= 0 {
		return &ValidationError{Field: "Config.PopSize", Reason: "must be positive"}
	}
	if r.ConvergenceIteration < 0 || r.ConvergenceIteration > r.Config.Iters {
		return &ValidationError{
			Field:  "ConvergenceIteration",
			Reason: fmt.Sprintf("must be within [0, %d]", r.Config.Iters),
		}
	}
	if r.Iterations < 0 {
		return &ValidationError{Field: "Iterations", Reason: "cannot be negative"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	return nil
}

// ValidateRunID rejects IDs that cannot name a single directory under
// <baseDir>/runs.
func ValidateRunID(runID string) error {
	switch {
	case runID == "":
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	case runID == "." || runID == "..":
		return &ValidationError{Field: "RunID", Reason: "cannot be a relative path element"}
	case strings.ContainsAny(runID, `/\`):
		return &ValidationError{Field: "RunID", Reason: "cannot contain a path separator"}
	}
	return nil
}

// ValidationError represents a run record validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
