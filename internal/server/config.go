package server

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cwbudde/egwo/internal/opt"
	"github.com/cwbudde/egwo/internal/problem"
)

const (
	defaultProblem = "pressure-vessel"
	defaultAlgo    = "egwo"
	defaultIters   = 500
	defaultPopSize = 30

	maxIters   = 100000
	maxPopSize = 10000
	maxWorkers = 256
)

// newJobConfig returns the configuration a create request starts from.
// Fields missing from the request body keep these values, so an explicit
// "iters": 0 asks for the initial population only.
func newJobConfig() JobConfig {
	return JobConfig{
		Problem: defaultProblem,
		Algo:    defaultAlgo,
		Iters:   defaultIters,
		PopSize: defaultPopSize,
	}
}

// normalizeConfig fills in defaults and rejects configurations the worker
// could not run. It returns the resolved problem.
func normalizeConfig(config *JobConfig) (problem.Problem, error) {
	if config.Problem == "" {
		config.Problem = defaultProblem
	}
	config.Algo = strings.ToLower(config.Algo)
	if config.Algo == "" {
		config.Algo = defaultAlgo
	}
	if config.PopSize <= 0 {
		config.PopSize = defaultPopSize
	}

	if !slices.Contains(opt.Algorithms, config.Algo) {
		return nil, fmt.Errorf("unknown algo %q (available: %s)", config.Algo, strings.Join(opt.Algorithms, ", "))
	}
	if config.Iters < 0 || config.Iters > maxIters {
		return nil, fmt.Errorf("iters must be between 0 and %d", maxIters)
	}
	if config.Algo == "mayfly" && config.Iters == 0 {
		return nil, fmt.Errorf("mayfly needs at least one iteration")
	}
	if config.PopSize < 3 || config.PopSize > maxPopSize {
		return nil, fmt.Errorf("popSize must be between 3 and %d", maxPopSize)
	}
	if config.Workers < 0 || config.Workers > maxWorkers {
		return nil, fmt.Errorf("workers must be between 0 and %d", maxWorkers)
	}

	p, err := problem.Lookup(config.Problem, config.Dim)
	if err != nil {
		return nil, err
	}
	config.Dim = problem.Dim(p)
	return p, nil
}
