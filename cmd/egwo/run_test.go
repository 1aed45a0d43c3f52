package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/egwo/internal/problem"
	"github.com/cwbudde/egwo/internal/store"
)

// setRunFlags sets the run command globals for a small sphere run and
// restores them when the test ends.
func setRunFlags(t *testing.T) {
	t.Helper()
	saved := []any{problemName, algo, dim, iters, popSize, seed, workers, lowerFlag, upperFlag, plotPath, saveRun, jsonOut}
	t.Cleanup(func() {
		problemName = saved[0].(string)
		algo = saved[1].(string)
		dim = saved[2].(int)
		iters = saved[3].(int)
		popSize = saved[4].(int)
		seed = saved[5].(int64)
		workers = saved[6].(int)
		lowerFlag = saved[7].([]float64)
		upperFlag = saved[8].([]float64)
		plotPath = saved[9].(string)
		saveRun = saved[10].(bool)
		jsonOut = saved[11].(bool)
	})

	problemName = "sphere"
	algo = "egwo"
	dim = 3
	iters = 20
	popSize = 10
	seed = 7
	workers = 1
	lowerFlag = nil
	upperFlag = nil
	plotPath = ""
	saveRun = false
	jsonOut = false
}

func runWithOutput(t *testing.T) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	err := runOptimization(cmd, nil)
	return buf.String(), err
}

func TestResolveBounds(t *testing.T) {
	p, err := problem.Lookup("pressure-vessel", 0)
	require.NoError(t, err)

	lower, upper, err := resolveBounds(p, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 10, 10}, lower)
	assert.Equal(t, []float64{99, 99, 200, 200}, upper)

	lower, upper, err = resolveBounds(p, []float64{1, 1, 20, 20}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 20, 20}, lower)
	assert.Equal(t, []float64{99, 99, 200, 200}, upper)

	_, _, err = resolveBounds(p, []float64{1, 2}, nil)
	assert.ErrorContains(t, err, "--lower needs 4 values")

	_, _, err = resolveBounds(p, nil, []float64{1, 2, 3, 4, 5})
	assert.ErrorContains(t, err, "--upper needs 4 values")
}

func TestRunOptimizationText(t *testing.T) {
	setRunFlags(t)

	out, err := runWithOutput(t)
	require.NoError(t, err)
	assert.Contains(t, out, "best score:")
	assert.Contains(t, out, "best solution:")
	assert.Contains(t, out, "convergence iteration:")
	assert.Contains(t, out, "evaluations: 210")
	assert.NotContains(t, out, "feasible")
	assert.NotContains(t, out, "run id")
}

func TestRunOptimizationJSONPressureVessel(t *testing.T) {
	setRunFlags(t)
	problemName = "pressure-vessel"
	dim = 0
	iters = 50
	popSize = 20
	jsonOut = true

	out, err := runWithOutput(t)
	require.NoError(t, err)

	var got runOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "pressure-vessel", got.Problem)
	assert.Equal(t, "egwo", got.Algo)
	assert.Len(t, got.BestPosition, 4)
	assert.Equal(t, 20*51, got.Evaluations)
	require.NotNil(t, got.Feasible)
}

func TestRunOptimizationSaveAndPlot(t *testing.T) {
	setRunFlags(t)
	tmpDir := t.TempDir()
	useDataDir(t, tmpDir)
	saveRun = true
	jsonOut = true
	plotPath = filepath.Join(tmpDir, "curve.png")

	out, err := runWithOutput(t)
	require.NoError(t, err)

	var got runOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotEmpty(t, got.RunID)

	runStore, err := store.NewFSStore(tmpDir)
	require.NoError(t, err)
	record, err := runStore.LoadRun(got.RunID)
	require.NoError(t, err)
	assert.Equal(t, got.BestScore, record.BestScore)
	assert.Equal(t, 20, record.Iterations)
	assert.Equal(t, "sphere", record.Config.Problem)

	history, err := store.LoadHistory(tmpDir, got.RunID)
	require.NoError(t, err)
	assert.Len(t, history, 20)
	assert.Equal(t, got.BestScore, history[len(history)-1])

	info, err := os.Stat(plotPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRunOptimizationErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func()
		want  string
	}{
		{"unknown problem", func() { problemName = "nope" }, "unknown problem"},
		{"bad bounds", func() { lowerFlag = []float64{0} }, "--lower needs 3 values"},
		{"unknown algo", func() { algo = "pso" }, "pso"},
		{"mayfly plot", func() { algo = "mayfly"; popSize = 20; plotPath = filepath.Join(t.TempDir(), "c.png") }, "no history"},
		{"mayfly small population", func() { algo = "mayfly" }, "at least 20"},
		{"unsupported plot format", func() { plotPath = filepath.Join(t.TempDir(), "c.gif") }, `unsupported plot format "gif"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRunFlags(t)
			tt.setup()
			_, err := runWithOutput(t)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunOptimizationFailedSaveLeavesNoRunDir(t *testing.T) {
	tests := []struct {
		name  string
		setup func()
	}{
		{"optimizer error", func() { algo = "mayfly" }},
		{"unknown algo", func() { algo = "pso" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRunFlags(t)
			tmpDir := t.TempDir()
			useDataDir(t, tmpDir)
			saveRun = true
			tt.setup()

			_, err := runWithOutput(t)
			require.Error(t, err)

			entries, err := os.ReadDir(filepath.Join(tmpDir, "runs"))
			if !os.IsNotExist(err) {
				require.NoError(t, err)
				assert.Empty(t, entries, "failed run should leave no run directory")
			}
		})
	}
}

func TestPrintRunOutput(t *testing.T) {
	feasible := true
	out := runOutput{
		RunID:                "abc",
		Problem:              "pressure-vessel",
		Algo:                 "egwo",
		BestScore:            6059.714335,
		BestPosition:         []float64{0.8125, 0.4375, 42.0984, 176.6366},
		ConvergenceIteration: 812,
		Evaluations:          100050,
		Feasible:             &feasible,
		Elapsed:              "1.2s",
	}

	var buf bytes.Buffer
	require.NoError(t, printRunOutput(&buf, out, false))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"best score: 6059.714335",
		"best solution: [0.8125 0.4375 42.0984 176.6366]",
		"convergence iteration: 812",
		"feasible: true",
		"evaluations: 100050 in 1.2s",
		"run id: abc",
	}, lines)
}
