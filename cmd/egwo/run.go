package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cwbudde/egwo/internal/egwo"
	"github.com/cwbudde/egwo/internal/opt"
	"github.com/cwbudde/egwo/internal/plot"
	"github.com/cwbudde/egwo/internal/problem"
	"github.com/cwbudde/egwo/internal/store"
)

var (
	problemName string
	algo        string
	dim         int
	iters       int
	popSize     int
	seed        int64
	workers     int
	lowerFlag   []float64
	upperFlag   []float64
	plotPath    string
	saveRun     bool
	jsonOut     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single optimization",
	Long: `Minimizes the selected problem and prints the best score, the best
solution and the iteration of the last improvement. The defaults reproduce
the pressure vessel design setup: 50 wolves, 2000 iterations.`,
	RunE: runOptimization,
}

func init() {
	runCmd.Flags().StringVar(&problemName, "problem", "pressure-vessel", "Problem to minimize (see 'egwo problems')")
	runCmd.Flags().StringVar(&algo, "algo", "egwo", "Algorithm: egwo, mayfly")
	runCmd.Flags().IntVar(&dim, "dim", 0, "Dimension for n-dimensional problems (0 = problem default)")
	runCmd.Flags().IntVar(&iters, "iters", 2000, "Iterations")
	runCmd.Flags().IntVar(&popSize, "pop", 50, "Population size")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	runCmd.Flags().IntVar(&workers, "workers", 1, "Parallel objective evaluations per iteration (egwo only)")
	runCmd.Flags().Float64SliceVar(&lowerFlag, "lower", nil, "Override lower bounds (comma separated, one per dimension)")
	runCmd.Flags().Float64SliceVar(&upperFlag, "upper", nil, "Override upper bounds (comma separated, one per dimension)")
	runCmd.Flags().StringVar(&plotPath, "plot", "", "Write the convergence curve to this file (.png, .svg, .pdf)")
	runCmd.Flags().BoolVar(&saveRun, "save", false, "Save the run record and trace under --data-dir")
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "Print the result as JSON")

	rootCmd.AddCommand(runCmd)
}

// runOutput is what run prints.
type runOutput struct {
	RunID                string    `json:"runId,omitempty"`
	Problem              string    `json:"problem"`
	Algo                 string    `json:"algo"`
	BestScore            float64   `json:"bestScore"`
	BestPosition         []float64 `json:"bestPosition"`
	ConvergenceIteration int       `json:"convergenceIteration"`
	Evaluations          int       `json:"evaluations"`
	Feasible             *bool     `json:"feasible,omitempty"`
	Elapsed              string    `json:"elapsed"`
}

func runOptimization(cmd *cobra.Command, args []string) error {
	prob, err := problem.Lookup(problemName, dim)
	if err != nil {
		return err
	}
	lower, upper, err := resolveBounds(prob, lowerFlag, upperFlag)
	if err != nil {
		return err
	}

	if plotPath != "" {
		if err := plot.CheckFormat(plot.FormatFromPath(plotPath)); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	config := store.RunConfig{
		Problem: prob.Name(),
		Algo:    algo,
		Dim:     len(lower),
		Iters:   iters,
		PopSize: popSize,
		Seed:    seed,
		Workers: workers,
	}

	var (
		runID   string
		fsStore *store.FSStore
		trace   *store.TraceWriter
		saved   bool
	)
	if saveRun {
		fsStore, err = store.NewFSStore(dataDir)
		if err != nil {
			return fmt.Errorf("failed to create run store: %w", err)
		}
		runID = uuid.New().String()
		trace, err = store.NewTraceWriter(dataDir, runID)
		if err != nil {
			return err
		}
		defer trace.Close()

		// A run directory without a record would never be listed.
		defer func() {
			if saved {
				return
			}
			trace.Close()
			if err := fsStore.DeleteRun(runID); err != nil {
				slog.Warn("Failed to remove partial run", "run_id", runID, "error", err)
			}
		}()
	}

	var observer egwo.Observer
	if trace != nil {
		observer = func(stats egwo.IterationStats) {
			if err := trace.Write(store.EntryFromStats(stats)); err != nil {
				slog.Warn("Failed to write trace entry", "iteration", stats.Iteration, "error", err)
			}
		}
	}

	optimizer, err := opt.New(algo, opt.Settings{
		Iters:   iters,
		PopSize: popSize,
		Seed:    seed,
		Workers: workers,
	}, observer)
	if err != nil {
		return err
	}

	slog.Info("Starting optimization", "problem", prob.Name(), "algo", optimizer.Name(), "dim", len(lower))

	start := time.Now()
	result, err := optimizer.Run(ctx, prob.Eval, lower, upper)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if !problem.InsideBounds(result.BestPosition, prob) {
		slog.Warn("Best solution lies outside the problem's default bounds", "problem", prob.Name())
	}

	if saveRun {
		record := store.NewRunRecord(runID, config, result, elapsed)
		if err := fsStore.SaveRun(record); err != nil {
			return err
		}
		saved = true
		slog.Info("Run saved", "run_id", runID, "dir", fsStore.RunDir(runID), "trace", trace.Path())
	}

	if plotPath != "" {
		if len(result.History) == 0 {
			return fmt.Errorf("%s records no history to plot", optimizer.Name())
		}
		title := fmt.Sprintf("Convergence curve (%s)", prob.Name())
		if err := plot.Save(result.History, plot.Options{Title: title}, plotPath); err != nil {
			return err
		}
		slog.Info("Convergence curve written", "path", plotPath)
	}

	out := runOutput{
		RunID:                runID,
		Problem:              prob.Name(),
		Algo:                 optimizer.Name(),
		BestScore:            result.BestScore,
		BestPosition:         result.BestPosition,
		ConvergenceIteration: result.ConvergenceIteration,
		Evaluations:          result.Evaluations,
		Elapsed:              elapsed.Round(time.Millisecond).String(),
	}
	if pv, ok := prob.(problem.PressureVessel); ok {
		feasible := pv.Feasible(result.BestPosition)
		out.Feasible = &feasible
	}
	return printRunOutput(cmd.OutOrStdout(), out, jsonOut)
}

func printRunOutput(w io.Writer, out runOutput, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "best score: %.6f\n", out.BestScore)
	fmt.Fprintf(w, "best solution: %v\n", out.BestPosition)
	fmt.Fprintf(w, "convergence iteration: %d\n", out.ConvergenceIteration)
	if out.Feasible != nil {
		fmt.Fprintf(w, "feasible: %t\n", *out.Feasible)
	}
	fmt.Fprintf(w, "evaluations: %d in %s\n", out.Evaluations, out.Elapsed)
	if out.RunID != "" {
		fmt.Fprintf(w, "run id: %s\n", out.RunID)
	}
	return nil
}

// resolveBounds returns the problem's box, replaced by the overrides when
// given. Overrides must cover every dimension.
func resolveBounds(p problem.Problem, lowerOverride, upperOverride []float64) (lower, upper []float64, err error) {
	lower, upper = p.Bounds()
	n := len(lower)

	if len(lowerOverride) > 0 {
		if len(lowerOverride) != n {
			return nil, nil, fmt.Errorf("--lower needs %d values for %s, got %d", n, p.Name(), len(lowerOverride))
		}
		lower = lowerOverride
	}
	if len(upperOverride) > 0 {
		if len(upperOverride) != n {
			return nil, nil, fmt.Errorf("--upper needs %d values for %s, got %d", n, p.Name(), len(upperOverride))
		}
		upper = upperOverride
	}
	return lower, upper, nil
}
