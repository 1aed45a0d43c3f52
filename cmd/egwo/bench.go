package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/egwo/internal/bench"
	"github.com/cwbudde/egwo/internal/opt"
	"github.com/cwbudde/egwo/internal/problem"
)

var (
	benchProblem  string
	benchAlgos    []string
	benchDim      int
	benchIters    []int
	benchPop      int
	benchRuns     int
	benchSeed     int64
	benchParallel int
	benchJSON     bool
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Summarize best scores over many seeds",
	Long: `Runs each algorithm once per seed at every iteration count and prints the
mean, standard deviation, median and range of the best scores.`,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().StringVar(&benchProblem, "problem", "pressure-vessel", "Problem to minimize")
	benchCmd.Flags().StringSliceVar(&benchAlgos, "algo", []string{"egwo"}, "Algorithms to compare")
	benchCmd.Flags().IntVar(&benchDim, "dim", 0, "Dimension for n-dimensional problems (0 = problem default)")
	benchCmd.Flags().IntSliceVar(&benchIters, "iters", []int{200, 2000}, "Iteration counts to compare")
	benchCmd.Flags().IntVar(&benchPop, "pop", 50, "Population size")
	benchCmd.Flags().IntVar(&benchRuns, "runs", 30, "Runs (seeds) per setting")
	benchCmd.Flags().Int64Var(&benchSeed, "seed", 1, "First seed; runs use consecutive seeds")
	benchCmd.Flags().IntVar(&benchParallel, "parallel", runtime.NumCPU(), "Concurrent runs")
	benchCmd.Flags().BoolVar(&benchJSON, "json", false, "Print summaries as JSON")

	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchRuns <= 0 {
		return fmt.Errorf("--runs must be positive")
	}
	prob, err := problem.Lookup(benchProblem, benchDim)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	seeds := bench.Seeds(benchSeed, benchRuns)
	var summaries []*bench.Summary
	for _, a := range benchAlgos {
		out, err := bench.Compare(ctx, prob, a, opt.Settings{PopSize: benchPop}, benchIters, seeds, benchParallel)
		if err != nil {
			return fmt.Errorf("%s: %w", a, err)
		}
		summaries = append(summaries, out...)
	}

	return printSummaries(cmd.OutOrStdout(), summaries, benchJSON)
}

func printSummaries(out io.Writer, summaries []*bench.Summary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROBLEM\tALGO\tITERS\tRUNS\tFEASIBLE\tMEAN\tSTD DEV\tMEDIAN\tMIN\tMAX\tCONV ITER")
	fmt.Fprintln(w, "-------\t----\t-----\t----\t--------\t----\t-------\t------\t---\t---\t---------")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.6g\t%.3g\t%.6g\t%.6g\t%.6g\t%.1f\n",
			s.Problem, s.Algo, s.Iters, s.Runs, s.Feasible,
			s.Mean, s.StdDev, s.Median, s.Min, s.Max,
			s.MeanConvergenceIteration,
		)
	}
	return w.Flush()
}
