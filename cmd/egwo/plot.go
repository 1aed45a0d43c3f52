package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/egwo/internal/plot"
	"github.com/cwbudde/egwo/internal/store"
)

var (
	plotOut  string
	plotLogY bool
)

var plotCmd = &cobra.Command{
	Use:   "plot <run-id>",
	Short: "Render the convergence curve of a saved run",
	Long: `Reads the trace of a run saved with 'egwo run --save' and draws the global
best score against the iteration number.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlot,
}

func init() {
	plotCmd.Flags().StringVarP(&plotOut, "out", "o", "", "Output file (default <data-dir>/runs/<run-id>/curve.png)")
	plotCmd.Flags().BoolVar(&plotLogY, "log-y", false, "Use a logarithmic score axis")

	rootCmd.AddCommand(plotCmd)
}

func runPlot(cmd *cobra.Command, args []string) error {
	runID := args[0]

	fsStore, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create run store: %w", err)
	}
	record, err := fsStore.LoadRun(runID)
	if err != nil {
		return err
	}

	history, err := store.LoadHistory(dataDir, runID)
	if err != nil {
		return fmt.Errorf("failed to load trace: %w", err)
	}

	out := plotOut
	if out == "" {
		out = store.CurvePath(dataDir, runID)
	}

	title := fmt.Sprintf("Convergence curve (%s, %s)", record.Config.Problem, record.Config.Algo)
	if err := plot.Save(history, plot.Options{Title: title, LogY: plotLogY}, out); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d iterations, best %.6f)\n", out, len(history), record.BestScore)
	return nil
}
