package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/egwo/internal/problem"
)

var problemsCmd = &cobra.Command{
	Use:   "problems",
	Short: "List the built-in problems",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDIM\tLOWER\tUPPER\tOPTIMUM")
		fmt.Fprintln(w, "----\t---\t-----\t-----\t-------")

		for _, name := range problem.Names() {
			p, err := problem.Lookup(name, 0)
			if err != nil {
				return err
			}
			lower, upper := p.Bounds()

			optimum := "unknown"
			if k, ok := p.(problem.KnownOptimum); ok {
				optimum = fmt.Sprintf("%g", k.Optimum())
			}
			fmt.Fprintf(w, "%s\t%d\t%v\t%v\t%s\n", name, len(lower), lower, upper, optimum)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(problemsCmd)
}
