package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

// jobSummary mirrors the fields of the server's job JSON that status prints.
type jobSummary struct {
	ID     string `json:"id"`
	State  string `json:"state"`
	Config struct {
		Problem string `json:"problem"`
		Algo    string `json:"algo"`
		Dim     int    `json:"dim"`
		Iters   int    `json:"iters"`
		PopSize int    `json:"popSize"`
		Seed    int64  `json:"seed"`
		Workers int    `json:"workers"`
	} `json:"config"`
	BestScore            float64   `json:"bestScore"`
	BestPosition         []float64 `json:"bestPosition"`
	InitialScore         float64   `json:"initialScore"`
	Iterations           int       `json:"iterations"`
	ConvergenceIteration int       `json:"convergenceIteration"`
	Evaluations          int       `json:"evaluations"`
	Elapsed              float64   `json:"elapsed"`
	EvalsPerSecond       float64   `json:"evalsPerSecond"`
	Error                string    `json:"error"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		// List all jobs
		return listJobs(out, fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}

	// Get specific job status
	jobID := args[0]
	return getJobStatus(out, fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

func fetchJSON(url string, v interface{}) (int, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("server returned error: %s", string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func listJobs(out io.Writer, url string) error {
	var jobs []jobSummary
	if _, err := fetchJSON(url, &jobs); err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs found")
		return nil
	}

	fmt.Fprintf(out, "Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Fprintf(out, "Job ID: %s\n", job.ID)
		fmt.Fprintf(out, "  State: %s\n", job.State)
		fmt.Fprintf(out, "  Problem: %s (%s)\n", job.Config.Problem, job.Config.Algo)
		fmt.Fprintf(out, "  Progress: %d/%d iterations\n", job.Iterations, job.Config.Iters)
		if job.Iterations > 0 {
			fmt.Fprintf(out, "  Best Score: %.6f\n", job.BestScore)
		}
		fmt.Fprintln(out)
	}

	return nil
}

func getJobStatus(out io.Writer, url, jobID string) error {
	var status jobSummary
	code, err := fetchJSON(url, &status)
	if code == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return err
	}

	// Display status
	fmt.Fprintf(out, "Job: %s\n", status.ID)
	fmt.Fprintf(out, "State: %s\n", status.State)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "  Problem: %s (dim %d)\n", status.Config.Problem, status.Config.Dim)
	fmt.Fprintf(out, "  Algorithm: %s\n", status.Config.Algo)
	fmt.Fprintf(out, "  Iterations: %d\n", status.Config.Iters)
	fmt.Fprintf(out, "  Population: %d\n", status.Config.PopSize)
	fmt.Fprintf(out, "  Seed: %d\n", status.Config.Seed)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Progress:")
	fmt.Fprintf(out, "  Iterations: %d/%d\n", status.Iterations, status.Config.Iters)
	if status.Iterations > 0 {
		fmt.Fprintf(out, "  Best Score: %.6f\n", status.BestScore)
		fmt.Fprintf(out, "  Convergence Iteration: %d\n", status.ConvergenceIteration)
	}
	if status.InitialScore > 0 && status.BestScore < status.InitialScore {
		improvement := status.InitialScore - status.BestScore
		fmt.Fprintf(out, "  Improvement: %.6f (%.1f%%)\n", improvement, improvement/status.InitialScore*100)
	}
	if len(status.BestPosition) > 0 {
		fmt.Fprintf(out, "  Best Solution: %v\n", status.BestPosition)
	}

	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Fprintf(out, "  Elapsed: %s\n", elapsed.Round(time.Millisecond))

	if status.EvalsPerSecond > 0 {
		fmt.Fprintf(out, "  Throughput: %.0f evaluations/sec\n", status.EvalsPerSecond)
	}

	if status.Error != "" {
		fmt.Fprintf(out, "\nError: %s\n", status.Error)
	}

	return nil
}
