package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/egwo/internal/egwo"
	"github.com/cwbudde/egwo/internal/opt"
	"github.com/cwbudde/egwo/internal/problem"
	"github.com/cwbudde/egwo/internal/store"
)

// progressInterval throttles SSE progress events.
const progressInterval = 500 * time.Millisecond

// dirStore is implemented by stores that keep per-run artifacts on disk.
type dirStore interface {
	BaseDir() string
}

// runJob executes an optimization job in the background.
// If runStore is not nil the finished run is saved to it, and stores with a
// base directory also receive a trace.jsonl of per-iteration best scores.
func runJob(ctx context.Context, jm *JobManager, runStore store.Store, jobID string) error {
	// Get the job
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	jm.setCancel(jobID, cancel)
	defer jm.clearCancel(jobID)

	// Update state to running
	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
		j.StartTime = time.Now()
	})
	if err != nil {
		return err
	}
	jm.metrics.started()

	slog.Info("Starting job",
		"job_id", jobID,
		"problem", job.Config.Problem,
		"algo", job.Config.Algo,
		"iters", job.Config.Iters,
		"pop", job.Config.PopSize,
	)

	prob, err := problem.Lookup(job.Config.Problem, job.Config.Dim)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	lower, upper := prob.Bounds()

	var trace *store.TraceWriter
	if ds, ok := runStore.(dirStore); ok {
		trace, err = store.NewTraceWriter(ds.BaseDir(), jobID)
		if err != nil {
			slog.Warn("Trace disabled", "job_id", jobID, "error", err)
			trace = nil
		} else {
			defer trace.Close()
		}
	}

	traceFailed := false
	observer := func(stats egwo.IterationStats) {
		jm.UpdateJob(jobID, func(j *Job) {
			j.Iterations = stats.Iteration
			j.BestScore = stats.BestScore
			if stats.Improved {
				j.ConvergenceIteration = stats.Iteration
			}
			j.History = append(j.History, stats.BestScore)
		})

		if trace != nil && !traceFailed {
			if err := trace.Write(store.EntryFromStats(stats)); err != nil {
				slog.Warn("Failed to write trace entry", "job_id", jobID, "error", err)
				traceFailed = true
			}
		}
	}

	optimizer, err := opt.New(job.Config.Algo, opt.Settings{
		Iters:   job.Config.Iters,
		PopSize: job.Config.PopSize,
		Seed:    job.Config.Seed,
		Workers: job.Config.Workers,
	}, observer)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	// Start progress monitoring goroutine
	progressDone := make(chan struct{})
	progressStopped := make(chan struct{})
	go func() {
		defer close(progressStopped)
		monitorProgress(ctx, jm, jobID, trace, progressDone)
	}()

	start := time.Now()
	result, err := optimizer.Run(ctx, prob.Eval, lower, upper)
	close(progressDone)
	<-progressStopped
	elapsed := time.Since(start)

	if err != nil {
		if trace != nil {
			trace.Close()
			if rmErr := runStore.DeleteRun(jobID); rmErr != nil {
				slog.Warn("Failed to remove partial run", "job_id", jobID, "error", rmErr)
			}
		}
		if ctx.Err() != nil {
			markJobCancelled(jm, jobID)
		} else {
			markJobFailed(jm, jobID, err)
		}
		return err
	}

	// Update job with results
	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.BestPosition = result.BestPosition
		j.BestScore = result.BestScore
		j.InitialScore = result.InitialScore
		j.ConvergenceIteration = result.ConvergenceIteration
		j.Evaluations = result.Evaluations
		if result.History != nil {
			j.History = result.History
			j.Iterations = len(result.History)
		} else {
			j.Iterations = job.Config.Iters
		}
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}
	jm.metrics.completed(job.Config, result.BestScore, result.Evaluations, elapsed)

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"best_score", result.BestScore,
		"convergence_iteration", result.ConvergenceIteration,
		"evals_per_second", float64(result.Evaluations)/elapsed.Seconds(),
	)

	if runStore != nil {
		record := store.NewRunRecord(jobID, job.Config, result, elapsed)
		if err := runStore.SaveRun(record); err != nil {
			// The job itself succeeded; only persistence failed.
			slog.Error("Failed to save run", "job_id", jobID, "error", err)
		}
	}

	broadcastState(jm, jobID)
	return nil
}

// monitorProgress periodically broadcasts progress events during optimization
// and flushes the trace, so a running job's trace can be read from disk.
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, trace *store.TraceWriter, done chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			broadcastState(jm, jobID)
			if trace != nil {
				if err := trace.Flush(); err != nil {
					slog.Warn("Failed to flush trace", "job_id", jobID, "error", err)
				}
			}
		}
	}
}

// broadcastState sends the job's current state to stream subscribers. The
// final event of a job also releases its subscribers.
func broadcastState(jm *JobManager, jobID string) {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return
	}
	jm.broadcaster.Broadcast(progressEventFor(&job))
	if job.State.Finished() {
		jm.broadcaster.CleanupJob(jobID)
	}
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	jm.metrics.finished(StateFailed)
	broadcastState(jm, jobID)
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	jm.metrics.finished(StateCancelled)
	broadcastState(jm, jobID)
	slog.Info("Job cancelled", "job_id", jobID)
}
