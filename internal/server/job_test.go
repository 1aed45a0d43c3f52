package server

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestJobManager_CreateJob(t *testing.T) {
	jm := NewJobManager()

	config := JobConfig{
		Problem: "sphere",
		Algo:    "egwo",
		Dim:     3,
		Iters:   100,
		PopSize: 30,
		Seed:    42,
	}

	job := jm.CreateJob(config)

	if job.ID == "" {
		t.Error("Job ID should not be empty")
	}

	if job.State != StatePending {
		t.Errorf("Initial state should be pending, got %s", job.State)
	}

	if job.Config.Problem != "sphere" || job.Config.Dim != 3 {
		t.Errorf("Config not set correctly")
	}
}

func TestJobManager_GetJob(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(JobConfig{Problem: "sphere"})

	retrieved, exists := jm.GetJob(job.ID)
	if !exists {
		t.Error("Job should exist")
	}

	if retrieved.ID != job.ID {
		t.Error("Retrieved wrong job")
	}

	_, exists = jm.GetJob("nonexistent")
	if exists {
		t.Error("Should not find nonexistent job")
	}
}

func TestJobManager_GetJobReturnsSnapshot(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(JobConfig{Problem: "sphere"})

	jm.UpdateJob(job.ID, func(j *Job) {
		j.History = []float64{3, 2}
		j.BestPosition = []float64{1, 1}
	})

	snap, _ := jm.GetJob(job.ID)
	snap.History[0] = 99
	snap.BestPosition[0] = 99

	again, _ := jm.GetJob(job.ID)
	if again.History[0] != 3 || again.BestPosition[0] != 1 {
		t.Error("Modifying a snapshot should not change the stored job")
	}
}

func TestJobManager_ListJobs(t *testing.T) {
	jm := NewJobManager()

	if len(jm.ListJobs()) != 0 {
		t.Error("Should start with no jobs")
	}

	first := jm.CreateJob(JobConfig{Problem: "sphere"})
	time.Sleep(time.Millisecond)
	jm.CreateJob(JobConfig{Problem: "ackley"})

	jobs := jm.ListJobs()
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != first.ID {
		t.Error("Jobs should be listed oldest first")
	}
}

func TestJobManager_UpdateJob(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(JobConfig{Problem: "sphere"})

	err := jm.UpdateJob(job.ID, func(j *Job) {
		j.State = StateRunning
		j.Iterations = 10
		j.BestScore = 123.45
	})

	if err != nil {
		t.Errorf("Update should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateRunning {
		t.Error("State should be updated")
	}
	if updated.Iterations != 10 {
		t.Error("Iterations should be updated")
	}
	if updated.BestScore != 123.45 {
		t.Error("BestScore should be updated")
	}

	err = jm.UpdateJob("nonexistent", func(j *Job) {})
	if err == nil {
		t.Error("Update of nonexistent job should fail")
	}
}

func TestJobManager_ThreadSafety(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(JobConfig{Problem: "sphere"})

	// Simulate concurrent updates and reads
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(iteration int) {
			defer wg.Done()
			jm.UpdateJob(job.ID, func(j *Job) {
				j.Iterations = iteration
				j.History = append(j.History, float64(iteration))
			})
		}(i)
		go func() {
			defer wg.Done()
			jm.GetJob(job.ID)
			jm.ListJobs()
		}()
	}
	wg.Wait()

	updated, exists := jm.GetJob(job.ID)
	if !exists {
		t.Fatal("Job should still exist after concurrent updates")
	}
	if len(updated.History) != 10 {
		t.Errorf("Expected 10 history entries, got %d", len(updated.History))
	}
}

func TestJobManager_CancelJob(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(JobConfig{Problem: "sphere"})

	if err := jm.CancelJob("nonexistent"); err == nil {
		t.Error("Cancelling a nonexistent job should fail")
	}
	if err := jm.CancelJob(job.ID); err == nil {
		t.Error("Cancelling a job without a worker should fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	jm.setCancel(job.ID, cancel)
	if err := jm.CancelJob(job.ID); err != nil {
		t.Fatalf("CancelJob failed: %v", err)
	}
	if ctx.Err() == nil {
		t.Error("Worker context should be cancelled")
	}

	jm.UpdateJob(job.ID, func(j *Job) { j.State = StateCompleted })
	if err := jm.CancelJob(job.ID); err == nil {
		t.Error("Cancelling a finished job should fail")
	}
}

func TestNormalizeConfig(t *testing.T) {
	config := JobConfig{Iters: defaultIters}
	p, err := normalizeConfig(&config)
	if err != nil {
		t.Fatalf("Defaults should be valid: %v", err)
	}
	if p.Name() != "pressure-vessel" || config.Problem != "pressure-vessel" {
		t.Errorf("Expected pressure-vessel default, got %s", config.Problem)
	}
	if config.Algo != "egwo" || config.Iters != defaultIters || config.PopSize != defaultPopSize {
		t.Errorf("Unexpected defaults: %+v", config)
	}
	if config.Dim != 4 {
		t.Errorf("Expected dim 4, got %d", config.Dim)
	}

	tests := []struct {
		name   string
		config JobConfig
	}{
		{"unknown problem", JobConfig{Problem: "nope"}},
		{"unknown algo", JobConfig{Algo: "pso"}},
		{"tiny population", JobConfig{PopSize: 2}},
		{"too many iterations", JobConfig{Iters: maxIters + 1}},
		{"negative iterations", JobConfig{Iters: -1}},
		{"mayfly without iterations", JobConfig{Algo: "mayfly", PopSize: 20}},
		{"negative workers", JobConfig{Workers: -1}},
		{"fixed-dimension problem", JobConfig{Problem: "ackley", Dim: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := tt.config
			if _, err := normalizeConfig(&config); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestNormalizeConfig_ZeroIterations(t *testing.T) {
	config := JobConfig{Problem: "sphere", Dim: 2}
	if _, err := normalizeConfig(&config); err != nil {
		t.Fatalf("Zero iterations should be valid: %v", err)
	}
	if config.Iters != 0 {
		t.Errorf("Explicit zero iterations should be kept, got %d", config.Iters)
	}
}
