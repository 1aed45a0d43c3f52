package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwbudde/egwo/internal/plot"
	"github.com/cwbudde/egwo/internal/store"
)

// Server serves optimization jobs, stored runs and metrics over HTTP.
type Server struct {
	jobManager *JobManager
	store      store.Store
	registry   *prometheus.Registry
	addr       string
	server     *http.Server

	// jobsCtx is the parent of every job; Shutdown cancels it.
	jobsCtx    context.Context
	cancelJobs context.CancelFunc
}

// NewServer creates a new HTTP server. runStore may be nil, in which case
// finished runs are kept in memory only.
func NewServer(addr string, runStore store.Store) *Server {
	registry := prometheus.NewRegistry()
	jm := NewJobManager()
	jm.metrics = newMetrics(registry)

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		jobManager: jm,
		store:      runStore,
		registry:   registry,
		addr:       addr,
		jobsCtx:    ctx,
		cancelJobs: cancel,
	}
}

// Handler returns the server's routes wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/jobs", s.handleCreateJob)
	mux.HandleFunc("GET /api/v1/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/v1/jobs/{id}", s.withJob(s.handleGetJobStatus))
	mux.HandleFunc("GET /api/v1/jobs/{id}/status", s.withJob(s.handleGetJobStatus))
	mux.HandleFunc("GET /api/v1/jobs/{id}/history", s.withJob(s.handleGetJobHistory))
	mux.HandleFunc("GET /api/v1/jobs/{id}/curve.png", s.withJob(s.handleGetJobCurve))
	mux.HandleFunc("GET /api/v1/jobs/{id}/stream", func(w http.ResponseWriter, r *http.Request) {
		s.handleJobStream(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("POST /api/v1/jobs/{id}/cancel", s.handleCancelJob)

	mux.HandleFunc("GET /api/v1/runs", s.requireStore(s.handleListRuns))
	mux.HandleFunc("GET /api/v1/runs/{id}", s.requireStore(s.handleGetRun))
	mux.HandleFunc("GET /api/v1/runs/{id}/curve.png", s.requireStore(s.handleGetRunCurve))

	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return loggingMiddleware(corsMiddleware(mux))
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown cancels running jobs and gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server", "running_jobs", len(s.jobManager.GetRunningJobs()))
	s.cancelJobs()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// withJob resolves the {id} path value to a job snapshot, answering 404 for
// unknown jobs.
func (s *Server) withJob(next func(http.ResponseWriter, *http.Request, Job)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := s.jobManager.GetJob(r.PathValue("id"))
		if !ok {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		next(w, r, job)
	}
}

// requireStore answers 503 when the server runs without a run store.
func (s *Server) requireStore(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil {
			http.Error(w, "No run store configured", http.StatusServiceUnavailable)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	config := newJobConfig()
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	if _, err := normalizeConfig(&config); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := s.jobManager.CreateJob(config)
	go runJob(s.jobsCtx, s.jobManager, s.store, job.ID)

	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobManager.ListJobs())
}

// jobStatus is a job with derived timing figures.
type jobStatus struct {
	Job
	Elapsed        float64 `json:"elapsed"` // seconds
	EvalsPerSecond float64 `json:"evalsPerSecond"`
}

func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request, job Job) {
	status := jobStatus{Job: job, Elapsed: job.Elapsed().Seconds()}
	if status.Elapsed > 0 {
		status.EvalsPerSecond = float64(job.Evaluations) / status.Elapsed
	}
	writeJSON(w, http.StatusOK, status)
}

// jobHistory is the convergence history of a job, one best score per
// completed iteration.
type jobHistory struct {
	ID                   string    `json:"id"`
	State                JobState  `json:"state"`
	ConvergenceIteration int       `json:"convergenceIteration"`
	History              []float64 `json:"history"`
}

func (s *Server) handleGetJobHistory(w http.ResponseWriter, r *http.Request, job Job) {
	history := job.History
	if history == nil {
		history = []float64{}
	}
	writeJSON(w, http.StatusOK, jobHistory{
		ID:                   job.ID,
		State:                job.State,
		ConvergenceIteration: job.ConvergenceIteration,
		History:              history,
	})
}

func (s *Server) handleGetJobCurve(w http.ResponseWriter, r *http.Request, job Job) {
	if len(job.History) == 0 {
		http.Error(w, "No history yet", http.StatusNotFound)
		return
	}
	writeCurve(w, job.History, job.Config)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if _, exists := s.jobManager.GetJob(jobID); !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if err := s.jobManager.CancelJob(jobID); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	infos, err := s.store.ListRuns()
	if err != nil {
		slog.Error("Failed to list runs", "error", err)
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if record, ok := s.loadRun(w, r.PathValue("id")); ok {
		writeJSON(w, http.StatusOK, record)
	}
}

func (s *Server) handleGetRunCurve(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	record, ok := s.loadRun(w, runID)
	if !ok {
		return
	}

	ds, ok := s.store.(dirStore)
	if !ok {
		http.Error(w, "Store keeps no traces", http.StatusNotFound)
		return
	}
	history, err := store.LoadHistory(ds.BaseDir(), runID)
	if err != nil || len(history) == 0 {
		http.Error(w, "No trace for run", http.StatusNotFound)
		return
	}
	writeCurve(w, history, record.Config)
}

// loadRun fetches a stored run, writing the error response itself when it
// cannot.
func (s *Server) loadRun(w http.ResponseWriter, runID string) (*store.RunRecord, bool) {
	record, err := s.store.LoadRun(runID)
	var verr *store.ValidationError
	if errors.As(err, &verr) {
		http.Error(w, "Invalid run ID", http.StatusBadRequest)
		return nil, false
	}
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		slog.Error("Failed to load run", "run_id", runID, "error", err)
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		return nil, false
	}
	return record, true
}

// writeCurve renders a convergence curve as PNG.
func writeCurve(w http.ResponseWriter, history []float64, config JobConfig) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")

	title := fmt.Sprintf("Convergence curve (%s, %s)", config.Problem, config.Algo)
	if err := plot.Write(w, history, plot.Options{Title: title}, "png"); err != nil {
		slog.Error("Failed to render curve", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer, which
// event streams need for flushing.
func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
