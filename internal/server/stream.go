package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// keepAliveInterval is how often an idle stream receives an SSE comment.
const keepAliveInterval = 30 * time.Second

// ProgressEvent is one server-sent event about a job.
type ProgressEvent struct {
	JobID                string    `json:"jobId"`
	State                JobState  `json:"state"`
	Iterations           int       `json:"iterations"`
	TotalIterations      int       `json:"totalIterations"`
	BestScore            float64   `json:"bestScore"`
	ConvergenceIteration int       `json:"convergenceIteration"`
	Evaluations          int       `json:"evaluations,omitempty"`
	Error                string    `json:"error,omitempty"`
	Timestamp            time.Time `json:"timestamp"`
}

func progressEventFor(job *Job) ProgressEvent {
	return ProgressEvent{
		JobID:                job.ID,
		State:                job.State,
		Iterations:           job.Iterations,
		TotalIterations:      job.Config.Iters,
		BestScore:            job.BestScore,
		ConvergenceIteration: job.ConvergenceIteration,
		Evaluations:          job.Evaluations,
		Error:                job.Error,
		Timestamp:            time.Now(),
	}
}

// eventName is the SSE event type: "progress" while the job runs, then the
// final state.
func (e ProgressEvent) eventName() string {
	if e.State.Finished() {
		return string(e.State)
	}
	return "progress"
}

// EventBroadcaster fans job progress out to stream subscribers. The latest
// event of each job is replayed to new subscribers.
type EventBroadcaster struct {
	mu     sync.Mutex
	subs   map[string]map[chan ProgressEvent]struct{}
	latest map[string]ProgressEvent
}

func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		subs:   make(map[string]map[chan ProgressEvent]struct{}),
		latest: make(map[string]ProgressEvent),
	}
}

// Subscribe registers a buffered channel for the job's events.
func (eb *EventBroadcaster) Subscribe(jobID string) chan ProgressEvent {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan ProgressEvent, 10)
	set, ok := eb.subs[jobID]
	if !ok {
		set = make(map[chan ProgressEvent]struct{})
		eb.subs[jobID] = set
	}
	set[ch] = struct{}{}

	if ev, ok := eb.latest[jobID]; ok {
		ch <- ev
	}

	slog.Debug("Stream subscribed", "job_id", jobID, "subscribers", len(set))
	return ch
}

// Unsubscribe closes ch. It is a no-op when the job was already cleaned up.
func (eb *EventBroadcaster) Unsubscribe(jobID string, ch chan ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	set, ok := eb.subs[jobID]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(eb.subs, jobID)
	}
	slog.Debug("Stream unsubscribed", "job_id", jobID)
}

// Broadcast records event as the job's latest and offers it to every
// subscriber. Subscribers whose buffer is full miss the event.
func (eb *EventBroadcaster) Broadcast(event ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.latest[event.JobID] = event
	for ch := range eb.subs[event.JobID] {
		select {
		case ch <- event:
		default:
			slog.Warn("Stream subscriber lagging, event dropped",
				"job_id", event.JobID,
				"iteration", event.Iterations,
			)
		}
	}
}

// CleanupJob closes every subscriber of a finished job and forgets its
// latest event. Buffered events stay readable until drained.
func (eb *EventBroadcaster) CleanupJob(jobID string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for ch := range eb.subs[jobID] {
		close(ch)
	}
	delete(eb.subs, jobID)
	delete(eb.latest, jobID)
}

// handleJobStream streams a job's progress as server-sent events until the
// job finishes or the client goes away.
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request, jobID string) {
	if _, exists := s.jobManager.GetJob(jobID); !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	rc := http.NewResponseController(w)

	// Subscribe before taking the snapshot: a job finishing in between
	// either shows up in the snapshot or closes the channel.
	events := s.jobManager.broadcaster.Subscribe(jobID)
	defer s.jobManager.broadcaster.Unsubscribe(jobID, events)
	job, _ := s.jobManager.GetJob(jobID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if err := writeSSEEvent(w, progressEventFor(&job)); err != nil {
		slog.Error("Failed to write stream event", "job_id", jobID, "error", err)
		return
	}
	if err := rc.Flush(); err != nil {
		slog.Error("Streaming not supported", "job_id", jobID, "error", err)
		return
	}
	if job.State.Finished() {
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			slog.Debug("Stream client disconnected", "job_id", jobID)
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Iterations < job.Iterations && !event.State.Finished() {
				// Replayed event older than the snapshot already sent.
				continue
			}
			if err := writeSSEEvent(w, event); err != nil {
				slog.Error("Failed to write stream event", "job_id", jobID, "error", err)
				return
			}
			rc.Flush()
			if event.State.Finished() {
				return
			}

		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			rc.Flush()
		}
	}
}

// writeSSEEvent writes one event with its type, the iteration as id and the
// JSON payload.
func writeSSEEvent(w http.ResponseWriter, event ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\nid: %d\ndata: %s\n\n", event.eventName(), event.Iterations, data)
	return err
}
