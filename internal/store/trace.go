package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cwbudde/egwo/internal/egwo"
)

// TraceEntry is one line of trace.jsonl: the pack after an iteration.
type TraceEntry struct {
	Iteration int     `json:"iteration"` // 1-based
	Score     float64 `json:"score"`     // global best so far

	// Leader scores after the iteration. Zero when the trace was written
	// from a bare history.
	Alpha float64 `json:"alpha,omitempty"`
	Beta  float64 `json:"beta,omitempty"`
	Delta float64 `json:"delta,omitempty"`

	Sigma     float64   `json:"sigma,omitempty"`
	Improved  bool      `json:"improved,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EntryFromStats converts optimizer progress into a trace entry.
func EntryFromStats(stats egwo.IterationStats) TraceEntry {
	return TraceEntry{
		Iteration: stats.Iteration,
		Score:     stats.BestScore,
		Alpha:     stats.Alpha,
		Beta:      stats.Beta,
		Delta:     stats.Delta,
		Sigma:     stats.Sigma,
		Improved:  stats.Improved,
		Timestamp: time.Now(),
	}
}

// TracePath returns <baseDir>/runs/<runID>/trace.jsonl.
func TracePath(baseDir, runID string) string {
	return filepath.Join(RunDir(baseDir, runID), "trace.jsonl")
}

// CurvePath returns <baseDir>/runs/<runID>/curve.png, the default location
// of a rendered convergence curve.
func CurvePath(baseDir, runID string) string {
	return filepath.Join(RunDir(baseDir, runID), "curve.png")
}

// ErrTraceOrder is returned when entries are not written in strictly
// increasing iteration order.
var ErrTraceOrder = errors.New("trace entries out of order")

// TraceWriter writes a run's trace as JSON lines. It is safe for concurrent
// use; entries must arrive with increasing iteration numbers.
type TraceWriter struct {
	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	enc    *json.Encoder
	path   string
	last   int
	closed bool
}

// NewTraceWriter creates (or truncates) the trace file of a run.
func NewTraceWriter(baseDir, runID string) (*TraceWriter, error) {
	if err := ValidateRunID(runID); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(RunDir(baseDir, runID), 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	path := TracePath(baseDir, runID)
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	buf := bufio.NewWriterSize(file, 64*1024)
	return &TraceWriter{
		file: file,
		buf:  buf,
		enc:  json.NewEncoder(buf),
		path: path,
	}, nil
}

// Write buffers one entry. It is written to disk on Flush or Close.
func (tw *TraceWriter) Write(entry TraceEntry) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return fmt.Errorf("trace %s is closed", tw.path)
	}
	if entry.Iteration <= tw.last {
		return fmt.Errorf("%w: iteration %d after %d", ErrTraceOrder, entry.Iteration, tw.last)
	}
	if err := tw.enc.Encode(entry); err != nil {
		return fmt.Errorf("failed to write trace entry %d: %w", entry.Iteration, err)
	}
	tw.last = entry.Iteration
	return nil
}

// Flush writes buffered entries and syncs the file.
func (tw *TraceWriter) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return nil
	}
	if err := tw.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush trace: %w", err)
	}
	if err := tw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync trace: %w", err)
	}
	return nil
}

// Close flushes and closes the file. Further calls do nothing.
func (tw *TraceWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return nil
	}
	tw.closed = true

	flushErr := tw.buf.Flush()
	closeErr := tw.file.Close()
	if flushErr != nil {
		return fmt.Errorf("failed to flush trace on close: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close trace: %w", closeErr)
	}
	return nil
}

// Path returns the trace file path.
func (tw *TraceWriter) Path() string {
	return tw.path
}

// TraceReader reads a trace back entry by entry.
type TraceReader struct {
	file    *os.File
	scanner *bufio.Scanner
	line    int
}

// NewTraceReader opens the trace of a run.
func NewTraceReader(baseDir, runID string) (*TraceReader, error) {
	if err := ValidateRunID(runID); err != nil {
		return nil, err
	}
	file, err := os.Open(TracePath(baseDir, runID))
	if os.IsNotExist(err) {
		return nil, &NotFoundError{RunID: runID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &TraceReader{file: file, scanner: scanner}, nil
}

// Read returns the next entry, or io.EOF after the last one.
func (tr *TraceReader) Read() (TraceEntry, error) {
	var entry TraceEntry
	if !tr.scanner.Scan() {
		if err := tr.scanner.Err(); err != nil {
			return entry, fmt.Errorf("failed to read trace line %d: %w", tr.line+1, err)
		}
		return entry, io.EOF
	}
	tr.line++

	if err := json.Unmarshal(tr.scanner.Bytes(), &entry); err != nil {
		return entry, fmt.Errorf("failed to decode trace line %d: %w", tr.line, err)
	}
	return entry, nil
}

// ReadAll returns every remaining entry.
func (tr *TraceReader) ReadAll() ([]TraceEntry, error) {
	entries := []TraceEntry{}
	for {
		entry, err := tr.Read()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
}

// Close closes the trace file.
func (tr *TraceReader) Close() error {
	return tr.file.Close()
}

// LoadHistory reads a run's trace back into a convergence history.
func LoadHistory(baseDir, runID string) ([]float64, error) {
	reader, err := NewTraceReader(baseDir, runID)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return HistoryFromTrace(entries)
}

// HistoryFromTrace extracts the best scores. Entries must cover iterations
// 1..n without gaps, as a completed run writes them.
func HistoryFromTrace(entries []TraceEntry) ([]float64, error) {
	history := make([]float64, len(entries))
	for i, e := range entries {
		if e.Iteration != i+1 {
			return nil, fmt.Errorf("trace entry %d has iteration %d, want %d", i, e.Iteration, i+1)
		}
		history[i] = e.Score
	}
	return history, nil
}
