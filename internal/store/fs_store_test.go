package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// setupTestStore creates a temporary directory and returns an FSStore for testing.
func setupTestStore(t *testing.T) (*FSStore, string) {
	t.Helper()

	tempDir := t.TempDir()
	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}

	return store, tempDir
}

// createTestRecord creates a run record with test data.
func createTestRecord(runID string) *RunRecord {
	return &RunRecord{
		RunID:                runID,
		BestScore:            6059.71,
		BestPosition:         []float64{0.8125, 0.4375, 42.09, 176.63},
		ConvergenceIteration: 812,
		Iterations:           2000,
		Evaluations:          50 * 2001,
		Elapsed:              1500 * time.Millisecond,
		Timestamp:            time.Now(),
		Config: RunConfig{
			Problem: "pressure-vessel",
			Algo:    "egwo",
			Dim:     4,
			Iters:   2000,
			PopSize: 50,
			Seed:    42,
		},
	}
}

func TestNewFSStore(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := NewFSStore(baseDir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	if store.BaseDir() != baseDir {
		t.Errorf("Expected baseDir %s, got %s", baseDir, store.BaseDir())
	}
	if _, err := os.Stat(baseDir); os.IsNotExist(err) {
		t.Fatal("Base directory was not created")
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	store, tempDir := setupTestStore(t)
	record := createTestRecord("run-1")

	if err := store.SaveRun(record); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	path := filepath.Join(tempDir, "runs", "run-1", "run.json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Run file not created at %s", path)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file should have been renamed")
	}

	loaded, err := store.LoadRun("run-1")
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}

	if loaded.RunID != record.RunID {
		t.Errorf("RunID mismatch: expected %s, got %s", record.RunID, loaded.RunID)
	}
	if loaded.BestScore != record.BestScore {
		t.Errorf("BestScore mismatch: expected %f, got %f", record.BestScore, loaded.BestScore)
	}
	if len(loaded.BestPosition) != len(record.BestPosition) {
		t.Fatalf("BestPosition length mismatch: expected %d, got %d", len(record.BestPosition), len(loaded.BestPosition))
	}
	for i := range record.BestPosition {
		if loaded.BestPosition[i] != record.BestPosition[i] {
			t.Errorf("BestPosition[%d] mismatch: expected %f, got %f", i, record.BestPosition[i], loaded.BestPosition[i])
		}
	}
	if loaded.Config != record.Config {
		t.Errorf("Config mismatch: expected %+v, got %+v", record.Config, loaded.Config)
	}
	if loaded.Elapsed != record.Elapsed {
		t.Errorf("Elapsed mismatch: expected %v, got %v", record.Elapsed, loaded.Elapsed)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("Loaded record should be valid: %v", err)
	}
}

func TestSaveRun_InvalidInput(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveRun(nil); err == nil {
		t.Error("Expected error for nil record")
	}
	if err := store.SaveRun(createTestRecord("")); err == nil {
		t.Error("Expected error for empty runID")
	}

	bad := createTestRecord("run-bad")
	bad.BestPosition = []float64{1, 2}
	err := store.SaveRun(bad)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "BestPosition" {
		t.Errorf("Expected BestPosition validation error, got %v", err)
	}
	if _, err := os.Stat(store.RunDir("run-bad")); !os.IsNotExist(err) {
		t.Error("Invalid record should not create a run directory")
	}
}

func TestSaveRun_Overwrite(t *testing.T) {
	store, _ := setupTestStore(t)

	record := createTestRecord("run-1")
	if err := store.SaveRun(record); err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	record.BestScore = 5900
	if err := store.SaveRun(record); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := store.LoadRun("run-1")
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if loaded.BestScore != 5900 {
		t.Errorf("Expected overwritten score 5900, got %f", loaded.BestScore)
	}
}

func TestLoadRun_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.LoadRun("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if err.Error() != "run not found: missing" {
		t.Errorf("Unexpected error message: %s", err.Error())
	}

	if _, err := store.LoadRun(""); err == nil {
		t.Error("Expected error for empty runID")
	}
}

func TestLoadRun_Corrupted(t *testing.T) {
	store, tempDir := setupTestStore(t)

	dir := filepath.Join(tempDir, "runs", "bad")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "run.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := store.LoadRun("bad")
	if err == nil {
		t.Fatal("Expected error for corrupted record")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("Corrupted record should not report ErrNotFound")
	}
}

func TestListRuns_Empty(t *testing.T) {
	store, _ := setupTestStore(t)

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if infos == nil || len(infos) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", infos)
	}
}

func TestListRuns_SortedAndSkipsInvalid(t *testing.T) {
	store, tempDir := setupTestStore(t)

	base := time.Now()
	for i, id := range []string{"c", "a", "b"} {
		r := createTestRecord(id)
		r.Timestamp = base.Add(time.Duration(i) * time.Minute)
		if err := store.SaveRun(r); err != nil {
			t.Fatalf("SaveRun(%s) failed: %v", id, err)
		}
	}

	// Directory without run.json, a stray file and a corrupted record.
	os.MkdirAll(filepath.Join(tempDir, "runs", "empty"), 0755)
	os.WriteFile(filepath.Join(tempDir, "runs", "stray.txt"), []byte("x"), 0644)
	os.MkdirAll(filepath.Join(tempDir, "runs", "corrupt"), 0755)
	os.WriteFile(filepath.Join(tempDir, "runs", "corrupt", "run.json"), []byte("nope"), 0644)

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}

	want := []string{"c", "a", "b"}
	if len(infos) != len(want) {
		t.Fatalf("Expected %d runs, got %d", len(want), len(infos))
	}
	for i, id := range want {
		if infos[i].RunID != id {
			t.Errorf("infos[%d] = %s, want %s", i, infos[i].RunID, id)
		}
		if infos[i].Problem != "pressure-vessel" {
			t.Errorf("infos[%d] problem = %s", i, infos[i].Problem)
		}
	}
}

func TestDeleteRun(t *testing.T) {
	store, tempDir := setupTestStore(t)

	if err := store.SaveRun(createTestRecord("run-1")); err != nil {
		t.Fatal(err)
	}
	writer, err := NewTraceWriter(tempDir, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	writeHistory(t, writer, []float64{3, 2, 1})
	writer.Close()

	if err := store.DeleteRun("run-1"); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := os.Stat(store.RunDir("run-1")); !os.IsNotExist(err) {
		t.Error("Run directory should be removed")
	}

	if err := store.DeleteRun("run-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
	if err := store.DeleteRun(""); err == nil {
		t.Error("Expected error for empty runID")
	}
}

func TestConcurrentSave(t *testing.T) {
	store, _ := setupTestStore(t)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := store.SaveRun(createTestRecord(fmt.Sprintf("run-%d", i))); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent save failed: %v", err)
	}

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 10 {
		t.Errorf("Expected 10 runs, got %d", len(infos))
	}
}

func TestRunIDOutsideRunsDir(t *testing.T) {
	store, tempDir := setupTestStore(t)

	// A record that an unchecked ID would reach through "..".
	outside := filepath.Join(tempDir, "x")
	if err := os.MkdirAll(outside, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(outside, "run.json"), []byte(`{"runId":"x"}`), 0644); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"../x", "..", ".", `..\x`, "a/b"} {
		var verr *ValidationError
		if _, err := store.LoadRun(id); !errors.As(err, &verr) || verr.Field != "RunID" {
			t.Errorf("LoadRun(%q): expected RunID validation error, got %v", id, err)
		}
		if err := store.DeleteRun(id); !errors.As(err, &verr) {
			t.Errorf("DeleteRun(%q): expected validation error, got %v", id, err)
		}
		if _, err := NewTraceReader(tempDir, id); !errors.As(err, &verr) {
			t.Errorf("NewTraceReader(%q): expected validation error, got %v", id, err)
		}
		if _, err := NewTraceWriter(tempDir, id); !errors.As(err, &verr) {
			t.Errorf("NewTraceWriter(%q): expected validation error, got %v", id, err)
		}
	}

	if _, err := os.Stat(outside); err != nil {
		t.Errorf("Directory outside the store should be untouched: %v", err)
	}
}
