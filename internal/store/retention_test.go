package store

import (
	"testing"
	"time"
)

func infosAt(now time.Time, ages ...time.Duration) []RunInfo {
	infos := make([]RunInfo, len(ages))
	for i, age := range ages {
		infos[i] = RunInfo{RunID: string(rune('a' + i)), Timestamp: now.Add(-age)}
	}
	return infos
}

func ids(infos []RunInfo) map[string]bool {
	m := make(map[string]bool)
	for _, info := range infos {
		m[info.RunID] = true
	}
	return m
}

func TestSelectForDeletion_ByAge(t *testing.T) {
	now := time.Now()
	day := 24 * time.Hour
	infos := infosAt(now, 10*day, 1*day, 8*day, 2*time.Hour)

	got := ids(SelectForDeletion(infos, 0, 7*day, now))
	if len(got) != 2 || !got["a"] || !got["c"] {
		t.Errorf("Expected a and c, got %v", got)
	}
}

func TestSelectForDeletion_ByCount(t *testing.T) {
	now := time.Now()
	infos := infosAt(now, 3*time.Hour, 1*time.Hour, 5*time.Hour, 2*time.Hour)

	got := ids(SelectForDeletion(infos, 2, 0, now))
	if len(got) != 2 || !got["a"] || !got["c"] {
		t.Errorf("Expected the two oldest (a, c), got %v", got)
	}

	if got := SelectForDeletion(infos, 10, 0, now); len(got) != 0 {
		t.Errorf("Expected nothing to delete, got %v", got)
	}
}

func TestSelectForDeletion_CombinedNoDuplicates(t *testing.T) {
	now := time.Now()
	day := 24 * time.Hour
	infos := infosAt(now, 10*day, 9*day, 1*time.Hour)

	got := SelectForDeletion(infos, 1, 7*day, now)
	if len(got) != 2 {
		t.Fatalf("Expected 2 runs without duplicates, got %d: %v", len(got), got)
	}
	m := ids(got)
	if !m["a"] || !m["b"] {
		t.Errorf("Expected a and b, got %v", m)
	}
}

func TestSelectForDeletion_NoPolicy(t *testing.T) {
	now := time.Now()
	if got := SelectForDeletion(infosAt(now, time.Hour), 0, 0, now); len(got) != 0 {
		t.Errorf("Expected nothing without a policy, got %v", got)
	}
}
