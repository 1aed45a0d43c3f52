package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cwbudde/egwo/internal/server"
)

func TestListJobsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	if err := listJobs(&buf, srv.URL+"/api/v1/jobs"); err != nil {
		t.Fatalf("listJobs failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No jobs found") {
		t.Errorf("Expected empty listing, got %q", buf.String())
	}
}

func TestGetJobStatusNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Job not found", http.StatusNotFound)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	err := getJobStatus(&buf, srv.URL+"/api/v1/jobs/missing/status", "missing")
	if err == nil || !strings.Contains(err.Error(), "job not found: missing") {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestStatusAgainstServer(t *testing.T) {
	s := server.NewServer(":0", nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	body := `{"problem":"sphere","dim":2,"iters":10,"popSize":5,"seed":3}`
	resp, err := http.Post(srv.URL+"/api/v1/jobs", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}

	var list bytes.Buffer
	if err := listJobs(&list, srv.URL+"/api/v1/jobs"); err != nil {
		t.Fatalf("listJobs failed: %v", err)
	}
	if !strings.Contains(list.String(), "Found 1 job(s)") {
		t.Errorf("Expected one job, got %q", list.String())
	}
	if !strings.Contains(list.String(), "Problem: sphere (egwo)") {
		t.Errorf("Expected problem line, got %q", list.String())
	}
}
