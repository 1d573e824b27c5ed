// internal/queue/queue_test.go
package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/unclebandit/linkreach-backend/internal/model"
)

func TestNewRunJob(t *testing.T) {
	job := NewRunJob(model.ModeConnect, true, 5)
	if job.JobID == "" {
		t.Error("Expected a generated job ID")
	}
	if job.Mode != model.ModeConnect || !job.DryRun || job.Cap != 5 {
		t.Errorf("Unexpected job fields: %+v", job)
	}
	if job.RequestedAt.IsZero() {
		t.Error("Expected a request timestamp")
	}

	other := NewRunJob(model.ModeConnect, true, 0)
	if other.JobID == job.JobID {
		t.Error("Job IDs must be unique")
	}
}

func TestRunJobWireFormat(t *testing.T) {
	job := NewRunJob(model.ModeBoth, false, 0)
	body, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded RunJob
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.JobID != job.JobID || decoded.Mode != job.Mode || decoded.DryRun != job.DryRun {
		t.Errorf("Round trip mismatch: %+v vs %+v", decoded, job)
	}
}

func TestProgressMessageFlattensEvent(t *testing.T) {
	msg := ProgressMessage{
		JobID: "job-1",
		ProgressEvent: model.ProgressEvent{
			URL:       "https://www.linkedin.com/in/alice/",
			Outcome:   model.OutcomeRequestSent,
			Status:    model.StatusRequestSent,
			Timestamp: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	// Consumers expect a flat object, not a nested event.
	for _, key := range []string{"job_id", "url", "outcome", "status", "timestamp"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("Expected top-level key %q in %s", key, body)
		}
	}
}
