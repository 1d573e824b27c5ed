// internal/model/run.go
package model

import "time"

// Campaign run modes.
const (
	ModeConnect = "connect"
	ModeMessage = "message"
	ModeBoth    = "both"
)

// Per-profile outcomes reported by the action executor.
const (
	OutcomeRequestSent      = "request_sent"
	OutcomeAlreadyPending   = "already_pending"
	OutcomeAlreadyConnected = "already_connected"
	OutcomeMessaged         = "messaged"
	OutcomeNotConnected     = "not_connected"
	OutcomeSkipped          = "skipped"
	OutcomeError            = "error"
	OutcomeCapReached       = "cap_reached"
	OutcomeDryRunPreview    = "dry_run_preview"
)

// ProgressEvent is emitted after every processed profile. The presentation
// layer (console, web progress view, AMQP consumer) decides how to render it.
type ProgressEvent struct {
	URL       string    `json:"url"`
	Outcome   string    `json:"outcome"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// RunSummary holds the per-session tallies. Ephemeral: owned by the campaign
// driver, never persisted.
type RunSummary struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}
