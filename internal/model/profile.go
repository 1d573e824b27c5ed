// internal/model/profile.go
package model

import "time"

// Profile statuses. Transitions only move forward along the campaign
// lifecycle; "error" may be manually reset to "pending", "skipped" is terminal.
const (
	StatusPending     = "pending"
	StatusRequestSent = "request_sent"
	StatusConnected   = "connected"
	StatusMessaged    = "messaged"
	StatusSkipped     = "skipped"
	StatusError       = "error"
	StatusCapReached  = "cap_reached"
)

// AllStatuses lists every status tracked in summaries.
var AllStatuses = []string{
	StatusPending,
	StatusRequestSent,
	StatusConnected,
	StatusMessaged,
	StatusSkipped,
	StatusError,
	StatusCapReached,
}

type Profile struct {
	ID        int       `db:"id" json:"id"`
	URL       string    `db:"url" json:"url"`
	Name      *string   `db:"name" json:"name,omitempty"`
	Status    string    `db:"status" json:"status"`
	ErrorMsg  *string   `db:"error_msg" json:"error_msg,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// URLRow is one validated row produced by the spreadsheet input adapter.
type URLRow struct {
	URL string `json:"url"`
	Row int    `json:"row"`
}

// ImportResult reports how a bulk URL import went.
type ImportResult struct {
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
	Total      int `json:"total"`
}
