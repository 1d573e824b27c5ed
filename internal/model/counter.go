// internal/model/counter.go
package model

// Daily counter kinds. One row per calendar date tracks both.
const (
	CounterConnections = "connections_sent"
	CounterMessages    = "messages_sent"
)

// DailyStat is one day's worth of counters, for the status dashboard.
type DailyStat struct {
	Date            string `db:"date" json:"date"`
	ConnectionsSent int    `db:"connections_sent" json:"connections_sent"`
	MessagesSent    int    `db:"messages_sent" json:"messages_sent"`
}
