// Package queue carries campaign run jobs and progress events over
// RabbitMQ. The server publishes run jobs; the single browser worker
// consumes them one at a time and streams progress back.
package queue

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/unclebandit/linkreach-backend/internal/model"
	"github.com/unclebandit/linkreach-backend/internal/service"
)

const (
	QueueRuns     = "campaign_runs"
	QueueProgress = "campaign_progress"
)

// RunJob asks the worker for one campaign pass. Cap > 0 overrides the
// configured daily connection cap for this run only.
type RunJob struct {
	JobID       string    `json:"job_id"`
	Mode        string    `json:"mode"`
	DryRun      bool      `json:"dry_run"`
	Cap         int       `json:"cap,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewRunJob builds a job with a fresh ID.
func NewRunJob(mode string, dryRun bool, cap int) RunJob {
	return RunJob{
		JobID:       uuid.NewString(),
		Mode:        mode,
		DryRun:      dryRun,
		Cap:         cap,
		RequestedAt: time.Now().UTC(),
	}
}

// ProgressMessage is one per-profile progress event tagged with its job.
type ProgressMessage struct {
	JobID string `json:"job_id"`
	model.ProgressEvent
}

// RunPublisher is what the HTTP layer needs to enqueue work.
type RunPublisher interface {
	PublishRun(job RunJob) error
}

// Client owns one AMQP connection and channel with both queues declared.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewClient dials the broker and declares the durable queues.
func NewClient(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	for _, name := range []string{QueueRuns, QueueProgress} {
		if _, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declare queue %s: %w", name, err)
		}
	}

	return &Client{conn: conn, channel: ch}, nil
}

// Close tears down the channel and connection.
func (c *Client) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// PublishRun enqueues one run job.
func (c *Client) PublishRun(job RunJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode run job: %w", err)
	}
	err = c.channel.Publish(
		"",
		QueueRuns,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish run job: %w", err)
	}
	log.Printf("📤 Queued campaign run %s (mode=%s, dry_run=%v)", job.JobID, job.Mode, job.DryRun)
	return nil
}

// ConsumeRuns delivers run jobs one at a time. Prefetch is pinned to 1:
// a run can take hours and there is exactly one browser.
func (c *Client) ConsumeRuns() (<-chan amqp.Delivery, error) {
	if err := c.channel.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set prefetch: %w", err)
	}
	msgs, err := c.channel.Consume(
		QueueRuns,
		"",
		false, // manual ack: a crashed worker requeues the run
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("register consumer: %w", err)
	}
	return msgs, nil
}

// PublishProgress emits one progress event for a job. Failures are logged
// and swallowed: progress reporting must never fail a run.
func (c *Client) PublishProgress(jobID string, ev model.ProgressEvent) {
	body, err := json.Marshal(ProgressMessage{JobID: jobID, ProgressEvent: ev})
	if err != nil {
		log.Println("⚠️ Failed to encode progress event:", err)
		return
	}
	err = c.channel.Publish(
		"",
		QueueProgress,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		log.Println("⚠️ Failed to publish progress event:", err)
	}
}

// ProgressReporter adapts the client to the driver's Reporter for one job.
type ProgressReporter struct {
	Client *Client
	JobID  string
}

func (r *ProgressReporter) Report(ev model.ProgressEvent) {
	r.Client.PublishProgress(r.JobID, ev)
}

var _ RunPublisher = (*Client)(nil)
var _ service.Reporter = (*ProgressReporter)(nil)
