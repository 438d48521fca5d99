package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
)

// Subjects for analysis lifecycle events. WebSocket clients subscribe to the
// wildcard to follow runs live.
const (
	SubjectPrefix       = "terrain.analysis."
	SubjectAllAnalyses  = "terrain.analysis.>"
	subjectRunStarted   = "started"
	subjectRunProgress  = "progress"
	subjectRunCompleted = "completed"
	subjectRunFailed    = "failed"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure the stream exists
	cfg := nats.StreamConfig{
		Name:      "TERRAIN_ANALYSES",
		Subjects:  []string{SubjectAllAnalyses},
		Retention: nats.InterestPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist — try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// runEvent is the wire shape of every lifecycle message.
type runEvent struct {
	RunID     string    `json:"run_id"`
	Event     string    `json:"event"`
	Status    string    `json:"status,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Percent   int       `json:"percent,omitempty"`
	Sites     int       `json:"candidate_count,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (p *Publisher) publish(runID, event string, e runEvent) error {
	e.RunID = runID
	e.Event = event
	e.Timestamp = time.Now().UTC()
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectPrefix+runID+"."+event, data)
	return err
}

func (p *Publisher) PublishRunStarted(ctx context.Context, run *domain.AnalysisRun) error {
	return p.publish(run.ID, subjectRunStarted, runEvent{Status: string(run.Status)})
}

func (p *Publisher) PublishRunProgress(ctx context.Context, runID, stage string, percent int) error {
	return p.publish(runID, subjectRunProgress, runEvent{Stage: stage, Percent: percent})
}

func (p *Publisher) PublishRunCompleted(ctx context.Context, run *domain.AnalysisRun) error {
	return p.publish(run.ID, subjectRunCompleted, runEvent{
		Status: string(run.Status),
		Sites:  run.CandidateCount,
	})
}

func (p *Publisher) PublishRunFailed(ctx context.Context, runID, errMsg string) error {
	return p.publish(runID, subjectRunFailed, runEvent{
		Status: string(domain.RunFailed),
		Error:  errMsg,
	})
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
