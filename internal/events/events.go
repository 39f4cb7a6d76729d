package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alfredjeanlab/flowboard/internal/model"
)

// Event topic constants
const (
	TopicIssuesImported     = "flowboard.issues.imported"
	TopicActiveWorkComputed = "flowboard.activework.computed"
	TopicCompletedComputed  = "flowboard.completed.computed"
	TopicSettingsUpdated    = "flowboard.settings.updated"

	// TopicAll matches every flowboard subject.
	TopicAll = "flowboard.>"
)

// Event types

type IssuesImported struct {
	ProfileID string `json:"profile_id"`
	QueryID   string `json:"query_id"`
	Count     int    `json:"count"`
}

type ActiveWorkComputed struct {
	ProfileID string  `json:"profile_id"`
	QueryID   string  `json:"query_id"`
	Query     string  `json:"query,omitempty"`
	Epics     int     `json:"epics"`
	ThisWeek  int     `json:"this_week"`
	LastWeek  int     `json:"last_week"`
	Blocked   int     `json:"blocked"`
	AvgPct    float64 `json:"avg_completion_pct"`
}

type CompletedComputed struct {
	ProfileID   string  `json:"profile_id"`
	QueryID     string  `json:"query_id"`
	Weeks       int     `json:"weeks"`
	TotalIssues int     `json:"total_issues"`
	TotalPoints float64 `json:"total_points"`
}

type SettingsUpdated struct {
	Settings model.AppSettings `json:"settings"`
}

// Envelope is the wire form of every published event.
type Envelope struct {
	Topic     string          `json:"topic"`
	EmittedAt time.Time       `json:"emitted_at"`
	Data      json.RawMessage `json:"data"`
}

// NewEnvelope wraps event for topic.
func NewEnvelope(topic string, event any, at time.Time) (*Envelope, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshaling event: %w", err)
	}
	return &Envelope{Topic: topic, EmittedAt: at.UTC(), Data: data}, nil
}

// DecodeEnvelope parses a raw payload received from a Subscriber.
func DecodeEnvelope(payload []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decoding event envelope: %w", err)
	}
	return &env, nil
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
