// Package monitor streams predicate evaluations to live clients
// over WebSocket and keeps running statistics.
package monitor

import (
	"time"

	"github.com/google/uuid"

	"digital.vasic.predicates/pkg/predicate"
)

// EventType represents the type of evaluation event.
type EventType string

const (
	// EventEvaluated is emitted after a predicate ran.
	EventEvaluated EventType = "evaluated"
	// EventMiss is emitted when the predicate name is unknown.
	EventMiss EventType = "miss"
)

// Event describes one evaluation seen by the collector.
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Predicate string        `json:"predicate"`
	Passed    bool          `json:"passed"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	Timestamp time.Time     `json:"timestamp"`
}

// EventFromResult converts an evaluation result into an Event
// with a fresh ID.
func EventFromResult(r predicate.Result) Event {
	typ := EventEvaluated
	if r.Error != "" {
		typ = EventMiss
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Predicate: r.Predicate,
		Passed:    r.Passed,
		Error:     r.Error,
		Duration:  time.Duration(r.DurationNs),
		Timestamp: time.Now(),
	}
}
