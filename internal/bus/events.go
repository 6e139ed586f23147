// Package bus distributes monitoring events from sessions to observers such
// as the metrics collector. Delivery is asynchronous and per subscriber
// ordered.
package bus

import (
	"time"

	"github.com/google/uuid"

	"github.com/normanking/metamonitor/internal/cognitive/monitor"
)

// EventType names the kind of event flowing through the bus.
type EventType string

const (
	// EventThoughtAnalyzed carries the signal produced for one thought.
	EventThoughtAnalyzed EventType = "thought_analyzed"
	// EventInterventionRaised carries the record of a fired intervention.
	EventInterventionRaised EventType = "intervention_raised"
	// EventSessionReset is published after a session is reset.
	EventSessionReset EventType = "session_reset"
	// EventSessionExpired is published when the janitor drops a session.
	EventSessionExpired EventType = "session_expired"
)

// Event is a single monitoring event. Signal and Intervention are set only
// for their event types.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`

	// ThoughtIndex is set for thought and intervention events.
	ThoughtIndex int `json:"thought_index,omitempty"`

	Signal       *monitor.Signal             `json:"signal,omitempty"`
	Intervention *monitor.InterventionRecord `json:"intervention,omitempty"`

	Details string `json:"details,omitempty"`
}

// NewEvent creates an event for sessionID with a fresh ID and the current time.
func NewEvent(eventType EventType, sessionID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		SessionID: sessionID,
	}
}

// ThoughtAnalyzed builds an EventThoughtAnalyzed event.
func ThoughtAnalyzed(sessionID string, index int, sig monitor.Signal) Event {
	e := NewEvent(EventThoughtAnalyzed, sessionID)
	e.ThoughtIndex = index
	e.Signal = &sig
	return e
}

// InterventionRaised builds an EventInterventionRaised event.
func InterventionRaised(sessionID string, rec monitor.InterventionRecord) Event {
	e := NewEvent(EventInterventionRaised, sessionID)
	e.ThoughtIndex = rec.ThoughtIndex
	e.Intervention = &rec
	e.Details = rec.Reason
	return e
}
