package event

import (
	"time"
)

// EventType represents the type of event
type EventType string

// Call lifecycle events
const (
	// Session lifecycle
	SessionCreated  EventType = "session.created"
	SessionDegraded EventType = "session.degraded"
	SessionCleaned  EventType = "session.cleaned"

	// Call progress
	CallTriggered EventType = "call.triggered"
	CallStarted   EventType = "call.started"
	CallAnswered  EventType = "call.answered"
	CallEnded     EventType = "call.ended"
	CallMissed    EventType = "call.missed"
	CallFailed    EventType = "call.failed"

	// Agent runtime
	AgentStarted  EventType = "agent.started"
	AgentGreeting EventType = "agent.greeting_sent"
	AgentStopped  EventType = "agent.stopped"
)

// CallEvent represents a call-lifecycle event flowing through the bus
type CallEvent struct {
	Type      EventType   `json:"type"`
	RoomID    string      `json:"room_id"`
	CallID    string      `json:"call_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     error       `json:"error,omitempty"`
}

// SessionEventData carries session details for stream consumers
type SessionEventData struct {
	RoomID      string `json:"room_id"`
	CallID      string `json:"call_id,omitempty"`
	GatewayID   string `json:"gateway_id,omitempty"`
	Destination string `json:"destination,omitempty"`
	AgentName   string `json:"agent_name,omitempty"`
	Status      string `json:"status,omitempty"`
	Stage       string `json:"stage,omitempty"`
}

// NewCallEvent creates a new call event with current timestamp
func NewCallEvent(eventType EventType, roomID string) *CallEvent {
	return &CallEvent{
		Type:      eventType,
		RoomID:    roomID,
		Timestamp: time.Now(),
	}
}
