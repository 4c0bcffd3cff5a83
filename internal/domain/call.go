package domain

import (
	"sync"
	"time"
)

// CallStatus constants for the lifecycle of an outbound call session.
const (
	CallStatusPending  = "pending"  // dial requested, room not yet created
	CallStatusRinging  = "ringing"  // SIP call triggered, awaiting answer
	CallStatusActive   = "active"   // callee answered
	CallStatusEnded    = "ended"    // call finished normally
	CallStatusMissed   = "missed"   // callee never answered
	CallStatusFailed   = "failed"   // setup or trigger failed
	CallStatusCanceled = "canceled" // hung up by operator before answer
)

// CallEvent names delivered by the call-control platform to the webhook endpoint.
const (
	EventCallStarted  = "call-started"
	EventCallRinging  = "call-ringing"
	EventCallAnswered = "call-answered"
	EventCallEnded    = "call-ended"
	EventCallMissed   = "call-missed"
)

// CallEventPayload is the body posted by the call-control platform
// to the inbound webhook endpoint.
type CallEventPayload struct {
	Event  string `json:"event"`
	RoomID string `json:"roomId"`
	CallID string `json:"callId"`
}

// AgentRuntime is the handle to the externally-owned voice agent attached to
// a call room. The dialer only starts it, feeds it lines to speak, and closes
// it; everything else about the agent is opaque.
type AgentRuntime interface {
	Start(roomID string) error
	Say(text string) error
	Close() error
}

// CallSession is the live state of one outbound call tracked by the registry.
// Status and CallID are written from both the webhook handler goroutine and
// the orchestrator goroutine, guarded by mu.
type CallSession struct {
	RoomID      string
	CallID      string
	WebhookID   string // empty when running degraded (webhook registration failed)
	GatewayID   string
	Destination string
	AgentName   string
	Agent       AgentRuntime
	Greeting    string
	Status      string
	StartedAt   time.Time
	AnsweredAt  time.Time

	// Ended is closed exactly once when a terminal event arrives.
	Ended   chan struct{}
	endOnce sync.Once

	answered bool
	ended    bool

	mu sync.Mutex
}

// NewCallSession builds a session in the ringing state.
func NewCallSession(roomID, webhookID, gatewayID, destination, agentName string) *CallSession {
	return &CallSession{
		RoomID:      roomID,
		WebhookID:   webhookID,
		GatewayID:   gatewayID,
		Destination: destination,
		AgentName:   agentName,
		Status:      CallStatusRinging,
		StartedAt:   time.Now(),
		Ended:       make(chan struct{}),
	}
}

// MarkAnswered transitions the session to active. It returns true only on the
// first call, so the greeting path that wins the race fires once. A session
// that has already ended stays terminal, even if a stale answered event is
// delivered late.
func (s *CallSession) MarkAnswered(callID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.answered || s.ended {
		return false
	}
	s.answered = true
	s.Status = CallStatusActive
	s.AnsweredAt = time.Now()
	if callID != "" {
		s.CallID = callID
	}
	return true
}

// MarkEnded transitions the session to a terminal status and releases anyone
// blocked on Ended. Safe to call more than once.
func (s *CallSession) MarkEnded(status string) {
	s.endOnce.Do(func() {
		s.mu.Lock()
		s.Status = status
		s.ended = true
		s.mu.Unlock()
		close(s.Ended)
	})
}

// SetCallID records the platform call id once known.
func (s *CallSession) SetCallID(callID string) {
	s.mu.Lock()
	s.CallID = callID
	s.mu.Unlock()
}

// Snapshot returns a copy of the mutable fields for read-only consumers.
func (s *CallSession) Snapshot() CallSessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CallSessionView{
		RoomID:      s.RoomID,
		CallID:      s.CallID,
		WebhookID:   s.WebhookID,
		GatewayID:   s.GatewayID,
		Destination: s.Destination,
		AgentName:   s.AgentName,
		Status:      s.Status,
		StartedAt:   s.StartedAt,
		AnsweredAt:  s.AnsweredAt,
	}
}

// CallSessionView is an immutable copy of a session used by debug endpoints
// and the event stream.
type CallSessionView struct {
	RoomID      string    `json:"room_id"`
	CallID      string    `json:"call_id,omitempty"`
	WebhookID   string    `json:"webhook_id,omitempty"`
	GatewayID   string    `json:"gateway_id"`
	Destination string    `json:"destination"`
	AgentName   string    `json:"agent_name"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	AnsweredAt  time.Time `json:"answered_at,omitempty"`
}
