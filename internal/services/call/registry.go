package call

import (
	"sync"

	"github.com/ClareAI/astra-dialer-service/internal/domain"
	"github.com/ClareAI/astra-dialer-service/pkg/logger"
	"go.uber.org/zap"
)

// SessionRegistry tracks live call sessions keyed by room id. All access
// goes through one mutex; values are only handed out as pointers so the
// session's own lock covers field mutation.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*domain.CallSession
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*domain.CallSession),
	}
}

// Add registers a session under its room id, replacing any stale entry.
func (r *SessionRegistry) Add(session *domain.CallSession) {
	r.mu.Lock()
	r.sessions[session.RoomID] = session
	r.mu.Unlock()

	logger.Base().Info("Session registered",
		zap.String("room_id", session.RoomID),
		zap.String("webhook_id", session.WebhookID))
}

// Remove deletes the session for a room and returns its webhook id so the
// caller can unregister it. Removing an absent room is not an error: the
// webhook handler and the orchestrator's cleanup can both race here, and
// whichever arrives second gets ("", false).
func (r *SessionRegistry) Remove(roomID string) (string, bool) {
	r.mu.Lock()
	session, ok := r.sessions[roomID]
	if ok {
		delete(r.sessions, roomID)
	}
	r.mu.Unlock()

	if !ok {
		return "", false
	}
	return session.WebhookID, true
}

// Get returns the session for a room if it is still tracked.
func (r *SessionRegistry) Get(roomID string) (*domain.CallSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[roomID]
	return session, ok
}

// Count returns the number of tracked sessions.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// All returns snapshots of every tracked session.
func (r *SessionRegistry) All() []domain.CallSessionView {
	r.mu.RLock()
	sessions := make([]*domain.CallSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	views := make([]domain.CallSessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, s.Snapshot())
	}
	return views
}
