package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ClareAI/astra-dialer-service/pkg/logger"
	"go.uber.org/zap"
)

// ReadySignal is the marker-file handshake between the dialer and the agent
// process. The agent writes the marker once it has joined the room; the
// dialer polls for it before placing the SIP call so the callee never lands
// in an empty room.
type ReadySignal struct {
	path string
}

// NewReadySignal builds the marker path for a room. An empty dir falls back
// to the system temp directory.
func NewReadySignal(dir, roomID string) *ReadySignal {
	if dir == "" {
		dir = os.TempDir()
	}
	return &ReadySignal{
		path: filepath.Join(dir, "agent_ready_"+roomID),
	}
}

// Path returns the marker file location.
func (r *ReadySignal) Path() string {
	return r.path
}

// Wait polls for the marker until it appears, the timeout elapses, or ctx is
// canceled.
func (r *ReadySignal) Wait(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		if _, err := os.Stat(r.path); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("agent ready marker not found after %s: %s", timeout, r.path)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Clear removes the marker. Missing markers are not an error.
func (r *ReadySignal) Clear() {
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		logger.Base().Warn("Failed to remove agent ready marker", zap.String("path", r.path), zap.Error(err))
	}
}
