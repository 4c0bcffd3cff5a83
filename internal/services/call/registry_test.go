package call

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ClareAI/astra-dialer-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRegistry_AddAndGet(t *testing.T) {
	registry := NewSessionRegistry()
	sess := domain.NewCallSession("room-1", "wh-1", "gw-1", "+6591234567", "Voice Agent")

	registry.Add(sess)

	got, ok := registry.Get("room-1")
	require.True(t, ok)
	assert.Same(t, sess, got)
	assert.Equal(t, 1, registry.Count())

	_, ok = registry.Get("room-2")
	assert.False(t, ok)
}

func TestSessionRegistry_AddReplacesStaleEntry(t *testing.T) {
	registry := NewSessionRegistry()
	stale := domain.NewCallSession("room-1", "wh-old", "gw-1", "+6591234567", "Voice Agent")
	fresh := domain.NewCallSession("room-1", "wh-new", "gw-1", "+6591234567", "Voice Agent")

	registry.Add(stale)
	registry.Add(fresh)

	got, ok := registry.Get("room-1")
	require.True(t, ok)
	assert.Same(t, fresh, got)
	assert.Equal(t, 1, registry.Count())
}

func TestSessionRegistry_RemoveReturnsWebhookID(t *testing.T) {
	registry := NewSessionRegistry()
	registry.Add(domain.NewCallSession("room-1", "wh-1", "gw-1", "+6591234567", "Voice Agent"))

	webhookID, existed := registry.Remove("room-1")
	require.True(t, existed)
	assert.Equal(t, "wh-1", webhookID)
	assert.Zero(t, registry.Count())

	// A second removal is a deliberate no-op so racing cleanup paths can
	// both call through safely.
	webhookID, existed = registry.Remove("room-1")
	assert.False(t, existed)
	assert.Empty(t, webhookID)
}

func TestSessionRegistry_RemoveAbsentRoom(t *testing.T) {
	registry := NewSessionRegistry()
	webhookID, existed := registry.Remove("never-added")
	assert.False(t, existed)
	assert.Empty(t, webhookID)
}

func TestSessionRegistry_ConcurrentRemove(t *testing.T) {
	registry := NewSessionRegistry()
	registry.Add(domain.NewCallSession("room-1", "wh-1", "gw-1", "+6591234567", "Voice Agent"))

	const removers = 16
	var wg sync.WaitGroup
	var winners int32
	var mu sync.Mutex

	for i := 0; i < removers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, existed := registry.Remove("room-1"); existed {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners, "exactly one remover should observe the session")
	assert.Zero(t, registry.Count())
}

func TestSessionRegistry_All(t *testing.T) {
	registry := NewSessionRegistry()
	for i := 0; i < 3; i++ {
		roomID := fmt.Sprintf("room-%d", i)
		registry.Add(domain.NewCallSession(roomID, "", "gw-1", "+6591234567", "Voice Agent"))
	}

	views := registry.All()
	require.Len(t, views, 3)
	seen := make(map[string]bool)
	for _, view := range views {
		seen[view.RoomID] = true
		assert.Equal(t, domain.CallStatusRinging, view.Status)
	}
	assert.Len(t, seen, 3)
}
