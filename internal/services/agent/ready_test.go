package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadySignal_Path(t *testing.T) {
	dir := t.TempDir()
	signal := NewReadySignal(dir, "room-1")
	assert.Equal(t, filepath.Join(dir, "agent_ready_room-1"), signal.Path())
}

func TestReadySignal_DefaultsToTempDir(t *testing.T) {
	signal := NewReadySignal("", "room-1")
	assert.Equal(t, filepath.Join(os.TempDir(), "agent_ready_room-1"), signal.Path())
}

func TestReadySignal_WaitMarkerAlreadyPresent(t *testing.T) {
	dir := t.TempDir()
	signal := NewReadySignal(dir, "room-1")
	require.NoError(t, os.WriteFile(signal.Path(), nil, 0o644))

	err := signal.Wait(context.Background(), time.Second)
	assert.NoError(t, err)
}

func TestReadySignal_WaitTimesOut(t *testing.T) {
	signal := NewReadySignal(t.TempDir(), "room-1")
	err := signal.Wait(context.Background(), 10*time.Millisecond)
	assert.Error(t, err)
}

func TestReadySignal_WaitCanceled(t *testing.T) {
	signal := NewReadySignal(t.TempDir(), "room-1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := signal.Wait(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadySignal_Clear(t *testing.T) {
	dir := t.TempDir()
	signal := NewReadySignal(dir, "room-1")
	require.NoError(t, os.WriteFile(signal.Path(), nil, 0o644))

	signal.Clear()
	_, err := os.Stat(signal.Path())
	assert.True(t, os.IsNotExist(err))

	// Clearing an absent marker must be silent.
	signal.Clear()
}
