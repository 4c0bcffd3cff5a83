package session

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/ClareAI/astra-dialer-service/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	values   map[string]string
	handlers map[string]func(string)
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		values:   make(map[string]string),
		handlers: make(map[string]func(string)),
	}
}

func (f *fakeRedis) GenerateKey(keyType redis.KeyType, identifier string) string {
	return fmt.Sprintf("%s:%s:", string(keyType), identifier)
}

func (f *fakeRedis) GetValue(ctx context.Context, key string) (string, error) {
	val, ok := f.values[key]
	if !ok {
		return "", redis.ErrKeyNotExist
	}
	return val, nil
}

func (f *fakeRedis) SetValue(ctx context.Context, key string, value string, ttl time.Duration) error {
	f.values[key] = value
	return nil
}

func (f *fakeRedis) DelValue(ctx context.Context, key string) error {
	delete(f.values, key)
	return nil
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	if handler, ok := f.handlers[channel]; ok {
		handler(string(data))
	}
	return nil
}

func (f *fakeRedis) Subscribe(ctx context.Context, channel string, handler func(string)) error {
	f.handlers[channel] = handler
	return nil
}

func TestManager_RegisterAndUnregister(t *testing.T) {
	svc := newFakeRedis()
	m := NewManager(svc, "pod-1")

	require.NoError(t, m.Register(context.Background(), SessionInfo{
		RoomID:    "room-1",
		GatewayID: "gw-1",
		AgentName: "Voice Agent",
	}))

	key := svc.GenerateKey(redis.DIAL_SESSION, "room-1")
	raw, ok := svc.values[key]
	require.True(t, ok, "session should be stored under the dial-session key")

	var info SessionInfo
	require.NoError(t, json.Unmarshal([]byte(raw), &info))
	assert.Equal(t, "pod-1", info.PodID)
	assert.Equal(t, "room-1", info.RoomID)
	assert.False(t, info.StartTime.IsZero())

	require.NoError(t, m.Unregister(context.Background(), "room-1"))
	_, ok = svc.values[key]
	assert.False(t, ok)
}

func TestManager_HangupRoundTrip(t *testing.T) {
	svc := newFakeRedis()
	m := NewManager(svc, "pod-1")

	var got []string
	require.NoError(t, m.SubscribeToHangup(context.Background(), func(roomID string) {
		got = append(got, roomID)
	}))

	require.NoError(t, m.NotifyHangup(context.Background(), "room-7"))
	assert.Equal(t, []string{"room-7"}, got)
}
