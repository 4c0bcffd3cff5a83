package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ClareAI/astra-dialer-service/pkg/logger"
	"github.com/ClareAI/astra-dialer-service/pkg/redis"
	"go.uber.org/zap"
)

const (
	HangupChannel = "dialer:call:session:hangup"
	SessionTTL    = 1 * time.Hour
)

// SessionInfo represents monitoring data for an outbound call session
type SessionInfo struct {
	RoomID    string    `json:"roomId"`
	CallID    string    `json:"callId,omitempty"`
	PodID     string    `json:"podId"`
	GatewayID string    `json:"gatewayId"`
	AgentName string    `json:"agentName"`
	StartTime time.Time `json:"startTime"`
}

// HangupMessage is the payload for hangup broadcast
type HangupMessage struct {
	RoomID string `json:"roomId"`
}

type Manager struct {
	redisSvc redis.RedisServiceInterface
	podID    string
}

func NewManager(redisSvc redis.RedisServiceInterface, podID string) *Manager {
	return &Manager{
		redisSvc: redisSvc,
		podID:    podID,
	}
}

// Register session for monitoring
func (m *Manager) Register(ctx context.Context, info SessionInfo) error {
	info.PodID = m.podID
	if info.StartTime.IsZero() {
		info.StartTime = time.Now()
	}

	data, _ := json.Marshal(info)
	key := m.redisSvc.GenerateKey(redis.DIAL_SESSION, info.RoomID)

	err := m.redisSvc.SetValue(ctx, key, string(data), SessionTTL)
	if err == nil {
		logger.Base().Info("Session registered in Redis", zap.String("room_id", info.RoomID), zap.String("pod_id", m.podID))
	}
	return err
}

// Unregister session from monitoring
func (m *Manager) Unregister(ctx context.Context, roomID string) error {
	return m.redisSvc.DelValue(ctx, m.redisSvc.GenerateKey(redis.DIAL_SESSION, roomID))
}

// NotifyHangup broadcasts a hangup request to all pods, so whichever pod
// owns the session tears it down.
func (m *Manager) NotifyHangup(ctx context.Context, roomID string) error {
	logger.Base().Info("Broadcasting hangup request", zap.String("room_id", roomID))
	return m.redisSvc.Publish(ctx, HangupChannel, HangupMessage{RoomID: roomID})
}

// SubscribeToHangup listens for hangup broadcasts
func (m *Manager) SubscribeToHangup(ctx context.Context, handler func(roomID string)) error {
	return m.redisSvc.Subscribe(ctx, HangupChannel, func(payload string) {
		var msg HangupMessage
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			logger.Base().Error("Failed to unmarshal hangup message", zap.Error(err))
			return
		}
		handler(msg.RoomID)
	})
}
