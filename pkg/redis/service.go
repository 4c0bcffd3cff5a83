package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type KeyType string

const (
	DIAL_SESSION    KeyType = "dialer_call_session"
	CALL_TRANSCRIPT KeyType = "dialer_call_transcript"
)

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

var ErrKeyNotExist = redis.Nil

type RedisServiceInterface interface {
	GenerateKey(keyType KeyType, identifier string) string
	GetValue(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key string, value string, ttl time.Duration) error
	DelValue(ctx context.Context, key string) error
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string, handler func(string)) error
}

type RedisService struct {
	client *redis.Client
}

func NewRedisService(config *RedisConfig) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisService{
		client: client,
	}, nil
}

// GenerateKey generates a Redis key with the given key type and identifier
func (r *RedisService) GenerateKey(keyType KeyType, identifier string) string {
	return fmt.Sprintf("%s:%s:", string(keyType), identifier)
}

// GetValue gets a value from Redis by key
func (r *RedisService) GetValue(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", err
	}
	return val, nil
}

// SetValue sets a value in Redis with TTL
func (r *RedisService) SetValue(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// DelValue deletes a value from Redis by key
func (r *RedisService) DelValue(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Publish publishes a message to a Redis channel
func (r *RedisService) Publish(ctx context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe subscribes to a Redis channel and handles incoming messages
func (r *RedisService) Subscribe(ctx context.Context, channel string, handler func(string)) error {
	pubsub := r.client.Subscribe(ctx, channel)

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for msg := range ch {
			handler(msg.Payload)
		}
	}()

	return nil
}

// TranscriptLine is a single utterance captured during a call.
type TranscriptLine struct {
	Role    string `json:"role"` // "agent" or "callee"
	Content string `json:"content"`
	At      int64  `json:"at"` // unix millis
}

// AppendTranscript appends lines to the transcript buffer kept for a call.
func (r *RedisService) AppendTranscript(ctx context.Context, callID string, lines []TranscriptLine, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	key := r.GenerateKey(CALL_TRANSCRIPT, callID)

	existing, err := r.GetTranscript(ctx, callID)
	if err != nil {
		return fmt.Errorf("failed to get existing transcript: %w", err)
	}

	all := append(existing, lines...)

	data, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set transcript: %w", err)
	}

	return nil
}

// GetTranscript retrieves the transcript buffer for a call.
func (r *RedisService) GetTranscript(ctx context.Context, callID string) ([]TranscriptLine, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}

	key := r.GenerateKey(CALL_TRANSCRIPT, callID)

	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == ErrKeyNotExist {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}

	var lines []TranscriptLine
	if err := json.Unmarshal([]byte(val), &lines); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}

	return lines, nil
}

// ClearTranscript removes the transcript buffer for a call.
func (r *RedisService) ClearTranscript(ctx context.Context, callID string) error {
	if r.client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	key := r.GenerateKey(CALL_TRANSCRIPT, callID)
	return r.client.Del(ctx, key).Err()
}
