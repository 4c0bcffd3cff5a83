package call

import (
	"context"
	"fmt"
	"time"

	adapterhttp "github.com/ClareAI/astra-dialer-service/internal/adapters/http"
	"github.com/ClareAI/astra-dialer-service/internal/core/session"
	"github.com/ClareAI/astra-dialer-service/internal/domain"
	"github.com/ClareAI/astra-dialer-service/pkg/redis"
)

// RoomAPI is the slice of the room service the dialer needs.
type RoomAPI interface {
	CreateRoom(ctx context.Context) (string, error)
	DeactivateRoom(ctx context.Context, roomID string) error
}

// CallAPI is the slice of the telephony API the dialer needs.
type CallAPI interface {
	TriggerCall(ctx context.Context, params adapterhttp.TriggerCallParams) (*adapterhttp.CallData, error)
}

// RecordStore persists call dispositions and callback requests.
type RecordStore interface {
	SaveCallRecord(ctx context.Context, record *domain.CallRecord) error
	SaveCallbackRequest(ctx context.Context, request *domain.CallbackRequest) error
}

// Monitor mirrors session state into shared storage for fleet visibility.
type Monitor interface {
	Register(ctx context.Context, info session.SessionInfo) error
	Unregister(ctx context.Context, roomID string) error
	NotifyHangup(ctx context.Context, roomID string) error
}

// Transcripts buffers spoken lines per call.
type Transcripts interface {
	AppendTranscript(ctx context.Context, callID string, lines []redis.TranscriptLine, ttl time.Duration) error
	ClearTranscript(ctx context.Context, callID string) error
}

// DialParams describes one outbound dial request.
type DialParams struct {
	Destination string `json:"destination"`
	GatewayID   string `json:"gateway_id,omitempty"`
	AgentName   string `json:"agent_name,omitempty"`
	Greeting    string `json:"greeting,omitempty"`
}

// Dial stages, used in StageError to tell callers which step broke.
const (
	StageRoomCreate      = "room_create"
	StageWebhookRegister = "webhook_register"
	StageAgentStart      = "agent_start"
	StageCallTrigger     = "call_trigger"
)

// StageError wraps a dial failure with the pipeline stage it occurred in.
type StageError struct {
	Stage  string
	RoomID string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("dial failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
