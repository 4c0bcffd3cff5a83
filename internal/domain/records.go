package domain

import (
	"time"
)

// Disposition represents the outcome category recorded for a finished call
type Disposition string

const (
	DispositionAnswered  Disposition = "answered"
	DispositionMissed    Disposition = "missed"
	DispositionFailed    Disposition = "failed"
	DispositionCallback  Disposition = "callback_requested"
	DispositionCompleted Disposition = "completed"
)

// CallRecord is the persisted disposition row written when a session ends
type CallRecord struct {
	ID          string      `json:"id" db:"id" gorm:"column:id;primaryKey"`
	RoomID      string      `json:"room_id" db:"room_id" gorm:"column:room_id;index"`
	CallID      string      `json:"call_id" db:"call_id" gorm:"column:call_id;index"`
	GatewayID   string      `json:"gateway_id" db:"gateway_id" gorm:"column:gateway_id"`
	Destination string      `json:"destination" db:"destination" gorm:"column:destination"`
	AgentName   string      `json:"agent_name" db:"agent_name" gorm:"column:agent_name"`
	Disposition Disposition `json:"disposition" db:"disposition" gorm:"column:disposition"`
	Detail      JSONB       `json:"detail" db:"detail" gorm:"column:detail;type:jsonb"`
	StartedAt   time.Time   `json:"started_at" db:"started_at" gorm:"column:started_at"`
	EndedAt     time.Time   `json:"ended_at" db:"ended_at" gorm:"column:ended_at"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at" gorm:"column:updated_at"`
}

func (CallRecord) TableName() string {
	return "call_records"
}

// CallbackRequest is a scheduled follow-up call captured during a session
type CallbackRequest struct {
	ID          string    `json:"id" db:"id" gorm:"column:id;primaryKey"`
	RoomID      string    `json:"room_id" db:"room_id" gorm:"column:room_id;index"`
	Destination string    `json:"destination" db:"destination" gorm:"column:destination"`
	ContactName string    `json:"contact_name" db:"contact_name" gorm:"column:contact_name"`
	RequestedAt time.Time `json:"requested_at" db:"requested_at" gorm:"column:requested_at"`
	PreferredAt time.Time `json:"preferred_at" db:"preferred_at" gorm:"column:preferred_at"`
	Fulfilled   bool      `json:"fulfilled" db:"fulfilled" gorm:"column:fulfilled"`
	CreatedAt   time.Time `json:"created_at" db:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at" gorm:"column:updated_at"`
}

func (CallbackRequest) TableName() string {
	return "callback_requests"
}
