package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ClareAI/astra-dialer-service/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CallRecordRepository handles database operations for call dispositions
type CallRecordRepository struct {
	db *gorm.DB
}

// NewCallRecordRepository creates a new call record repository
func NewCallRecordRepository(db *gorm.DB) *CallRecordRepository {
	return &CallRecordRepository{db: db}
}

// Create persists a call record
func (r *CallRecordRepository) Create(ctx context.Context, record *domain.CallRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.UpdatedAt = time.Now()

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create call record: %w", err)
	}
	return nil
}

// GetByRoomID retrieves the record for a room, nil when none exists
func (r *CallRecordRepository) GetByRoomID(ctx context.Context, roomID string) (*domain.CallRecord, error) {
	var record domain.CallRecord
	if err := r.db.WithContext(ctx).Where("room_id = ?", roomID).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get call record: %w", err)
	}
	return &record, nil
}

// ListRecent returns the newest records up to limit
func (r *CallRecordRepository) ListRecent(ctx context.Context, limit int) ([]*domain.CallRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []*domain.CallRecord
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list call records: %w", err)
	}
	return records, nil
}

// CountByDisposition returns how many records exist per disposition
func (r *CallRecordRepository) CountByDisposition(ctx context.Context, disposition domain.Disposition) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.CallRecord{}).
		Where("disposition = ?", disposition).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count call records: %w", err)
	}
	return count, nil
}
