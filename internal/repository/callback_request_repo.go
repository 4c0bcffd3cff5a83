package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ClareAI/astra-dialer-service/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CallbackRequestRepository handles database operations for callback requests
type CallbackRequestRepository struct {
	db *gorm.DB
}

// NewCallbackRequestRepository creates a new callback request repository
func NewCallbackRequestRepository(db *gorm.DB) *CallbackRequestRepository {
	return &CallbackRequestRepository{db: db}
}

// Create persists a callback request
func (r *CallbackRequestRepository) Create(ctx context.Context, request *domain.CallbackRequest) error {
	if request.ID == "" {
		request.ID = uuid.New().String()
	}
	if request.RequestedAt.IsZero() {
		request.RequestedAt = time.Now()
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now()
	}
	request.UpdatedAt = time.Now()

	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return fmt.Errorf("failed to create callback request: %w", err)
	}
	return nil
}

// ListPending returns unfulfilled callback requests oldest first
func (r *CallbackRequestRepository) ListPending(ctx context.Context) ([]*domain.CallbackRequest, error) {
	var requests []*domain.CallbackRequest
	if err := r.db.WithContext(ctx).Where("fulfilled = ?", false).
		Order("preferred_at ASC").Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("failed to list callback requests: %w", err)
	}
	return requests, nil
}

// MarkFulfilled flags a callback request as handled
func (r *CallbackRequestRepository) MarkFulfilled(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Model(&domain.CallbackRequest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"fulfilled": true, "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("failed to mark callback request fulfilled: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("callback request not found: %s", id)
	}
	return nil
}
