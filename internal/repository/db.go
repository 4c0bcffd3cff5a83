package repository

import (
	"context"

	"github.com/ClareAI/astra-dialer-service/internal/domain"
	"gorm.io/gorm"
)

// RepositoryManager combines all repositories
type RepositoryManager interface {
	CallRecord() *CallRecordRepository
	CallbackRequest() *CallbackRequestRepository

	// Convenience methods used by the dialer's cleanup path
	SaveCallRecord(ctx context.Context, record *domain.CallRecord) error
	SaveCallbackRequest(ctx context.Context, request *domain.CallbackRequest) error

	// Transaction support
	WithTx(ctx context.Context, fn func(ctx context.Context, repos RepositoryManager) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connection
	Close() error
}

// GormRepositoryManager implements RepositoryManager using GORM
type GormRepositoryManager struct {
	db              *gorm.DB
	callRecordRepo  *CallRecordRepository
	callbackReqRepo *CallbackRequestRepository
}

// NewGormRepositoryManager creates a new GORM repository manager
func NewGormRepositoryManager(db *gorm.DB) *GormRepositoryManager {
	return &GormRepositoryManager{
		db:              db,
		callRecordRepo:  NewCallRecordRepository(db),
		callbackReqRepo: NewCallbackRequestRepository(db),
	}
}

// CallRecord returns the call record repository
func (m *GormRepositoryManager) CallRecord() *CallRecordRepository {
	return m.callRecordRepo
}

// CallbackRequest returns the callback request repository
func (m *GormRepositoryManager) CallbackRequest() *CallbackRequestRepository {
	return m.callbackReqRepo
}

// SaveCallRecord persists a call disposition row
func (m *GormRepositoryManager) SaveCallRecord(ctx context.Context, record *domain.CallRecord) error {
	return m.callRecordRepo.Create(ctx, record)
}

// SaveCallbackRequest persists a callback request
func (m *GormRepositoryManager) SaveCallbackRequest(ctx context.Context, request *domain.CallbackRequest) error {
	return m.callbackReqRepo.Create(ctx, request)
}

// WithTx executes a function within a database transaction
func (m *GormRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos RepositoryManager) error) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		txManager := NewGormRepositoryManager(tx)
		return fn(ctx, txManager)
	})
}

// Ping checks the database connection
func (m *GormRepositoryManager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (m *GormRepositoryManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
