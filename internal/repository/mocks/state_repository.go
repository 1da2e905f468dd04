package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"room-designer/internal/domain"
)

// StateRepository is a mock of repository.StateRepository.
type StateRepository struct {
	mock.Mock
}

func (m *StateRepository) GetState(ctx context.Context, userID uint) ([]byte, error) {
	args := m.Called(ctx, userID)
	var data []byte
	if d := args.Get(0); d != nil {
		data = d.([]byte)
	}
	return data, args.Error(1)
}

func (m *StateRepository) SetState(ctx context.Context, userID uint, data []byte) error {
	return m.Called(ctx, userID, data).Error(0)
}

func (m *StateRepository) DeleteState(ctx context.Context, userID uint) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *StateRepository) PopDirtyUsers(ctx context.Context, max int64) ([]uint, error) {
	args := m.Called(ctx, max)
	var ids []uint
	if v := args.Get(0); v != nil {
		ids = v.([]uint)
	}
	return ids, args.Error(1)
}

func (m *StateRepository) MarkDirty(ctx context.Context, userIDs ...uint) error {
	return m.Called(ctx, userIDs).Error(0)
}

func (m *StateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

// StateArchiveRepository is a mock of repository.StateArchiveRepository.
type StateArchiveRepository struct {
	mock.Mock
}

func (m *StateArchiveRepository) FindByUser(ctx context.Context, userID uint) (*domain.StateRecord, error) {
	args := m.Called(ctx, userID)
	var rec *domain.StateRecord
	if r := args.Get(0); r != nil {
		rec = r.(*domain.StateRecord)
	}
	return rec, args.Error(1)
}

func (m *StateArchiveRepository) Upsert(ctx context.Context, record *domain.StateRecord) error {
	return m.Called(ctx, record).Error(0)
}
