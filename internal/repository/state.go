package repository

import (
	"context"
	"time"

	"room-designer/internal/domain"
)

// StateRepository is the key-value slot holding each user's persisted design
// state blob. It is implemented on Redis.
type StateRepository interface {
	// GetState returns the blob, or ErrStateNotFound when the slot is empty.
	GetState(ctx context.Context, userID uint) ([]byte, error)

	// SetState overwrites the blob and marks the user dirty for archiving.
	SetState(ctx context.Context, userID uint, data []byte) error

	// DeleteState empties the slot.
	DeleteState(ctx context.Context, userID uint) error

	// PopDirtyUsers removes and returns up to max users whose slot changed
	// since they were last archived.
	PopDirtyUsers(ctx context.Context, max int64) ([]uint, error)

	// MarkDirty flags users for the next archive sweep.
	MarkDirty(ctx context.Context, userIDs ...uint) error

	// CheckRateLimit counts a hit on key and reports whether limit is exceeded
	// within window.
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// StateArchiveRepository is the durable SQL copy of the state blobs.
type StateArchiveRepository interface {
	// FindByUser returns ErrStateNotFound when the user was never archived.
	FindByUser(ctx context.Context, userID uint) (*domain.StateRecord, error)

	// Upsert inserts or replaces the record of record.UserID.
	Upsert(ctx context.Context, record *domain.StateRecord) error
}
