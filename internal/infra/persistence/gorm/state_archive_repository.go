package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"room-designer/internal/domain"
	"room-designer/internal/repository"
)

// GormStateArchiveRepository is the GORM implementation of StateArchiveRepository.
type GormStateArchiveRepository struct {
	db *gorm.DB
}

// NewGormStateArchiveRepository creates a GormStateArchiveRepository.
func NewGormStateArchiveRepository(db *gorm.DB) *GormStateArchiveRepository {
	if db == nil {
		panic("database connection cannot be nil for GormStateArchiveRepository")
	}
	return &GormStateArchiveRepository{db: db}
}

// FindByUser returns the archived blob of a user.
func (r *GormStateArchiveRepository) FindByUser(ctx context.Context, userID uint) (*domain.StateRecord, error) {
	var rec domain.StateRecord
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrStateNotFound
		}
		return nil, fmt.Errorf("gorm: find state record for user %d: %w", userID, err)
	}
	return &rec, nil
}

// Upsert writes the record, replacing any existing row of the same user.
func (r *GormStateArchiveRepository) Upsert(ctx context.Context, record *domain.StateRecord) error {
	if record == nil {
		return errors.New("gorm: cannot upsert a nil state record")
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"slot", "version", "data", "updated_at"}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("gorm: upsert state record for user %d: %w", record.UserID, err)
	}
	return nil
}
