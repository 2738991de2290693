package data

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/festa-dev/festa-backend/internal/media/models"
	"github.com/festa-dev/festa-backend/internal/pkg/database"
)

// MediaRepo is the persistence boundary for media records.
type MediaRepo interface {
	// Create inserts a placeholder record
	Create(ctx context.Context, rec *models.MediaRecord) error

	// GetByIDAndOwner returns the record only when it belongs to ownerID.
	// Returns (nil, nil) when no such record exists; callers must not be
	// able to distinguish "missing" from "foreign".
	GetByIDAndOwner(ctx context.Context, id, ownerID string) (*models.MediaRecord, error)

	// Update persists the given fields of an existing record
	Update(ctx context.Context, rec *models.MediaRecord) error

	// Delete removes the row. The storage object is deliberately left in
	// place; object removal is a privileged operation.
	Delete(ctx context.Context, id, ownerID string) (bool, error)

	// ListByOwner returns a guest's records, newest first
	ListByOwner(ctx context.Context, ownerID string) ([]*models.MediaRecord, error)

	// ListPage iterates all records in stable order for batch jobs
	ListPage(ctx context.Context, offset, limit int) ([]*models.MediaRecord, error)

	// Count returns the total number of records
	Count(ctx context.Context) (int64, error)
}

type mediaRepo struct {
	db *database.DB
}

// NewMediaRepo creates the gorm-backed media repository
func NewMediaRepo(db *database.DB) MediaRepo {
	return &mediaRepo{db: db}
}

func (r *mediaRepo) Create(ctx context.Context, rec *models.MediaRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create media record: %w", err)
	}
	return nil
}

func (r *mediaRepo) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*models.MediaRecord, error) {
	var rec models.MediaRecord
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get media record: %w", err)
	}
	return &rec, nil
}

func (r *mediaRepo) Update(ctx context.Context, rec *models.MediaRecord) error {
	if err := r.db.WithContext(ctx).Save(rec).Error; err != nil {
		return fmt.Errorf("failed to update media record: %w", err)
	}
	return nil
}

func (r *mediaRepo) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&models.MediaRecord{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete media record: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *mediaRepo) ListByOwner(ctx context.Context, ownerID string) ([]*models.MediaRecord, error) {
	var recs []*models.MediaRecord
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list media records: %w", err)
	}
	return recs, nil
}

func (r *mediaRepo) ListPage(ctx context.Context, offset, limit int) ([]*models.MediaRecord, error) {
	var recs []*models.MediaRecord
	err := r.db.WithContext(ctx).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to page media records: %w", err)
	}
	return recs, nil
}

func (r *mediaRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.MediaRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count media records: %w", err)
	}
	return n, nil
}
