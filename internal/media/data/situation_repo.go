package data

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/festa-dev/festa-backend/internal/media/models"
	"github.com/festa-dev/festa-backend/internal/pkg/database"
)

// SituationRepo reads the situation grouping entities.
type SituationRepo interface {
	// Exists reports whether the situation id is known
	Exists(ctx context.Context, id string) (bool, error)

	// List returns all situations in display order
	List(ctx context.Context) ([]*models.Situation, error)
}

type situationRepo struct {
	db *database.DB
}

// NewSituationRepo creates the gorm-backed situation repository
func NewSituationRepo(db *database.DB) SituationRepo {
	return &situationRepo{db: db}
}

func (r *situationRepo) Exists(ctx context.Context, id string) (bool, error) {
	var s models.Situation
	err := r.db.WithContext(ctx).Select("id").Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check situation: %w", err)
	}
	return true, nil
}

func (r *situationRepo) List(ctx context.Context) ([]*models.Situation, error) {
	var situations []*models.Situation
	err := r.db.WithContext(ctx).
		Order("sort_order ASC, created_at ASC").
		Find(&situations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list situations: %w", err)
	}
	return situations, nil
}
