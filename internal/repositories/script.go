package repositories

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"scriptgrade/answer-evaluator/internal/models"
)

type ScriptRepository interface {
	Create(script *models.Script) error
	FindByID(id uuid.UUID) (*models.Script, error)
}

type scriptRepository struct {
	db *gorm.DB
}

func NewScriptRepository(db *gorm.DB) ScriptRepository {
	return &scriptRepository{db: db}
}

// Create implements ScriptRepository.
func (r *scriptRepository) Create(script *models.Script) error {
	if err := r.db.Create(&script).Error; err != nil {
		return fmt.Errorf("failed to create script: %w", err)
	}

	return nil
}

// FindByID implements ScriptRepository.
func (r *scriptRepository) FindByID(id uuid.UUID) (*models.Script, error) {
	var script models.Script
	if err := r.db.Where("id = ?", id).First(&script).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("script not found: %w", err)
		}

		return nil, fmt.Errorf("failed to find script: %w", err)
	}

	return &script, nil
}
