package repository

import (
	"context"
	"errors"

	"clinicash/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClinicRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
}

type clinicRepo struct{ db *gorm.DB }

func NewClinicRepository(db *gorm.DB) ClinicRepository { return &clinicRepo{db: db} }

func (r *clinicRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	var c model.Clinic
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &c, err
}
