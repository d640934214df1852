package repository

import (
	"context"

	"clinicash/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChangeLogRepository is insert-only by design: the audit trail exposes no
// update or delete operations.
type ChangeLogRepository interface {
	CreateTx(tx *gorm.DB, e *model.EntityChangeLog) error
	ListByEntity(ctx context.Context, entityID uuid.UUID) ([]model.EntityChangeLog, error)
}

type changeLogRepo struct{ db *gorm.DB }

func NewChangeLogRepository(db *gorm.DB) ChangeLogRepository { return &changeLogRepo{db: db} }

func (r *changeLogRepo) CreateTx(tx *gorm.DB, e *model.EntityChangeLog) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.Create(e).Error
}

func (r *changeLogRepo) ListByEntity(ctx context.Context, entityID uuid.UUID) ([]model.EntityChangeLog, error) {
	var entries []model.EntityChangeLog
	err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
