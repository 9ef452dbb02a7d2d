package repository

import (
	"context"
	"errors"

	"quiz_bank_backend/internal/model"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) FindByKey(ctx context.Context, key string) (*model.Progress, error) {
	var p model.Progress
	if err := r.DB.WithContext(ctx).Where("session_key = ?", key).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Save 按 session_key 覆盖写入
func (r *ProgressRepository) Save(ctx context.Context, p *model.Progress) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Progress
		err := tx.Select("id", "created_at").Where("session_key = ?", p.SessionKey).First(&existing).Error
		switch {
		case err == nil:
			p.ID = existing.ID
			p.CreatedAt = existing.CreatedAt
			return tx.Save(p).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			p.ID = 0
			return tx.Create(p).Error
		default:
			return err
		}
	})
}

func (r *ProgressRepository) DeleteByKey(ctx context.Context, key string) (bool, error) {
	res := r.DB.WithContext(ctx).Where("session_key = ?", key).Delete(&model.Progress{})
	return res.RowsAffected > 0, res.Error
}

func (r *ProgressRepository) List(ctx context.Context) ([]model.Progress, error) {
	var rows []model.Progress
	err := r.DB.WithContext(ctx).Order("updated_at DESC").Find(&rows).Error
	return rows, err
}
