package repository

import (
	"context"

	"quiz_bank_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FavoriteRepository struct {
	DB *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) *FavoriteRepository {
	return &FavoriteRepository{DB: db}
}

// Add 重复收藏不报错
func (r *FavoriteRepository) Add(ctx context.Context, questionID uint, fileName string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fav := model.Favorite{QuestionID: questionID, FileName: fileName}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fav).Error; err != nil {
			return err
		}
		return tx.Model(&model.Question{}).Where("id = ?", questionID).Update("is_favorite", true).Error
	})
}

func (r *FavoriteRepository) Remove(ctx context.Context, questionID uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", questionID).Delete(&model.Favorite{}).Error; err != nil {
			return err
		}
		return tx.Model(&model.Question{}).Where("id = ?", questionID).Update("is_favorite", false).Error
	})
}

func (r *FavoriteRepository) Exists(ctx context.Context, questionID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Favorite{}).Where("question_id = ?", questionID).Count(&count).Error
	return count > 0, err
}

func (r *FavoriteRepository) List(ctx context.Context, fileName string) ([]model.Favorite, error) {
	var rows []model.Favorite
	query := r.DB.WithContext(ctx).Preload("Question")
	if fileName != "" {
		query = query.Where("file_name = ?", fileName)
	}
	err := query.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

func (r *FavoriteRepository) QuestionIDs(ctx context.Context, fileName string) ([]uint, error) {
	var ids []uint
	query := r.DB.WithContext(ctx).Model(&model.Favorite{})
	if fileName != "" {
		query = query.Where("file_name = ?", fileName)
	}
	err := query.Order("id ASC").Pluck("question_id", &ids).Error
	return ids, err
}
