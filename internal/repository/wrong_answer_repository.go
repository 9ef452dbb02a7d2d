package repository

import (
	"context"
	"time"

	"quiz_bank_backend/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WrongAnswerRepository struct {
	DB *gorm.DB
}

func NewWrongAnswerRepository(db *gorm.DB) *WrongAnswerRepository {
	return &WrongAnswerRepository{DB: db}
}

// Record 写入错题，已存在时累加错误次数并覆盖最近一次选择
func (r *WrongAnswerRepository) Record(ctx context.Context, questionID uint, fileName string, selected []int) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wa := model.WrongAnswer{
			QuestionID: questionID,
			Selected:   datatypes.JSONSlice[int](append([]int(nil), selected...)),
			WrongCount: 1,
			FileName:   fileName,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "question_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"wrong_count": gorm.Expr("wrong_count + 1"),
				"selected":    wa.Selected,
				"updated_at":  time.Now(),
			}),
		}).Create(&wa).Error
		if err != nil {
			return err
		}
		return tx.Model(&model.Question{}).Where("id = ?", questionID).Update("is_wrong", true).Error
	})
}

func (r *WrongAnswerRepository) List(ctx context.Context, fileName string) ([]model.WrongAnswer, error) {
	var rows []model.WrongAnswer
	query := r.DB.WithContext(ctx).Preload("Question")
	if fileName != "" {
		query = query.Where("file_name = ?", fileName)
	}
	err := query.Order("updated_at DESC").Find(&rows).Error
	return rows, err
}

func (r *WrongAnswerRepository) QuestionIDs(ctx context.Context, fileName string) ([]uint, error) {
	var ids []uint
	query := r.DB.WithContext(ctx).Model(&model.WrongAnswer{})
	if fileName != "" {
		query = query.Where("file_name = ?", fileName)
	}
	err := query.Order("id ASC").Pluck("question_id", &ids).Error
	return ids, err
}

func (r *WrongAnswerRepository) Delete(ctx context.Context, questionID uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("question_id = ?", questionID).Delete(&model.WrongAnswer{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&model.Question{}).Where("id = ?", questionID).Update("is_wrong", false).Error
	})
}

// Clear fileName 为空时清空整个错题本
func (r *WrongAnswerRepository) Clear(ctx context.Context, fileName string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if fileName != "" {
			query = query.Where("file_name = ?", fileName)
		}
		res := query.Delete(&model.WrongAnswer{})
		if res.Error != nil {
			return res.Error
		}
		n = res.RowsAffected
		return NewQuestionRepository(tx).ClearWrongFlags(ctx, fileName)
	})
	return n, err
}
