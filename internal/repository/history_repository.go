package repository

import (
	"context"

	"quiz_bank_backend/internal/model"

	"gorm.io/gorm"
)

type HistoryRepository struct {
	DB *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{DB: db}
}

func (r *HistoryRepository) CreatePractice(ctx context.Context, rec *model.HistoryRecord) error {
	return r.DB.WithContext(ctx).Create(rec).Error
}

func (r *HistoryRepository) CreateExam(ctx context.Context, rec *model.ExamHistoryRecord) error {
	return r.DB.WithContext(ctx).Create(rec).Error
}

func (r *HistoryRepository) ListPractice(ctx context.Context, fileName string, page, limit int) ([]model.HistoryRecord, int64, error) {
	var (
		rows  []model.HistoryRecord
		total int64
	)
	err := r.paged(ctx, &model.HistoryRecord{}, fileName, page, limit, &rows, &total)
	return rows, total, err
}

func (r *HistoryRepository) ListExam(ctx context.Context, fileName string, page, limit int) ([]model.ExamHistoryRecord, int64, error) {
	var (
		rows  []model.ExamHistoryRecord
		total int64
	)
	err := r.paged(ctx, &model.ExamHistoryRecord{}, fileName, page, limit, &rows, &total)
	return rows, total, err
}

func (r *HistoryRepository) paged(ctx context.Context, m interface{}, fileName string, page, limit int, dest interface{}, total *int64) error {
	query := r.DB.WithContext(ctx).Model(m)
	if fileName != "" {
		query = query.Where("file_name = ?", fileName)
	}
	if err := query.Count(total).Error; err != nil {
		return err
	}
	if page > 0 && limit > 0 {
		query = query.Offset((page - 1) * limit).Limit(limit)
	}
	return query.Order("created_at DESC, id DESC").Find(dest).Error
}

func (r *HistoryRepository) DeletePractice(ctx context.Context, id uint) error {
	return deleteOne(r.DB.WithContext(ctx), &model.HistoryRecord{}, id)
}

func (r *HistoryRepository) DeleteExam(ctx context.Context, id uint) error {
	return deleteOne(r.DB.WithContext(ctx), &model.ExamHistoryRecord{}, id)
}

func (r *HistoryRepository) ClearPractice(ctx context.Context) error {
	return r.DB.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.HistoryRecord{}).Error
}

func (r *HistoryRepository) ClearExam(ctx context.Context) error {
	return r.DB.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.ExamHistoryRecord{}).Error
}

func deleteOne(db *gorm.DB, m interface{}, id uint) error {
	res := db.Delete(m, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
