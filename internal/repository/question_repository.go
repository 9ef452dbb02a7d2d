package repository

import (
	"context"
	"strings"

	"quiz_bank_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

// WithTx 返回绑定到事务的仓库
func (r *QuestionRepository) WithTx(tx *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: tx}
}

func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Create(q).Error
}

// CreateBatch 批量插入同一来源文件的题目
func (r *QuestionRepository) CreateBatch(ctx context.Context, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).CreateInBatches(questions, 100).Error
}

func (r *QuestionRepository) FindByID(ctx context.Context, id uint) (*model.Question, error) {
	var q model.Question
	if err := r.DB.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// FindByIDs 按 ids 的顺序返回题目，已删除的题目被跳过
func (r *QuestionRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []model.Question
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]model.Question, len(rows))
	for _, q := range rows {
		byID[q.ID] = q
	}
	ordered := make([]model.Question, 0, len(rows))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered, nil
}

func (r *QuestionRepository) filtered(ctx context.Context, f model.QuestionFilter) *gorm.DB {
	query := r.DB.WithContext(ctx).Model(&model.Question{})
	if f.FileName != "" {
		query = query.Where("file_name = ?", f.FileName)
	}
	if f.Type != "" {
		query = query.Where("type = ?", f.Type)
	}
	if f.Favorite != nil {
		query = query.Where("is_favorite = ?", *f.Favorite)
	}
	if f.Wrong != nil {
		query = query.Where("is_wrong = ?", *f.Wrong)
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		query = query.Where("content LIKE ?", "%"+kw+"%")
	}
	return query
}

func (r *QuestionRepository) List(ctx context.Context, f model.QuestionFilter, page, limit int) ([]model.Question, int64, error) {
	var (
		questions []model.Question
		total     int64
	)
	query := r.filtered(ctx, f)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if page > 0 && limit > 0 {
		query = query.Offset((page - 1) * limit).Limit(limit)
	}
	err := query.Order("id ASC").Find(&questions).Error
	return questions, total, err
}

// IDs 满足条件的题目 ID，按导入顺序
func (r *QuestionRepository) IDs(ctx context.Context, f model.QuestionFilter) ([]uint, error) {
	var ids []uint
	err := r.filtered(ctx, f).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Save(q).Error
}

// ClearWrongFlags fileName 为空时清除全部
func (r *QuestionRepository) ClearWrongFlags(ctx context.Context, fileName string) error {
	query := r.DB.WithContext(ctx).Model(&model.Question{}).Where("is_wrong = ?", true)
	if fileName != "" {
		query = query.Where("file_name = ?", fileName)
	}
	return query.Update("is_wrong", false).Error
}

// Delete 删除单题及其关联记录
func (r *QuestionRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteQuestionChildren(tx, []uint{id}); err != nil {
			return err
		}
		res := tx.Delete(&model.Question{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *QuestionRepository) ExistsFileName(ctx context.Context, fileName string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Question{}).Where("file_name = ?", fileName).Count(&count).Error
	return count > 0, err
}

// ListSources 按来源文件聚合题目数量，并带出所属文件夹
func (r *QuestionRepository) ListSources(ctx context.Context) ([]model.SourceFile, error) {
	var sources []model.SourceFile
	err := r.DB.WithContext(ctx).
		Table("questions AS q").
		Select("q.file_name AS file_name, COUNT(q.id) AS count, ff.folder_id AS folder_id, f.name AS folder_name").
		Joins("LEFT JOIN file_folders AS ff ON ff.file_name = q.file_name").
		Joins("LEFT JOIN folders AS f ON f.id = ff.folder_id").
		Group("q.file_name, ff.folder_id, f.name").
		Order("q.file_name ASC").
		Scan(&sources).Error
	return sources, err
}

// DeleteBySource 删除来源文件的全部题目以及错题、收藏、笔记、AI 缓存、进度和文件夹映射
func (r *QuestionRepository) DeleteBySource(ctx context.Context, fileName string) (int64, error) {
	var deleted int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&model.Question{}).Where("file_name = ?", fileName).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if err := deleteQuestionChildren(tx, ids); err != nil {
			return err
		}
		if err := tx.Where("file_name = ?", fileName).Delete(&model.Progress{}).Error; err != nil {
			return err
		}
		if err := tx.Where("file_name = ?", fileName).Delete(&model.FileFolder{}).Error; err != nil {
			return err
		}
		res := tx.Where("file_name = ?", fileName).Delete(&model.Question{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}

func deleteQuestionChildren(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	children := []interface{}{
		&model.WrongAnswer{},
		&model.Favorite{},
		&model.QuestionNote{},
		&model.QuestionAnalysis{},
		&model.QuestionAsk{},
	}
	for _, m := range children {
		if err := tx.Where("question_id IN ?", ids).Delete(m).Error; err != nil {
			return err
		}
	}
	return nil
}
