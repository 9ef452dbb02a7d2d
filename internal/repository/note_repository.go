package repository

import (
	"context"
	"time"

	"quiz_bank_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NoteRepository 笔记、AI 解析缓存与追问缓存
type NoteRepository struct {
	DB *gorm.DB
}

func NewNoteRepository(db *gorm.DB) *NoteRepository {
	return &NoteRepository{DB: db}
}

func (r *NoteRepository) FindNote(ctx context.Context, questionID uint) (*model.QuestionNote, error) {
	var n model.QuestionNote
	if err := r.DB.WithContext(ctx).Where("question_id = ?", questionID).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NoteRepository) UpsertNote(ctx context.Context, questionID uint, content string) (*model.QuestionNote, error) {
	n := model.QuestionNote{QuestionID: questionID, Content: content, UpdatedAt: time.Now()}
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(&n).Error
	if err != nil {
		return nil, err
	}
	return r.FindNote(ctx, questionID)
}

func (r *NoteRepository) DeleteNote(ctx context.Context, questionID uint) error {
	return r.DB.WithContext(ctx).Where("question_id = ?", questionID).Delete(&model.QuestionNote{}).Error
}

// NotesFor 批量查询笔记，返回 questionID -> content
func (r *NoteRepository) NotesFor(ctx context.Context, ids []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []model.QuestionNote
	if err := r.DB.WithContext(ctx).Where("question_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, n := range rows {
		out[n.QuestionID] = n.Content
	}
	return out, nil
}

func (r *NoteRepository) FindAnalysis(ctx context.Context, questionID uint, provider string) (*model.QuestionAnalysis, error) {
	var a model.QuestionAnalysis
	err := r.DB.WithContext(ctx).
		Where("question_id = ? AND provider = ?", questionID, provider).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *NoteRepository) UpsertAnalysis(ctx context.Context, questionID uint, provider, content string) error {
	a := model.QuestionAnalysis{QuestionID: questionID, Provider: provider, Content: content, UpdatedAt: time.Now()}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "question_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(&a).Error
}

func (r *NoteRepository) ListAnalyses(ctx context.Context, questionID uint) ([]model.QuestionAnalysis, error) {
	var rows []model.QuestionAnalysis
	err := r.DB.WithContext(ctx).Where("question_id = ?", questionID).Order("provider ASC").Find(&rows).Error
	return rows, err
}

// AnalysesFor 每道题取最近更新的一条解析，用于导出
func (r *NoteRepository) AnalysesFor(ctx context.Context, ids []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []model.QuestionAnalysis
	if err := r.DB.WithContext(ctx).Where("question_id IN ?", ids).Order("updated_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, a := range rows {
		out[a.QuestionID] = a.Content
	}
	return out, nil
}

func (r *NoteRepository) FindAsk(ctx context.Context, questionID uint, provider, promptHash string) (*model.QuestionAsk, error) {
	var a model.QuestionAsk
	err := r.DB.WithContext(ctx).
		Where("question_id = ? AND provider = ? AND prompt_hash = ?", questionID, provider, promptHash).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *NoteRepository) UpsertAsk(ctx context.Context, ask *model.QuestionAsk) error {
	ask.UpdatedAt = time.Now()
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "question_id"}, {Name: "provider"}, {Name: "prompt_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"prompt", "answer", "updated_at"}),
	}).Create(ask).Error
}
