package service

import (
	"context"
	"fmt"
	"strings"

	"quiz_bank_backend/internal/model"
	"quiz_bank_backend/internal/parser"
	"quiz_bank_backend/internal/repository"
	"quiz_bank_backend/internal/util"
	"quiz_bank_backend/pkg/logger"

	"go.uber.org/zap"
)

type QuestionService struct {
	QuestionRepo *repository.QuestionRepository
}

func NewQuestionService(questionRepo *repository.QuestionRepository) *QuestionService {
	return &QuestionService{QuestionRepo: questionRepo}
}

func (s *QuestionService) List(ctx context.Context, f model.QuestionFilter, page, limit int) ([]model.Question, int64, error) {
	return s.QuestionRepo.List(ctx, f, page, limit)
}

func (s *QuestionService) Get(ctx context.Context, id uint) (*model.Question, error) {
	q, err := s.QuestionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, util.ErrQuestionNotFound)
	}
	return q, nil
}

// QuestionUpdate 为 nil 的字段保持不变
type QuestionUpdate struct {
	Content     *string             `json:"content"`
	Type        *model.QuestionType `json:"type"`
	Options     []string            `json:"options"`
	Answer      *string             `json:"answer"`
	Explanation *string             `json:"explanation"`
}

func (s *QuestionService) Update(ctx context.Context, id uint, u QuestionUpdate) (*model.Question, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Content != nil {
		q.Content = strings.TrimSpace(*u.Content)
	}
	if u.Type != nil {
		if !u.Type.Valid() {
			return nil, fmt.Errorf("%w: unknown type %q", util.ErrInvalidAnswer, *u.Type)
		}
		q.Type = *u.Type
	}
	if u.Options != nil {
		q.Options = u.Options
	}
	if u.Explanation != nil {
		q.Explanation = *u.Explanation
	}
	answer := q.Answer
	if u.Answer != nil {
		answer = *u.Answer
	}
	if err := validateAnswer(q, answer); err != nil {
		return nil, err
	}
	if q.Content == "" {
		return nil, fmt.Errorf("%w: empty content", util.ErrInvalidAnswer)
	}

	if err := s.QuestionRepo.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// validateAnswer 规范化答案并检查其是否落在选项范围内
func validateAnswer(q *model.Question, raw string) error {
	normalized := parser.NormalizeAnswer(raw, q.Type)
	indices, ok := parser.AnswerToIndices(normalized)
	if !ok {
		return fmt.Errorf("%w: %q", util.ErrInvalidAnswer, raw)
	}
	for _, i := range indices {
		if i >= len(q.Options) {
			return fmt.Errorf("%w: %q out of range", util.ErrInvalidAnswer, raw)
		}
	}
	if q.Type != model.QuestionMultiple && len(indices) != 1 {
		return fmt.Errorf("%w: %s question needs exactly one answer", util.ErrInvalidAnswer, q.Type)
	}
	q.Answer = normalized
	return nil
}

func (s *QuestionService) Delete(ctx context.Context, id uint) error {
	return notFoundAs(s.QuestionRepo.Delete(ctx, id), util.ErrQuestionNotFound)
}

func (s *QuestionService) ListSources(ctx context.Context) ([]model.SourceFile, error) {
	return s.QuestionRepo.ListSources(ctx)
}

// DeleteSource 删除整个题库文件及其派生数据
func (s *QuestionService) DeleteSource(ctx context.Context, fileName string) (int64, error) {
	n, err := s.QuestionRepo.DeleteBySource(ctx, fileName)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, util.ErrSourceNotFound
	}
	logger.Log.Info("Question source deleted", zap.String("file", fileName), zap.Int64("questions", n))
	return n, nil
}
