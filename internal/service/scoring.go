package service

import (
	"context"
	"fmt"
	"time"

	"quiz_bank_backend/internal/model"
	"quiz_bank_backend/internal/parser"
	"quiz_bank_backend/internal/repository"
)

// WrongEntry 一道答错的题及其选择
type WrongEntry struct {
	Question model.Question `json:"question"`
	Selected []int          `json:"selected"`
}

type ScoreResult struct {
	Score      int          `json:"score"`
	Total      int          `json:"total"`
	Unanswered int          `json:"unanswered"`
	Wrong      []WrongEntry `json:"wrong"`
}

// IsUnanswered 空选择或只包含 -1 视为未作答
func IsUnanswered(selected []int) bool {
	for _, i := range selected {
		if i >= 0 {
			return false
		}
	}
	return true
}

// IsCorrect 单选/判断题必须恰好选一个且等于答案；多选题选择集合与答案集合相等
func IsCorrect(q *model.Question, selected []int) bool {
	picked := make(map[int]bool, len(selected))
	for _, i := range selected {
		if i >= 0 {
			picked[i] = true
		}
	}

	if q.Type == model.QuestionMultiple {
		want, ok := parser.AnswerToIndices(q.Answer)
		if !ok || len(want) != len(picked) {
			return false
		}
		for _, i := range want {
			if !picked[i] {
				return false
			}
		}
		return true
	}

	want, ok := parser.AnswerLetterToIndex(q.Answer)
	if !ok || len(picked) != 1 {
		return false
	}
	return picked[want]
}

// Score selections[i] 对应 questions[i]，缺失视为未作答
func Score(questions []model.Question, selections [][]int) ScoreResult {
	res := ScoreResult{Total: len(questions), Wrong: []WrongEntry{}}
	for i := range questions {
		var selected []int
		if i < len(selections) {
			selected = selections[i]
		}
		if IsUnanswered(selected) {
			res.Unanswered++
			continue
		}
		if IsCorrect(&questions[i], selected) {
			res.Score++
			continue
		}
		res.Wrong = append(res.Wrong, WrongEntry{
			Question: questions[i],
			Selected: append([]int(nil), selected...),
		})
	}
	return res
}

// ExamMeta 考试记录附加信息
type ExamMeta struct {
	Duration time.Duration
	ExamType string
}

type ScoringService struct {
	HistoryRepo *repository.HistoryRepository
	WrongRepo   *repository.WrongAnswerRepository
}

func NewScoringService(historyRepo *repository.HistoryRepository, wrongRepo *repository.WrongAnswerRepository) *ScoringService {
	return &ScoringService{HistoryRepo: historyRepo, WrongRepo: wrongRepo}
}

// RecordResult 写入一条历史记录（exam 非 nil 时写考试记录）并把答错的题加入错题本
func (s *ScoringService) RecordResult(ctx context.Context, fileName string, res ScoreResult, exam *ExamMeta) error {
	if exam != nil {
		rec := &model.ExamHistoryRecord{
			Score:           res.Score,
			Total:           res.Total,
			Unanswered:      res.Unanswered,
			FileName:        fileName,
			DurationSeconds: int64(exam.Duration / time.Second),
			ExamType:        exam.ExamType,
		}
		if err := s.HistoryRepo.CreateExam(ctx, rec); err != nil {
			return fmt.Errorf("save exam history: %w", err)
		}
	} else {
		rec := &model.HistoryRecord{
			Score:      res.Score,
			Total:      res.Total,
			Unanswered: res.Unanswered,
			FileName:   fileName,
		}
		if err := s.HistoryRepo.CreatePractice(ctx, rec); err != nil {
			return fmt.Errorf("save history: %w", err)
		}
	}

	for _, w := range res.Wrong {
		if err := s.WrongRepo.Record(ctx, w.Question.ID, w.Question.FileName, w.Selected); err != nil {
			return fmt.Errorf("record wrong answer %d: %w", w.Question.ID, err)
		}
	}
	return nil
}
