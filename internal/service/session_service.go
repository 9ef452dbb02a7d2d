package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"quiz_bank_backend/internal/model"
	"quiz_bank_backend/internal/repository"
	"quiz_bank_backend/internal/util"
	"quiz_bank_backend/pkg/events"
	"quiz_bank_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	SourceFavorites = "favorites"
	SourceWrongBook = "wrong_book"
)

type StartRequest struct {
	Mode             model.SessionMode `json:"mode"`
	Source           string            `json:"source" binding:"required"`
	FileName         string            `json:"fileName"` // 收藏/错题来源下按文件过滤
	Count            *int              `json:"count"`
	Randomize        *bool             `json:"randomize"`
	SessionKey       string            `json:"sessionKey"`
	TimeLimitSeconds int               `json:"timeLimitSeconds"`
	ExamType         string            `json:"examType"`
	Restart          bool              `json:"restart"`
}

type SessionView struct {
	Progress *model.Progress `json:"progress"`
	Resumed  bool            `json:"resumed"`
}

type AnswerResult struct {
	QuestionID uint   `json:"questionId"`
	Correct    *bool  `json:"correct,omitempty"`
	Answer     string `json:"answer,omitempty"`
}

type SubmitResult struct {
	ScoreResult
	SessionKey      string            `json:"sessionKey"`
	Mode            model.SessionMode `json:"mode"`
	DurationSeconds int64             `json:"durationSeconds"`
}

// SubmittedEvent session.submitted 事件载荷
type SubmittedEvent struct {
	SessionKey string            `json:"sessionKey"`
	Mode       model.SessionMode `json:"mode"`
	FileName   string            `json:"fileName"`
	Score      int               `json:"score"`
	Total      int               `json:"total"`
	Unanswered int               `json:"unanswered"`
}

// SessionQuestion 按固定顺序返回的题目及其作答状态
type SessionQuestion struct {
	Index    int               `json:"index"`
	Question model.Question    `json:"question"`
	State    model.AnswerState `json:"state"`
}

type SessionService struct {
	QuestionRepo *repository.QuestionRepository
	FavoriteRepo *repository.FavoriteRepository
	WrongRepo    *repository.WrongAnswerRepository
	Progress     *ProgressService
	Scoring      *ScoringService
	Prefs        *PreferenceService
	Events       events.Publisher

	// Shuffle 可在测试中替换
	Shuffle func(n int, swap func(i, j int))
	Now     func() time.Time
}

func NewSessionService(
	questionRepo *repository.QuestionRepository,
	favoriteRepo *repository.FavoriteRepository,
	wrongRepo *repository.WrongAnswerRepository,
	progress *ProgressService,
	scoring *ScoringService,
	prefs *PreferenceService,
	publisher events.Publisher,
) *SessionService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &SessionService{
		QuestionRepo: questionRepo,
		FavoriteRepo: favoriteRepo,
		WrongRepo:    wrongRepo,
		Progress:     progress,
		Scoring:      scoring,
		Prefs:        prefs,
		Events:       publisher,
		Shuffle:      rand.Shuffle,
		Now:          time.Now,
	}
}

// SessionKey 默认的会话键 "<mode>:<source>"；收藏/错题按文件过滤时为 "<mode>:<source>:<file>"
func SessionKey(mode model.SessionMode, source, fileName string) string {
	if IsReservedSource(source) && fileName != "" {
		return fmt.Sprintf("%s:%s:%s", mode, source, fileName)
	}
	return fmt.Sprintf("%s:%s", mode, source)
}

// IsReservedSource 收藏和错题本占用的来源名，不能作为题库文件名
func IsReservedSource(name string) bool {
	return name == SourceFavorites || name == SourceWrongBook
}

// Start 开始练习或考试。同一会话键下未提交的进度直接恢复，题目顺序不会重新打乱
func (s *SessionService) Start(ctx context.Context, req StartRequest) (*SessionView, error) {
	mode := req.Mode
	if mode == "" {
		mode = model.ModePractice
	}
	if mode != model.ModePractice && mode != model.ModeExam {
		return nil, fmt.Errorf("%w: unknown mode %q", util.ErrInvalidAnswer, mode)
	}
	key := req.SessionKey
	if key == "" {
		key = SessionKey(mode, req.Source, req.FileName)
	}

	if !req.Restart {
		existing, err := s.Progress.Get(ctx, key)
		if err == nil && !existing.Finished {
			return &SessionView{Progress: existing, Resumed: true}, nil
		}
	}

	ids, err := s.sourceIDs(ctx, req.Source, req.FileName)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, util.ErrEmptySession
	}

	prefs := s.Prefs.Get()
	randomize, count := prefs.RandomizePractice, prefs.PracticeQuestionCount
	if mode == model.ModeExam {
		randomize, count = prefs.RandomizeExam, prefs.ExamQuestionCount
	}
	if req.Randomize != nil {
		randomize = *req.Randomize
	}
	if req.Count != nil {
		count = *req.Count
	}

	if randomize {
		s.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	}
	if count > 0 && count < len(ids) {
		ids = ids[:count]
	}

	p := &model.Progress{
		SessionKey:       key,
		Mode:             mode,
		FileName:         req.Source,
		QuestionOrder:    datatypes.JSONSlice[uint](ids),
		States:           datatypes.NewJSONType(model.AnswerStates{}),
		StartedAt:        s.Now(),
		TimeLimitSeconds: req.TimeLimitSeconds,
		ExamType:         req.ExamType,
	}
	if _, err := s.Progress.Save(ctx, p); err != nil {
		return nil, err
	}
	return &SessionView{Progress: p}, nil
}

func (s *SessionService) sourceIDs(ctx context.Context, source, fileName string) ([]uint, error) {
	switch source {
	case SourceFavorites:
		return s.FavoriteRepo.QuestionIDs(ctx, fileName)
	case SourceWrongBook:
		return s.WrongRepo.QuestionIDs(ctx, fileName)
	case "":
		return nil, util.ErrSourceNotFound
	default:
		return s.QuestionRepo.IDs(ctx, model.QuestionFilter{FileName: source})
	}
}

// Answer 记录选择；练习模式立即显示结果并返回对错，考试模式只记录
func (s *SessionService) Answer(ctx context.Context, key string, questionID uint, selected []int) (*AnswerResult, error) {
	p, err := s.Progress.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if p.Finished || s.expired(p) {
		// 超时后只能提交
		return nil, util.ErrSessionFinished
	}

	q, err := s.QuestionRepo.FindByID(ctx, questionID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrQuestionNotFound)
	}
	for _, i := range selected {
		if i < -1 || i >= len(q.Options) {
			return nil, fmt.Errorf("%w: option %d", util.ErrInvalidAnswer, i)
		}
	}

	practice := p.Mode == model.ModePractice
	if _, err := s.Progress.MarkAnswered(ctx, key, questionID, selected, practice); err != nil {
		return nil, err
	}

	res := &AnswerResult{QuestionID: questionID}
	if practice {
		correct := !IsUnanswered(selected) && IsCorrect(q, selected)
		res.Correct = &correct
		res.Answer = q.Answer
	}
	return res, nil
}

// expired 限时考试超过 StartedAt + TimeLimitSeconds
func (s *SessionService) expired(p *model.Progress) bool {
	if p.TimeLimitSeconds <= 0 {
		return false
	}
	deadline := p.StartedAt.Add(time.Duration(p.TimeLimitSeconds) * time.Second)
	return s.Now().After(deadline)
}

// Submit 评分、写历史和错题本、标记进度已完成
func (s *SessionService) Submit(ctx context.Context, key string) (*SubmitResult, error) {
	p, err := s.Progress.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if p.Finished {
		return nil, util.ErrSessionFinished
	}

	questions, err := s.QuestionRepo.FindByIDs(ctx, p.QuestionOrder)
	if err != nil {
		return nil, err
	}
	selections := make([][]int, len(questions))
	for i, q := range questions {
		selections[i] = p.StateOf(q.ID).Selected
	}
	res := Score(questions, selections)

	duration := s.Now().Sub(p.StartedAt)
	if duration < 0 {
		duration = 0
	}
	if limit := time.Duration(p.TimeLimitSeconds) * time.Second; limit > 0 && duration > limit {
		duration = limit
	}
	var exam *ExamMeta
	if p.Mode == model.ModeExam {
		exam = &ExamMeta{Duration: duration, ExamType: p.ExamType}
	}
	if err := s.Scoring.RecordResult(ctx, p.FileName, res, exam); err != nil {
		return nil, err
	}
	if exam != nil {
		if _, err := s.Prefs.IncrementExamCounter(ctx); err != nil {
			logger.Log.Warn("Increment exam counter failed", zap.Error(err))
		}
	}

	p.Finished = true
	if _, err := s.Progress.Save(ctx, p); err != nil {
		return nil, err
	}

	if err := s.Events.Publish(ctx, events.SessionSubmitted, SubmittedEvent{
		SessionKey: key,
		Mode:       p.Mode,
		FileName:   p.FileName,
		Score:      res.Score,
		Total:      res.Total,
		Unanswered: res.Unanswered,
	}); err != nil {
		logger.Log.Warn("Publish event failed", zap.String("type", events.SessionSubmitted), zap.Error(err))
	}

	return &SubmitResult{
		ScoreResult:     res,
		SessionKey:      key,
		Mode:            p.Mode,
		DurationSeconds: int64(duration / time.Second),
	}, nil
}

// Questions 按固定顺序返回题目；未提交时考试题目和未显示结果的练习题隐藏答案
func (s *SessionService) Questions(ctx context.Context, key string) ([]SessionQuestion, error) {
	p, err := s.Progress.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	questions, err := s.QuestionRepo.FindByIDs(ctx, p.QuestionOrder)
	if err != nil {
		return nil, err
	}

	out := make([]SessionQuestion, 0, len(questions))
	for i, q := range questions {
		st := p.StateOf(q.ID)
		if !p.Finished && (p.Mode == model.ModeExam || !st.ShowResult) {
			q.Answer = ""
			q.Explanation = ""
		}
		out = append(out, SessionQuestion{Index: i, Question: q, State: st})
	}
	return out, nil
}
