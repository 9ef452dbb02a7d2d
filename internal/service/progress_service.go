package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"quiz_bank_backend/internal/model"
	"quiz_bank_backend/internal/repository"
	"quiz_bank_backend/internal/util"
	"quiz_bank_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type ProgressService struct {
	ProgressRepo *repository.ProgressRepository
	Hub          *ProgressHub

	// 保证保存与广播、读取与订阅的先后一致
	mu sync.Mutex
}

func NewProgressService(progressRepo *repository.ProgressRepository, hub *ProgressHub) *ProgressService {
	if hub == nil {
		hub = NewProgressHub()
	}
	return &ProgressService{ProgressRepo: progressRepo, Hub: hub}
}

// Save 按 session key 覆盖保存。与已保存内容相同的快照不写库也不通知，返回 false
func (s *ProgressService) Save(ctx context.Context, p *model.Progress) (bool, error) {
	if p.SessionKey == "" {
		return false, util.ErrProgressNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx, p)
}

// saveLocked 调用方需持有 s.mu
func (s *ProgressService) saveLocked(ctx context.Context, p *model.Progress) (bool, error) {
	fp := Fingerprint(p)
	existing, err := s.ProgressRepo.FindByKey(ctx, p.SessionKey)
	if err != nil && !isNotFound(err) {
		return false, err
	}
	if existing != nil && existing.Fingerprint == fp {
		return false, nil
	}

	next := cloneProgress(p)
	next.Fingerprint = fp
	if err := s.ProgressRepo.Save(ctx, next); err != nil {
		return false, err
	}
	p.ID, p.CreatedAt, p.UpdatedAt, p.Fingerprint = next.ID, next.CreatedAt, next.UpdatedAt, fp

	s.Hub.Publish(ProgressSnapshot{SessionKey: p.SessionKey, Progress: cloneProgress(next)})
	return true, nil
}

func (s *ProgressService) Get(ctx context.Context, key string) (*model.Progress, error) {
	p, err := s.ProgressRepo.FindByKey(ctx, key)
	if err != nil {
		return nil, notFoundAs(err, util.ErrProgressNotFound)
	}
	return p, nil
}

// Observe 先推送当前值，之后每次变化推送一次；调用 cancel 结束观察
func (s *ProgressService) Observe(ctx context.Context, key string) (<-chan ProgressSnapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	initial := ProgressSnapshot{SessionKey: key}
	p, err := s.ProgressRepo.FindByKey(ctx, key)
	switch {
	case err == nil:
		initial.Progress = p
	case !isNotFound(err):
		// 读取失败按无数据处理
		logger.Log.Warn("Load progress for observer failed", zap.String("key", key), zap.Error(err))
	}
	return s.Hub.Subscribe(key, initial)
}

func (s *ProgressService) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ProgressRepo.DeleteByKey(ctx, key); err != nil {
		return err
	}
	s.Hub.Publish(ProgressSnapshot{SessionKey: key})
	return nil
}

func (s *ProgressService) List(ctx context.Context) ([]model.Progress, error) {
	return s.ProgressRepo.List(ctx)
}

// update 在同一把锁内读取、修改并保存一份进度，并发修改不会互相覆盖
func (s *ProgressService) update(ctx context.Context, key string, mutate func(p *model.Progress) error) (*model.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := mutate(p); err != nil {
		return nil, err
	}
	if _, err := s.saveLocked(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProgressService) MarkAnswered(ctx context.Context, key string, questionID uint, selected []int, showResult bool) (*model.Progress, error) {
	return s.update(ctx, key, func(p *model.Progress) error {
		if !containsID(p.QuestionOrder, questionID) {
			return util.ErrQuestionNotFound
		}
		st := p.StateOf(questionID)
		st.Selected = append([]int(nil), selected...)
		st.ShowResult = showResult
		now := time.Now()
		st.AnsweredAt = &now
		p.SetState(questionID, st)
		return nil
	})
}

func (s *ProgressService) SetNote(ctx context.Context, key string, questionID uint, note string) (*model.Progress, error) {
	return s.update(ctx, key, func(p *model.Progress) error {
		if !containsID(p.QuestionOrder, questionID) {
			return util.ErrQuestionNotFound
		}
		st := p.StateOf(questionID)
		st.Note = note
		p.SetState(questionID, st)
		return nil
	})
}

func (s *ProgressService) SetAnalysis(ctx context.Context, key string, questionID uint, analysis string) (*model.Progress, error) {
	return s.update(ctx, key, func(p *model.Progress) error {
		if !containsID(p.QuestionOrder, questionID) {
			return util.ErrQuestionNotFound
		}
		st := p.StateOf(questionID)
		st.Analysis = analysis
		p.SetState(questionID, st)
		return nil
	})
}

func (s *ProgressService) MoveTo(ctx context.Context, key string, index int) (*model.Progress, error) {
	return s.update(ctx, key, func(p *model.Progress) error {
		if index < 0 || index >= len(p.QuestionOrder) {
			return util.ErrInvalidAnswer
		}
		p.CurrentIndex = index
		return nil
	})
}

type fingerprintFields struct {
	Mode             model.SessionMode  `json:"m"`
	FileName         string             `json:"f"`
	QuestionOrder    []uint             `json:"o"`
	CurrentIndex     int                `json:"i"`
	States           model.AnswerStates `json:"s"`
	StartedAt        int64              `json:"t"`
	TimeLimitSeconds int                `json:"l"`
	ExamType         string             `json:"e"`
	Finished         bool               `json:"d"`
}

// Fingerprint 快照内容的摘要，用于识别重复保存
func Fingerprint(p *model.Progress) string {
	states := p.States.Data()
	if len(states) == 0 {
		states = nil
	}
	data, _ := json.Marshal(fingerprintFields{
		Mode:             p.Mode,
		FileName:         p.FileName,
		QuestionOrder:    p.QuestionOrder,
		CurrentIndex:     p.CurrentIndex,
		States:           states,
		StartedAt:        p.StartedAt.UnixMilli(),
		TimeLimitSeconds: p.TimeLimitSeconds,
		ExamType:         p.ExamType,
		Finished:         p.Finished,
	})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func cloneProgress(p *model.Progress) *model.Progress {
	c := *p
	c.QuestionOrder = append(datatypes.JSONSlice[uint](nil), p.QuestionOrder...)
	states := p.States.Data()
	copied := make(model.AnswerStates, len(states))
	for k, v := range states {
		v.Selected = append([]int(nil), v.Selected...)
		copied[k] = v
	}
	c.States = datatypes.NewJSONType(copied)
	return &c
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
