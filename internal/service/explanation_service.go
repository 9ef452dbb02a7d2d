package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"quiz_bank_backend/internal/ai"
	"quiz_bank_backend/internal/model"
	"quiz_bank_backend/internal/repository"
	"quiz_bank_backend/internal/util"
	"quiz_bank_backend/pkg/logger"
	"quiz_bank_backend/pkg/monitoring"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// PlaceholderExplanation 网络失败时返回给用户的文本，不写入任何缓存
const PlaceholderExplanation = "AI 解析暂时无法获取，请检查网络后重试。"

const (
	SourceMemory      = "memory"
	SourceRedis       = "redis"
	SourceDatabase    = "database"
	SourceNetwork     = "network"
	SourcePlaceholder = "placeholder"
)

type ExplanationResult struct {
	QuestionID uint   `json:"questionId"`
	Provider   string `json:"provider"`
	Content    string `json:"content"`
	Source     string `json:"source"`
	Failed     bool   `json:"failed"`
	Error      string `json:"error,omitempty"`
}

type ExplanationService struct {
	QuestionRepo *repository.QuestionRepository
	NoteRepo     *repository.NoteRepository
	Registry     *ai.Registry
	Cache        ExplanationCache

	// 同一服务商同一题目同时只有一个网络请求
	group singleflight.Group
}

func NewExplanationService(
	questionRepo *repository.QuestionRepository,
	noteRepo *repository.NoteRepository,
	registry *ai.Registry,
	cache ExplanationCache,
) *ExplanationService {
	if cache == nil {
		cache = NewMemoryExplanationCache(0, 0)
	}
	return &ExplanationService{
		QuestionRepo: questionRepo,
		NoteRepo:     noteRepo,
		Registry:     registry,
		Cache:        cache,
	}
}

func explainKey(provider string, questionID uint) string {
	return fmt.Sprintf("explain:%s:%d", provider, questionID)
}

func askKey(provider string, questionID uint, promptHash string) string {
	return fmt.Sprintf("ask:%s:%d:%s", provider, questionID, promptHash)
}

// PromptHash 追问缓存的键
func PromptHash(prompt string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(prompt)))
	return hex.EncodeToString(sum[:])
}

// Explain 依次查询热缓存、数据库、服务商；force 时跳过缓存重新请求
func (s *ExplanationService) Explain(ctx context.Context, questionID uint, provider string, force bool) (*ExplanationResult, error) {
	client, err := s.Registry.Get(provider)
	if err != nil {
		return nil, err
	}
	key := explainKey(provider, questionID)
	res := &ExplanationResult{QuestionID: questionID, Provider: provider}

	if !force {
		if content, ok := s.Cache.Get(ctx, key); ok {
			monitoring.AICacheHits.WithLabelValues(s.Cache.Layer()).Inc()
			res.Content, res.Source = content, s.Cache.Layer()
			return res, nil
		}
		a, err := s.NoteRepo.FindAnalysis(ctx, questionID, provider)
		if err == nil {
			monitoring.AICacheHits.WithLabelValues(SourceDatabase).Inc()
			s.Cache.Set(ctx, key, a.Content)
			res.Content, res.Source = a.Content, SourceDatabase
			return res, nil
		}
		if !isNotFound(err) {
			logger.Log.Warn("Load analysis failed", zap.Uint("questionID", questionID), zap.Error(err))
		}
	}

	q, err := s.QuestionRepo.FindByID(ctx, questionID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrQuestionNotFound)
	}

	content, err := s.shared(ctx, key, func(ctx context.Context) (string, error) {
		content, err := client.Complete(ctx, ai.ExplainMessages(q))
		if err != nil {
			return "", err
		}
		if err := s.NoteRepo.UpsertAnalysis(ctx, questionID, provider, content); err != nil {
			logger.Log.Error("Save analysis failed", zap.Uint("questionID", questionID), zap.Error(err))
		}
		s.Cache.Set(ctx, key, content)
		return content, nil
	})
	if err != nil {
		return placeholder(res, err), nil
	}
	res.Content, res.Source = content, SourceNetwork
	return res, nil
}

// Ask 针对题目的自由追问，按提示词哈希缓存
func (s *ExplanationService) Ask(ctx context.Context, questionID uint, provider, prompt string) (*ExplanationResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.New("prompt is required")
	}
	client, err := s.Registry.Get(provider)
	if err != nil {
		return nil, err
	}
	hash := PromptHash(prompt)
	key := askKey(provider, questionID, hash)
	res := &ExplanationResult{QuestionID: questionID, Provider: provider}

	if content, ok := s.Cache.Get(ctx, key); ok {
		monitoring.AICacheHits.WithLabelValues(s.Cache.Layer()).Inc()
		res.Content, res.Source = content, s.Cache.Layer()
		return res, nil
	}
	if a, err := s.NoteRepo.FindAsk(ctx, questionID, provider, hash); err == nil {
		monitoring.AICacheHits.WithLabelValues(SourceDatabase).Inc()
		s.Cache.Set(ctx, key, a.Answer)
		res.Content, res.Source = a.Answer, SourceDatabase
		return res, nil
	}

	q, err := s.QuestionRepo.FindByID(ctx, questionID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrQuestionNotFound)
	}

	answer, err := s.shared(ctx, key, func(ctx context.Context) (string, error) {
		answer, err := client.Complete(ctx, ai.AskMessages(q, prompt))
		if err != nil {
			return "", err
		}
		ask := &model.QuestionAsk{QuestionID: questionID, Provider: provider, PromptHash: hash, Prompt: prompt, Answer: answer}
		if err := s.NoteRepo.UpsertAsk(ctx, ask); err != nil {
			logger.Log.Error("Save ask failed", zap.Uint("questionID", questionID), zap.Error(err))
		}
		s.Cache.Set(ctx, key, answer)
		return answer, nil
	})
	if err != nil {
		return placeholder(res, err), nil
	}
	res.Content, res.Source = answer, SourceNetwork
	return res, nil
}

// shared 同一 key 只发起一次请求。请求本身不随发起者取消，由客户端超时兜底；
// 每个调用方只在自己的 ctx 结束时提前返回
func (s *ExplanationService) shared(ctx context.Context, key string, fn func(ctx context.Context) (string, error)) (string, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return fn(detached)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	}
}

// List 返回各服务商已缓存的解析
func (s *ExplanationService) List(ctx context.Context, questionID uint) ([]model.QuestionAnalysis, error) {
	return s.NoteRepo.ListAnalyses(ctx, questionID)
}

func (s *ExplanationService) Providers() []string {
	return s.Registry.Names()
}

func placeholder(res *ExplanationResult, err error) *ExplanationResult {
	logger.Log.Warn("AI request failed",
		zap.String("provider", res.Provider),
		zap.Uint("questionID", res.QuestionID),
		zap.Error(err))
	res.Content = PlaceholderExplanation
	res.Source = SourcePlaceholder
	res.Failed = true
	res.Error = err.Error()
	return res
}

func logCacheError(op, key string, err error) {
	logger.Log.Warn("Explanation cache error", zap.String("op", op), zap.String("key", key), zap.Error(err))
}
