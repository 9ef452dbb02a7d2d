package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"quiz_bank_backend/internal/repository"
	"quiz_bank_backend/pkg/logger"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

const (
	PrefPracticeFontSize      = "practice_font_size"
	PrefExamFontSize          = "exam_font_size"
	PrefFontStyle             = "font_style"
	PrefExamQuestionCount     = "exam_question_count"
	PrefPracticeQuestionCount = "practice_question_count"
	PrefRandomizePractice     = "randomize_practice"
	PrefRandomizeExam         = "randomize_exam"
	PrefRandomizeOptions      = "randomize_options"
	PrefCorrectDelayMs        = "correct_answer_delay_ms"
	PrefWrongDelayMs          = "wrong_answer_delay_ms"
	PrefSoundEnabled          = "sound_enabled"
	PrefDarkTheme             = "dark_theme"
	PrefLastSelectedFile      = "last_selected_file"
	PrefLastSelectedTab       = "last_selected_tab"
	PrefExamCounter           = "exam_counter"
)

var (
	ErrUnknownPreference = errors.New("unknown preference key")
	ErrInvalidPreference = errors.New("invalid preference value")
)

type prefKind int

const (
	kindInt prefKind = iota
	kindBool
	kindString
)

type prefDef struct {
	kind prefKind
	def  string
}

var preferenceDefs = map[string]prefDef{
	PrefPracticeFontSize:      {kindInt, "16"},
	PrefExamFontSize:          {kindInt, "16"},
	PrefFontStyle:             {kindString, "default"},
	PrefExamQuestionCount:     {kindInt, "50"},
	PrefPracticeQuestionCount: {kindInt, "0"},
	PrefRandomizePractice:     {kindBool, "false"},
	PrefRandomizeExam:         {kindBool, "true"},
	PrefRandomizeOptions:      {kindBool, "false"},
	PrefCorrectDelayMs:        {kindInt, "1000"},
	PrefWrongDelayMs:          {kindInt, "2000"},
	PrefSoundEnabled:          {kindBool, "true"},
	PrefDarkTheme:             {kindBool, "false"},
	PrefLastSelectedFile:      {kindString, ""},
	PrefLastSelectedTab:       {kindInt, "0"},
	PrefExamCounter:           {kindInt, "0"},
}

// Preferences 类型化的偏好设置快照，PracticeQuestionCount 为 0 表示全部题目
type Preferences struct {
	PracticeFontSize      int    `json:"practice_font_size"`
	ExamFontSize          int    `json:"exam_font_size"`
	FontStyle             string `json:"font_style"`
	ExamQuestionCount     int    `json:"exam_question_count"`
	PracticeQuestionCount int    `json:"practice_question_count"`
	RandomizePractice     bool   `json:"randomize_practice"`
	RandomizeExam         bool   `json:"randomize_exam"`
	RandomizeOptions      bool   `json:"randomize_options"`
	CorrectAnswerDelayMs  int    `json:"correct_answer_delay_ms"`
	WrongAnswerDelayMs    int    `json:"wrong_answer_delay_ms"`
	SoundEnabled          bool   `json:"sound_enabled"`
	DarkTheme             bool   `json:"dark_theme"`
	LastSelectedFile      string `json:"last_selected_file"`
	LastSelectedTab       int    `json:"last_selected_tab"`
	ExamCounter           int    `json:"exam_counter"`
}

// PreferenceService 内存中保存一份偏好设置，修改时写穿到数据库；写库失败的键在 Close 时重试
type PreferenceService struct {
	Repo *repository.PreferenceRepository

	mu     sync.RWMutex
	values map[string]string
	dirty  map[string]string
}

func NewPreferenceService(repo *repository.PreferenceRepository) *PreferenceService {
	return &PreferenceService{
		Repo:   repo,
		values: make(map[string]string),
		dirty:  make(map[string]string),
	}
}

// Open 从数据库加载全部偏好；读取失败时使用默认值
func (s *PreferenceService) Open(ctx context.Context) error {
	stored, err := s.Repo.All(ctx)
	if err != nil {
		logger.Log.Warn("Load preferences failed, using defaults", zap.Error(err))
		return err
	}
	s.mu.Lock()
	for k, v := range stored {
		if _, ok := preferenceDefs[k]; ok {
			s.values[k] = v
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *PreferenceService) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Preferences{
		PracticeFontSize:      cast.ToInt(s.raw(PrefPracticeFontSize)),
		ExamFontSize:          cast.ToInt(s.raw(PrefExamFontSize)),
		FontStyle:             s.raw(PrefFontStyle),
		ExamQuestionCount:     cast.ToInt(s.raw(PrefExamQuestionCount)),
		PracticeQuestionCount: cast.ToInt(s.raw(PrefPracticeQuestionCount)),
		RandomizePractice:     cast.ToBool(s.raw(PrefRandomizePractice)),
		RandomizeExam:         cast.ToBool(s.raw(PrefRandomizeExam)),
		RandomizeOptions:      cast.ToBool(s.raw(PrefRandomizeOptions)),
		CorrectAnswerDelayMs:  cast.ToInt(s.raw(PrefCorrectDelayMs)),
		WrongAnswerDelayMs:    cast.ToInt(s.raw(PrefWrongDelayMs)),
		SoundEnabled:          cast.ToBool(s.raw(PrefSoundEnabled)),
		DarkTheme:             cast.ToBool(s.raw(PrefDarkTheme)),
		LastSelectedFile:      s.raw(PrefLastSelectedFile),
		LastSelectedTab:       cast.ToInt(s.raw(PrefLastSelectedTab)),
		ExamCounter:           cast.ToInt(s.raw(PrefExamCounter)),
	}
}

// raw 调用方需持有读锁
func (s *PreferenceService) raw(key string) string {
	if v, ok := s.values[key]; ok {
		return v
	}
	return preferenceDefs[key].def
}

// Update 按键部分更新，值会按键的类型校验并规范化
func (s *PreferenceService) Update(ctx context.Context, patch map[string]interface{}) (Preferences, error) {
	normalized := make(map[string]string, len(patch))
	for k, v := range patch {
		def, ok := preferenceDefs[k]
		if !ok {
			return Preferences{}, fmt.Errorf("%w: %s", ErrUnknownPreference, k)
		}
		str, err := normalizePreference(def.kind, v)
		if err != nil {
			return Preferences{}, fmt.Errorf("%w: %s: %v", ErrInvalidPreference, k, err)
		}
		normalized[k] = str
	}

	s.mu.Lock()
	for k, v := range normalized {
		s.values[k] = v
	}
	s.mu.Unlock()

	if err := s.write(ctx, normalized); err != nil {
		return s.Get(), err
	}
	return s.Get(), nil
}

// IncrementExamCounter 考试提交后累加考试次数
func (s *PreferenceService) IncrementExamCounter(ctx context.Context) (int, error) {
	s.mu.Lock()
	next := cast.ToInt(s.raw(PrefExamCounter)) + 1
	s.values[PrefExamCounter] = strconv.Itoa(next)
	s.mu.Unlock()

	return next, s.write(ctx, map[string]string{PrefExamCounter: strconv.Itoa(next)})
}

// Close 把之前写库失败的键再写一次
func (s *PreferenceService) Close(ctx context.Context) error {
	s.mu.Lock()
	pending := s.dirty
	s.dirty = make(map[string]string)
	s.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}
	if err := s.Repo.SetMany(ctx, pending); err != nil {
		logger.Log.Error("Flush preferences failed", zap.Error(err))
		return err
	}
	return nil
}

func (s *PreferenceService) write(ctx context.Context, values map[string]string) error {
	if err := s.Repo.SetMany(ctx, values); err != nil {
		logger.Log.Warn("Persist preferences failed", zap.Error(err))
		s.mu.Lock()
		for k, v := range values {
			s.dirty[k] = v
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

func normalizePreference(kind prefKind, v interface{}) (string, error) {
	switch kind {
	case kindInt:
		n, err := cast.ToIntE(v)
		if err != nil {
			return "", err
		}
		if n < 0 {
			return "", fmt.Errorf("negative value %d", n)
		}
		return strconv.Itoa(n), nil
	case kindBool:
		b, err := cast.ToBoolE(v)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	default:
		return cast.ToStringE(v)
	}
}
