package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"quiz_bank_backend/internal/model"
	"quiz_bank_backend/internal/repository"
	"quiz_bank_backend/internal/util"
	"quiz_bank_backend/pkg/logger"

	"go.uber.org/zap"
)

const (
	ExportWrongBook = "wrong_book"
	ExportFavorite  = "favorite"

	EnvelopeVersion = "1.0"
)

// ExportEnvelope 备份文件格式，export_time 为毫秒时间戳
type ExportEnvelope struct {
	Version    string           `json:"version"`
	ExportType string           `json:"export_type"`
	ExportTime int64            `json:"export_time"`
	Questions  []ExportQuestion `json:"questions"`
}

type ExportQuestion struct {
	Content     string   `json:"content"`
	Type        string   `json:"type"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
	FileName    string   `json:"file_name"`
	Analysis    string   `json:"analysis,omitempty"`
	Note        string   `json:"note,omitempty"`
}

func (e *ExportEnvelope) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: empty envelope", util.ErrUnsupportedExportType)
	}
	if !strings.HasPrefix(e.Version, "1.") {
		return fmt.Errorf("%w: version %q", util.ErrUnsupportedExportType, e.Version)
	}
	switch e.ExportType {
	case ExportWrongBook, ExportFavorite:
		return nil
	}
	return fmt.Errorf("%w: %q", util.ErrUnsupportedExportType, e.ExportType)
}

// Tag 没有来源文件名的记录使用 "<类型>_<时间戳>" 作为来源
func (e *ExportEnvelope) Tag() string {
	return fmt.Sprintf("%s_%d", e.ExportType, e.ExportTime)
}

func (r ExportQuestion) toQuestion(fileName string) (*model.Question, error) {
	q := &model.Question{
		Content:     strings.TrimSpace(r.Content),
		Type:        model.QuestionType(r.Type),
		Options:     r.Options,
		Explanation: r.Explanation,
		FileName:    fileName,
	}
	if q.Content == "" {
		return nil, fmt.Errorf("%w: empty content", util.ErrInvalidAnswer)
	}
	if !q.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", util.ErrInvalidAnswer, r.Type)
	}
	if q.Type == model.QuestionJudge && len(q.Options) == 0 {
		q.Options = []string{"正确", "错误"}
	}
	if err := validateAnswer(q, r.Answer); err != nil {
		return nil, err
	}
	return q, nil
}

func fromQuestion(q *model.Question) ExportQuestion {
	return ExportQuestion{
		Content:     q.Content,
		Type:        string(q.Type),
		Options:     append([]string{}, q.Options...),
		Answer:      q.Answer,
		Explanation: q.Explanation,
		FileName:    q.FileName,
	}
}

type ExportResult struct {
	Envelope   *ExportEnvelope `json:"envelope"`
	ArchiveURL string          `json:"archiveUrl,omitempty"`
}

type ExportService struct {
	WrongRepo    *repository.WrongAnswerRepository
	FavoriteRepo *repository.FavoriteRepository
	NoteRepo     *repository.NoteRepository
	Storage      *StorageService
}

func NewExportService(
	wrongRepo *repository.WrongAnswerRepository,
	favoriteRepo *repository.FavoriteRepository,
	noteRepo *repository.NoteRepository,
	storage *StorageService,
) *ExportService {
	return &ExportService{
		WrongRepo:    wrongRepo,
		FavoriteRepo: favoriteRepo,
		NoteRepo:     noteRepo,
		Storage:      storage,
	}
}

// Export 导出错题本或收藏夹，附带 AI 解析和笔记，并归档到对象存储
func (s *ExportService) Export(ctx context.Context, exportType string) (*ExportResult, error) {
	questions, err := s.collect(ctx, exportType)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	analyses, err := s.NoteRepo.AnalysesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	notes, err := s.NoteRepo.NotesFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	env := &ExportEnvelope{
		Version:    EnvelopeVersion,
		ExportType: exportType,
		ExportTime: time.Now().UnixMilli(),
		Questions:  make([]ExportQuestion, 0, len(questions)),
	}
	for i := range questions {
		rec := fromQuestion(&questions[i])
		rec.Analysis = analyses[questions[i].ID]
		rec.Note = notes[questions[i].ID]
		env.Questions = append(env.Questions, rec)
	}

	result := &ExportResult{Envelope: env}
	if s.Storage != nil {
		data, err := json.Marshal(env)
		if err != nil {
			return nil, err
		}
		url, err := s.Storage.ArchiveExport(ctx, exportType, env.ExportTime, data)
		if err != nil {
			logger.Log.Warn("Archive export failed", zap.String("type", exportType), zap.Error(err))
		} else {
			result.ArchiveURL = url
		}
	}
	return result, nil
}

func (s *ExportService) collect(ctx context.Context, exportType string) ([]model.Question, error) {
	var out []model.Question
	switch exportType {
	case ExportWrongBook:
		rows, err := s.WrongRepo.List(ctx, "")
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			if r.Question != nil {
				out = append(out, *r.Question)
			}
		}
	case ExportFavorite:
		rows, err := s.FavoriteRepo.List(ctx, "")
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			if r.Question != nil {
				out = append(out, *r.Question)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", util.ErrUnsupportedExportType, exportType)
	}
	return out, nil
}

// DecodeEnvelope 解析备份 JSON
func DecodeEnvelope(data []byte) (*ExportEnvelope, error) {
	var env ExportEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}
