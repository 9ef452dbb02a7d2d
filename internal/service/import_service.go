package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"quiz_bank_backend/internal/model"
	"quiz_bank_backend/internal/parser"
	"quiz_bank_backend/internal/repository"
	"quiz_bank_backend/internal/util"
	"quiz_bank_backend/pkg/events"
	"quiz_bank_backend/pkg/logger"
	"quiz_bank_backend/pkg/monitoring"
	"quiz_bank_backend/pkg/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// backupProvider 从备份恢复的解析所使用的服务商名
const backupProvider = "backup"

type ImportFile struct {
	Name string
	Data []byte
	// Rejected 上传校验未通过，记为该文件的失败原因，其余文件照常导入
	Rejected error
}

type ImportOptions struct {
	FolderID *uint
}

type FileResult struct {
	FileName   string `json:"fileName"`
	Imported   int    `json:"imported"`
	ArchiveURL string `json:"archiveUrl,omitempty"`
}

type ImportResult struct {
	Files      []FileResult  `json:"files"`
	Duplicates []string      `json:"duplicates"`
	Failures   []FileFailure `json:"failures"`
	Total      int           `json:"total"`
}

// ImportedEvent questions.imported 事件载荷
type ImportedEvent struct {
	FileName string `json:"fileName"`
	Count    int    `json:"count"`
}

type ImportService struct {
	QuestionRepo *repository.QuestionRepository
	FolderRepo   *repository.FolderRepository
	FavoriteRepo *repository.FavoriteRepository
	WrongRepo    *repository.WrongAnswerRepository
	NoteRepo     *repository.NoteRepository
	Storage      *StorageService
	Events       events.Publisher
	Archive      bool

	mu   sync.Mutex
	jobs map[string]*importJob
}

func NewImportService(
	questionRepo *repository.QuestionRepository,
	folderRepo *repository.FolderRepository,
	favoriteRepo *repository.FavoriteRepository,
	wrongRepo *repository.WrongAnswerRepository,
	noteRepo *repository.NoteRepository,
	storage *StorageService,
	publisher events.Publisher,
	archive bool,
) *ImportService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &ImportService{
		QuestionRepo: questionRepo,
		FolderRepo:   folderRepo,
		FavoriteRepo: favoriteRepo,
		WrongRepo:    wrongRepo,
		NoteRepo:     noteRepo,
		Storage:      storage,
		Events:       publisher,
		Archive:      archive,
		jobs:         make(map[string]*importJob),
	}
}

// Import 逐个文件导入，文件之间检查 ctx；同名文件跳过，解析失败的文件汇总返回
func (s *ImportService) Import(ctx context.Context, files []ImportFile, opts ImportOptions) (result *ImportResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "import.run", attribute.Int("import.files", len(files)))
	defer func() { tracing.EndSpan(span, err) }()

	result = &ImportResult{Files: []FileResult{}, Duplicates: []string{}, Failures: []FileFailure{}}
	seen := make(map[string]bool, len(files))

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		name := util.SourceName(f.Name)
		if f.Rejected != nil {
			s.fail(result, name, f.Rejected)
			continue
		}
		if IsReservedSource(name) {
			s.fail(result, name, fmt.Errorf("file name %q is reserved", name))
			continue
		}
		duplicate := seen[name]
		if !duplicate {
			exists, err := s.QuestionRepo.ExistsFileName(ctx, name)
			if err != nil {
				s.fail(result, name, err)
				continue
			}
			duplicate = exists
		}
		if duplicate {
			result.Duplicates = append(result.Duplicates, name)
			monitoring.ImportedFiles.WithLabelValues("duplicate").Inc()
			continue
		}

		fr, err := s.importOne(ctx, name, f.Data)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			s.fail(result, name, err)
			continue
		}
		seen[name] = true
		monitoring.ImportedFiles.WithLabelValues("imported").Inc()

		if opts.FolderID != nil && s.FolderRepo != nil {
			// 文件夹分配与题目写入不在同一事务
			if err := s.FolderRepo.Assign(ctx, name, *opts.FolderID); err != nil {
				logger.Log.Warn("Assign imported file to folder failed", zap.String("file", name), zap.Error(err))
			}
		}

		result.Files = append(result.Files, *fr)
		result.Total += fr.Imported
	}

	if len(result.Duplicates) > 0 {
		return result, &DuplicateFilesError{Files: result.Duplicates}
	}
	if len(result.Failures) > 0 {
		return result, &ImportFailuresError{Failures: result.Failures}
	}
	return result, nil
}

func (s *ImportService) importOne(ctx context.Context, name string, data []byte) (*FileResult, error) {
	questions, err := parser.ParseFile(name, data)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		questions[i].FileName = name
	}

	err = s.QuestionRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.QuestionRepo.WithTx(tx).CreateBatch(ctx, questions)
	})
	if err != nil {
		return nil, fmt.Errorf("save questions: %w", err)
	}

	fr := &FileResult{FileName: name, Imported: len(questions)}
	if s.Archive && s.Storage != nil {
		url, err := s.Storage.ArchiveImport(ctx, name, data)
		if err != nil {
			logger.Log.Warn("Archive imported file failed", zap.String("file", name), zap.Error(err))
		} else {
			fr.ArchiveURL = url
		}
	}
	s.publish(ctx, events.QuestionsImported, ImportedEvent{FileName: name, Count: len(questions)})

	logger.Log.Info("Question file imported", zap.String("file", name), zap.Int("questions", len(questions)))
	return fr, nil
}

func (s *ImportService) fail(result *ImportResult, name string, err error) {
	monitoring.ImportedFiles.WithLabelValues("failed").Inc()
	logger.Log.Warn("Import file failed", zap.String("file", name), zap.Error(err))
	result.Failures = append(result.Failures, FileFailure{FileName: name, Reason: err.Error()})
}

func (s *ImportService) publish(ctx context.Context, eventType string, payload interface{}) {
	if err := s.Events.Publish(ctx, eventType, payload); err != nil {
		logger.Log.Warn("Publish event failed", zap.String("type", eventType), zap.Error(err))
	}
}

// ImportEnvelope 从导出的备份恢复题目、解析与笔记，已存在的同名同内容题目不会重复插入
func (s *ImportService) ImportEnvelope(ctx context.Context, env *ExportEnvelope) (*ImportResult, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	tag := env.Tag()
	result := &ImportResult{Files: []FileResult{}, Duplicates: []string{}, Failures: []FileFailure{}}
	counts := make(map[string]int)
	var order []string

	for i, rec := range env.Questions {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		fileName := rec.FileName
		if fileName == "" || IsReservedSource(fileName) {
			fileName = tag
		}

		q, err := rec.toQuestion(fileName)
		if err != nil {
			s.fail(result, fileName, fmt.Errorf("record %d: %w", i+1, err))
			continue
		}

		id, err := s.restoreQuestion(ctx, q)
		if err != nil {
			s.fail(result, fileName, fmt.Errorf("record %d: %w", i+1, err))
			continue
		}
		if err := s.restoreExtras(ctx, env.ExportType, id, fileName, rec); err != nil {
			logger.Log.Warn("Restore backup extras failed", zap.Uint("questionId", id), zap.Error(err))
		}

		if _, ok := counts[fileName]; !ok {
			order = append(order, fileName)
		}
		counts[fileName]++
		result.Total++
	}

	for _, name := range order {
		result.Files = append(result.Files, FileResult{FileName: name, Imported: counts[name]})
	}
	if len(result.Failures) > 0 {
		return result, &ImportFailuresError{Failures: result.Failures}
	}
	return result, nil
}

// restoreQuestion 返回已存在或新插入题目的 ID
func (s *ImportService) restoreQuestion(ctx context.Context, q *model.Question) (uint, error) {
	var existing model.Question
	err := s.QuestionRepo.DB.WithContext(ctx).
		Where("file_name = ? AND content = ?", q.FileName, q.Content).
		First(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	if err := s.QuestionRepo.Create(ctx, q); err != nil {
		return 0, err
	}
	return q.ID, nil
}

func (s *ImportService) restoreExtras(ctx context.Context, exportType string, id uint, fileName string, rec ExportQuestion) error {
	if rec.Analysis != "" {
		if err := s.NoteRepo.UpsertAnalysis(ctx, id, backupProvider, rec.Analysis); err != nil {
			return err
		}
	}
	if rec.Note != "" {
		if _, err := s.NoteRepo.UpsertNote(ctx, id, rec.Note); err != nil {
			return err
		}
	}
	switch exportType {
	case ExportFavorite:
		return s.FavoriteRepo.Add(ctx, id, fileName)
	case ExportWrongBook:
		return s.WrongRepo.Record(ctx, id, fileName, nil)
	}
	return nil
}

type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobDone      JobStatus = "done"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// ImportJob 后台导入任务的对外视图
type ImportJob struct {
	ID         string        `json:"id"`
	Status     JobStatus     `json:"status"`
	Result     *ImportResult `json:"result,omitempty"`
	Error      string        `json:"error,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	FinishedAt *time.Time    `json:"finishedAt,omitempty"`
}

type importJob struct {
	view   ImportJob
	cancel context.CancelFunc
	done   chan struct{}
}

const jobRetention = time.Hour

// StartJob 在后台导入，返回任务 ID
func (s *ImportService) StartJob(files []ImportFile, opts ImportOptions) string {
	ctx, cancel := context.WithCancel(context.Background())
	job := &importJob{
		view: ImportJob{
			ID:        uuid.NewString(),
			Status:    JobRunning,
			CreatedAt: time.Now(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.pruneJobsLocked()
	s.jobs[job.view.ID] = job
	s.mu.Unlock()

	go func() {
		defer cancel()
		result, err := s.Import(ctx, files, opts)
		s.finishJob(job, result, err)
	}()

	return job.view.ID
}

func (s *ImportService) finishJob(job *importJob, result *ImportResult, err error) {
	var (
		dupErr  *DuplicateFilesError
		failErr *ImportFailuresError
	)
	now := time.Now()

	s.mu.Lock()
	job.view.Result = result
	job.view.FinishedAt = &now
	switch {
	case err == nil:
		job.view.Status = JobDone
	case errors.Is(err, context.Canceled):
		job.view.Status = JobCancelled
		job.view.Error = err.Error()
	case errors.As(err, &dupErr), errors.As(err, &failErr):
		// 部分成功
		job.view.Status = JobDone
		job.view.Error = err.Error()
	default:
		job.view.Status = JobFailed
		job.view.Error = err.Error()
	}
	s.mu.Unlock()
	close(job.done)
}

func (s *ImportService) Job(id string) (ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return ImportJob{}, util.ErrImportJobNotFound
	}
	return job.view, nil
}

func (s *ImportService) CancelJob(id string) error {
	s.mu.Lock()
	job, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return util.ErrImportJobNotFound
	}
	job.cancel()
	return nil
}

// WaitJob 阻塞直到任务结束或 ctx 取消
func (s *ImportService) WaitJob(ctx context.Context, id string) (ImportJob, error) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return ImportJob{}, util.ErrImportJobNotFound
	}
	select {
	case <-job.done:
		return s.Job(id)
	case <-ctx.Done():
		return ImportJob{}, ctx.Err()
	}
}

func (s *ImportService) pruneJobsLocked() {
	for id, job := range s.jobs {
		if job.view.FinishedAt != nil && time.Since(*job.view.FinishedAt) > jobRetention {
			delete(s.jobs, id)
		}
	}
}
