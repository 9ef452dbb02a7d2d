package service

import (
	"context"
	"strings"

	"quiz_bank_backend/internal/model"
	"quiz_bank_backend/internal/repository"
	"quiz_bank_backend/internal/util"
)

// LibraryService 错题本、收藏、历史记录、笔记和文件夹
type LibraryService struct {
	QuestionRepo *repository.QuestionRepository
	WrongRepo    *repository.WrongAnswerRepository
	FavoriteRepo *repository.FavoriteRepository
	HistoryRepo  *repository.HistoryRepository
	NoteRepo     *repository.NoteRepository
	FolderRepo   *repository.FolderRepository
}

func NewLibraryService(
	questionRepo *repository.QuestionRepository,
	wrongRepo *repository.WrongAnswerRepository,
	favoriteRepo *repository.FavoriteRepository,
	historyRepo *repository.HistoryRepository,
	noteRepo *repository.NoteRepository,
	folderRepo *repository.FolderRepository,
) *LibraryService {
	return &LibraryService{
		QuestionRepo: questionRepo,
		WrongRepo:    wrongRepo,
		FavoriteRepo: favoriteRepo,
		HistoryRepo:  historyRepo,
		NoteRepo:     noteRepo,
		FolderRepo:   folderRepo,
	}
}

// ---- 错题本 ----

func (s *LibraryService) ListWrong(ctx context.Context, fileName string) ([]model.WrongAnswer, error) {
	return s.WrongRepo.List(ctx, fileName)
}

func (s *LibraryService) RemoveWrong(ctx context.Context, questionID uint) error {
	return notFoundAs(s.WrongRepo.Delete(ctx, questionID), util.ErrWrongAnswerNotFound)
}

// ClearWrong fileName 为空时清空全部，返回删除条数
func (s *LibraryService) ClearWrong(ctx context.Context, fileName string) (int64, error) {
	return s.WrongRepo.Clear(ctx, fileName)
}

// ---- 收藏 ----

func (s *LibraryService) AddFavorite(ctx context.Context, questionID uint) error {
	q, err := s.QuestionRepo.FindByID(ctx, questionID)
	if err != nil {
		return notFoundAs(err, util.ErrQuestionNotFound)
	}
	return s.FavoriteRepo.Add(ctx, q.ID, q.FileName)
}

func (s *LibraryService) RemoveFavorite(ctx context.Context, questionID uint) error {
	return s.FavoriteRepo.Remove(ctx, questionID)
}

// ToggleFavorite 返回切换后的收藏状态
func (s *LibraryService) ToggleFavorite(ctx context.Context, questionID uint) (bool, error) {
	exists, err := s.FavoriteRepo.Exists(ctx, questionID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, s.RemoveFavorite(ctx, questionID)
	}
	return true, s.AddFavorite(ctx, questionID)
}

func (s *LibraryService) ListFavorites(ctx context.Context, fileName string) ([]model.Favorite, error) {
	return s.FavoriteRepo.List(ctx, fileName)
}

// ---- 历史记录 ----

func (s *LibraryService) ListPracticeHistory(ctx context.Context, fileName string, page, limit int) ([]model.HistoryRecord, int64, error) {
	return s.HistoryRepo.ListPractice(ctx, fileName, page, limit)
}

func (s *LibraryService) ListExamHistory(ctx context.Context, fileName string, page, limit int) ([]model.ExamHistoryRecord, int64, error) {
	return s.HistoryRepo.ListExam(ctx, fileName, page, limit)
}

func (s *LibraryService) DeleteHistory(ctx context.Context, exam bool, id uint) error {
	var err error
	if exam {
		err = s.HistoryRepo.DeleteExam(ctx, id)
	} else {
		err = s.HistoryRepo.DeletePractice(ctx, id)
	}
	return notFoundAs(err, util.ErrHistoryNotFound)
}

func (s *LibraryService) ClearHistory(ctx context.Context, exam bool) error {
	if exam {
		return s.HistoryRepo.ClearExam(ctx)
	}
	return s.HistoryRepo.ClearPractice(ctx)
}

// ---- 笔记 ----

func (s *LibraryService) GetNote(ctx context.Context, questionID uint) (*model.QuestionNote, error) {
	n, err := s.NoteRepo.FindNote(ctx, questionID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrNoteNotFound)
	}
	return n, nil
}

// SaveNote 内容为空时等同于删除
func (s *LibraryService) SaveNote(ctx context.Context, questionID uint, content string) (*model.QuestionNote, error) {
	if _, err := s.QuestionRepo.FindByID(ctx, questionID); err != nil {
		return nil, notFoundAs(err, util.ErrQuestionNotFound)
	}
	if strings.TrimSpace(content) == "" {
		return nil, s.NoteRepo.DeleteNote(ctx, questionID)
	}
	return s.NoteRepo.UpsertNote(ctx, questionID, content)
}

func (s *LibraryService) DeleteNote(ctx context.Context, questionID uint) error {
	return s.NoteRepo.DeleteNote(ctx, questionID)
}

// ---- 文件夹 ----

func (s *LibraryService) CreateFolder(ctx context.Context, name string) (*model.Folder, error) {
	name = strings.TrimSpace(name)
	if _, err := s.FolderRepo.FindByName(ctx, name); err == nil {
		return nil, util.ErrFolderExists
	} else if !isNotFound(err) {
		return nil, err
	}
	f := &model.Folder{Name: name, Files: []string{}}
	if err := s.FolderRepo.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *LibraryService) RenameFolder(ctx context.Context, id uint, name string) error {
	name = strings.TrimSpace(name)
	if other, err := s.FolderRepo.FindByName(ctx, name); err == nil && other.ID != id {
		return util.ErrFolderExists
	} else if err != nil && !isNotFound(err) {
		return err
	}
	return notFoundAs(s.FolderRepo.Rename(ctx, id, name), util.ErrFolderNotFound)
}

func (s *LibraryService) DeleteFolder(ctx context.Context, id uint) error {
	return notFoundAs(s.FolderRepo.Delete(ctx, id), util.ErrFolderNotFound)
}

func (s *LibraryService) ListFolders(ctx context.Context) ([]model.Folder, error) {
	return s.FolderRepo.List(ctx)
}

// AssignFile 把题库文件放入文件夹，仅影响分组展示
func (s *LibraryService) AssignFile(ctx context.Context, fileName string, folderID uint) error {
	if _, err := s.FolderRepo.FindByID(ctx, folderID); err != nil {
		return notFoundAs(err, util.ErrFolderNotFound)
	}
	exists, err := s.QuestionRepo.ExistsFileName(ctx, fileName)
	if err != nil {
		return err
	}
	if !exists {
		return util.ErrSourceNotFound
	}
	return s.FolderRepo.Assign(ctx, fileName, folderID)
}

func (s *LibraryService) UnassignFile(ctx context.Context, fileName string) error {
	return s.FolderRepo.Unassign(ctx, fileName)
}
