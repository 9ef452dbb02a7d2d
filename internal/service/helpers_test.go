package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"quiz_bank_backend/internal/model"
	"quiz_bank_backend/internal/repository"
	"quiz_bank_backend/pkg/database"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type testRepos struct {
	questions   *repository.QuestionRepository
	wrong       *repository.WrongAnswerRepository
	favorites   *repository.FavoriteRepository
	history     *repository.HistoryRepository
	progress    *repository.ProgressRepository
	notes       *repository.NoteRepository
	folders     *repository.FolderRepository
	preferences *repository.PreferenceRepository
}

func newTestRepos(db *gorm.DB) testRepos {
	return testRepos{
		questions:   repository.NewQuestionRepository(db),
		wrong:       repository.NewWrongAnswerRepository(db),
		favorites:   repository.NewFavoriteRepository(db),
		history:     repository.NewHistoryRepository(db),
		progress:    repository.NewProgressRepository(db),
		notes:       repository.NewNoteRepository(db),
		folders:     repository.NewFolderRepository(db),
		preferences: repository.NewPreferenceRepository(db),
	}
}

// seedQuestions 插入 single 类型的题目，answers 为字母答案
func seedQuestions(t *testing.T, repo *repository.QuestionRepository, fileName string, answers ...string) []model.Question {
	t.Helper()
	questions := make([]model.Question, len(answers))
	for i, a := range answers {
		questions[i] = model.Question{
			Content:  fmt.Sprintf("%s 第%d题", fileName, i+1),
			Type:     model.QuestionSingle,
			Options:  []string{"选项一", "选项二", "选项三", "选项四"},
			Answer:   a,
			FileName: fileName,
		}
	}
	if err := repo.CreateBatch(context.Background(), questions); err != nil {
		t.Fatalf("seed questions: %v", err)
	}
	return questions
}
