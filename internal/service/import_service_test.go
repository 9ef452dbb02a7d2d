package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quiz_bank_backend/internal/config"
	"quiz_bank_backend/internal/model"
	"quiz_bank_backend/internal/util"
	"quiz_bank_backend/pkg/events"
)

const bankText = "1+1=?|单选|1;2;3|B|基础加法\n" +
	"地球是圆的|判断||对|\n" +
	"选出偶数|多选|2;3;4|CA|\n"

type importFixture struct {
	imports  *ImportService
	exports  *ExportService
	repos    testRepos
	root     string
	recorder *events.Recorder
}

func newImportFixture(t *testing.T, publisher events.Publisher) *importFixture {
	t.Helper()
	db := newTestDB(t)
	repos := newTestRepos(db)
	root := t.TempDir()
	storage := NewStorageService(&config.StorageConfig{Type: util.StorageLocal, LocalPath: root})
	recorder, _ := publisher.(*events.Recorder)
	return &importFixture{
		imports:  NewImportService(repos.questions, repos.folders, repos.favorites, repos.wrong, repos.notes, storage, publisher, true),
		exports:  NewExportService(repos.wrong, repos.favorites, repos.notes, storage),
		repos:    repos,
		root:     root,
		recorder: recorder,
	}
}

func TestImportFiles(t *testing.T) {
	f := newImportFixture(t, &events.Recorder{})
	ctx := context.Background()

	folder := &model.Folder{Name: "数学"}
	if err := f.repos.folders.Create(ctx, folder); err != nil {
		t.Fatalf("create folder: %v", err)
	}

	res, err := f.imports.Import(ctx, []ImportFile{
		{Name: "uploads/math.txt", Data: []byte(bankText)},
		{Name: "broken.txt", Data: []byte("没有任何题目的文本")},
	}, ImportOptions{FolderID: &folder.ID})

	var failures *ImportFailuresError
	if !errors.As(err, &failures) {
		t.Fatalf("expected ImportFailuresError, got %v", err)
	}
	if len(failures.Failures) != 1 || failures.Failures[0].FileName != "broken.txt" {
		t.Fatalf("failures = %+v", failures.Failures)
	}
	if res.Total != 3 || len(res.Files) != 1 || res.Files[0].FileName != "math.txt" {
		t.Fatalf("result = %+v", res)
	}
	if res.Files[0].ArchiveURL == "" {
		t.Error("imported file should be archived")
	}
	archived, _ := filepath.Glob(filepath.Join(f.root, util.ImportArchivePrefix, "*", "*", "math.txt"))
	if len(archived) != 1 {
		t.Errorf("archive files = %v", archived)
	}

	sources, _ := f.repos.questions.ListSources(ctx)
	if len(sources) != 1 || sources[0].Count != 3 || sources[0].FolderName != "数学" {
		t.Fatalf("sources = %+v", sources)
	}
	if types := f.recorder.Types(); len(types) != 1 || types[0] != events.QuestionsImported {
		t.Fatalf("events = %v", types)
	}
}

func TestImportDuplicateFiles(t *testing.T) {
	f := newImportFixture(t, events.Noop{})
	ctx := context.Background()

	if _, err := f.imports.Import(ctx, []ImportFile{{Name: "a.txt", Data: []byte(bankText)}}, ImportOptions{}); err != nil {
		t.Fatalf("first import: %v", err)
	}

	res, err := f.imports.Import(ctx, []ImportFile{
		{Name: "a.txt", Data: []byte(bankText)},
		{Name: "b.txt", Data: []byte(bankText)},
		{Name: "b.txt", Data: []byte(bankText)},
	}, ImportOptions{})

	var dup *DuplicateFilesError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateFilesError, got %v", err)
	}
	if strings.Join(dup.Files, ",") != "a.txt,b.txt" {
		t.Fatalf("duplicates = %v", dup.Files)
	}
	if res.Total != 3 {
		t.Fatalf("non-duplicate file should still be imported, total = %d", res.Total)
	}
	ids, _ := f.repos.questions.IDs(ctx, model.QuestionFilter{})
	if len(ids) != 6 {
		t.Fatalf("question count = %d, want 6", len(ids))
	}
}

func TestExportRoundTrip(t *testing.T) {
	f := newImportFixture(t, events.Noop{})
	ctx := context.Background()

	if _, err := f.imports.Import(ctx, []ImportFile{{Name: "bank.txt", Data: []byte(bankText)}}, ImportOptions{}); err != nil {
		t.Fatalf("import: %v", err)
	}
	ids, _ := f.repos.questions.IDs(ctx, model.QuestionFilter{})
	for _, id := range ids {
		f.repos.wrong.Record(ctx, id, "bank.txt", []int{0})
	}
	f.repos.notes.UpsertNote(ctx, ids[0], "记住进位")
	f.repos.notes.UpsertAnalysis(ctx, ids[0], "deepseek", "1+1 等于 2")

	out, err := f.exports.Export(ctx, ExportWrongBook)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	env := out.Envelope
	if env.Version != EnvelopeVersion || env.ExportType != ExportWrongBook || len(env.Questions) != 3 {
		t.Fatalf("envelope = %+v", env)
	}
	if out.ArchiveURL == "" {
		t.Fatal("export should be archived")
	}
	data, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(strings.TrimPrefix(out.ArchiveURL, "/uploads/"))))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}

	// 恢复到一个新的数据库
	g := newImportFixture(t, events.Noop{})
	decoded, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	res, err := g.imports.ImportEnvelope(ctx, decoded)
	if err != nil {
		t.Fatalf("ImportEnvelope: %v", err)
	}
	if res.Total != 3 {
		t.Fatalf("restored %d questions, want 3", res.Total)
	}

	restored, err := g.exports.Export(ctx, ExportWrongBook)
	if err != nil {
		t.Fatalf("re-export: %v", err)
	}
	want := make(map[string]ExportQuestion)
	for _, q := range env.Questions {
		want[q.Content] = q
	}
	for _, got := range restored.Envelope.Questions {
		w, ok := want[got.Content]
		if !ok {
			t.Fatalf("unexpected question %q", got.Content)
		}
		if got.Type != w.Type || got.Answer != w.Answer || strings.Join(got.Options, "|") != strings.Join(w.Options, "|") {
			t.Errorf("round trip mismatch: got %+v want %+v", got, w)
		}
		if got.Note != w.Note || got.Analysis != w.Analysis {
			t.Errorf("extras mismatch for %q: got note=%q analysis=%q", got.Content, got.Note, got.Analysis)
		}
	}

	// 再次恢复不会产生重复题目
	if _, err := g.imports.ImportEnvelope(ctx, decoded); err != nil {
		t.Fatalf("second restore: %v", err)
	}
	all, _ := g.repos.questions.IDs(ctx, model.QuestionFilter{})
	if len(all) != 3 {
		t.Fatalf("question count after second restore = %d", len(all))
	}
}

func TestDecodeEnvelopeRejectsUnknownType(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"version":"1.0","export_type":"everything","export_time":1,"questions":[]}`))
	if !errors.Is(err, util.ErrUnsupportedExportType) {
		t.Fatalf("err = %v", err)
	}
	if _, err := (&ExportService{}).collect(context.Background(), "all"); !errors.Is(err, util.ErrUnsupportedExportType) {
		t.Fatalf("collect err = %v", err)
	}
}

// blockingPublisher 在第一次发布事件时阻塞，直到测试放行
type blockingPublisher struct {
	published chan struct{}
	release   chan struct{}
}

func (p *blockingPublisher) Publish(ctx context.Context, _ string, _ interface{}) error {
	select {
	case p.published <- struct{}{}:
	default:
	}
	select {
	case <-p.release:
	case <-ctx.Done():
	}
	return nil
}

func (p *blockingPublisher) Close() error { return nil }

func TestImportJobCancel(t *testing.T) {
	pub := &blockingPublisher{published: make(chan struct{}, 1), release: make(chan struct{})}
	f := newImportFixture(t, pub)
	ctx := context.Background()

	id := f.imports.StartJob([]ImportFile{
		{Name: "one.txt", Data: []byte(bankText)},
		{Name: "two.txt", Data: []byte(bankText)},
	}, ImportOptions{})

	select {
	case <-pub.published:
	case <-time.After(5 * time.Second):
		t.Fatal("first file was never imported")
	}
	if job, _ := f.imports.Job(id); job.Status != JobRunning {
		t.Fatalf("status = %s, want running", job.Status)
	}
	if err := f.imports.CancelJob(id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	close(pub.release)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	job, err := f.imports.WaitJob(waitCtx, id)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if job.Status != JobCancelled {
		t.Fatalf("status = %s, want cancelled", job.Status)
	}
	if job.Result == nil || len(job.Result.Files) != 1 || job.Result.Files[0].FileName != "one.txt" {
		t.Fatalf("result = %+v", job.Result)
	}
	if exists, _ := f.repos.questions.ExistsFileName(ctx, "two.txt"); exists {
		t.Error("second file should not be imported after cancel")
	}

	if _, err := f.imports.Job("missing"); !errors.Is(err, util.ErrImportJobNotFound) {
		t.Fatalf("missing job err = %v", err)
	}
}

func TestImportRejectedUploadRecorded(t *testing.T) {
	f := newImportFixture(t, events.Noop{})
	ctx := context.Background()

	res, err := f.imports.Import(ctx, []ImportFile{
		{Name: "notes.pdf", Rejected: errors.New(`unsupported file extension ".pdf"`)},
		{Name: "math.txt", Data: []byte(bankText)},
	}, ImportOptions{})

	var failures *ImportFailuresError
	if !errors.As(err, &failures) {
		t.Fatalf("expected ImportFailuresError, got %v", err)
	}
	if len(res.Failures) != 1 || res.Failures[0].FileName != "notes.pdf" || !strings.Contains(res.Failures[0].Reason, ".pdf") {
		t.Fatalf("failures = %+v", res.Failures)
	}
	if res.Total != 3 {
		t.Fatalf("valid file in the same batch should still import, result = %+v", res)
	}
}
