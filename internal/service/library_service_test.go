package service

import (
	"context"
	"errors"
	"testing"

	"quiz_bank_backend/internal/util"
)

func newLibrary(t *testing.T) (*LibraryService, testRepos) {
	t.Helper()
	repos := newTestRepos(newTestDB(t))
	return NewLibraryService(repos.questions, repos.wrong, repos.favorites, repos.history, repos.notes, repos.folders), repos
}

func TestFavoritesToggle(t *testing.T) {
	lib, repos := newLibrary(t)
	ctx := context.Background()
	qs := seedQuestions(t, repos.questions, "a.xlsx", "A", "B")

	on, err := lib.ToggleFavorite(ctx, qs[0].ID)
	if err != nil || !on {
		t.Fatalf("toggle on = %v, %v", on, err)
	}
	if err := lib.AddFavorite(ctx, qs[0].ID); err != nil {
		t.Fatalf("adding twice should be a no-op: %v", err)
	}
	favs, _ := lib.ListFavorites(ctx, "a.xlsx")
	if len(favs) != 1 || favs[0].Question == nil || !favs[0].Question.IsFavorite {
		t.Fatalf("favorites = %+v", favs)
	}

	on, err = lib.ToggleFavorite(ctx, qs[0].ID)
	if err != nil || on {
		t.Fatalf("toggle off = %v, %v", on, err)
	}
	q, _ := repos.questions.FindByID(ctx, qs[0].ID)
	if q.IsFavorite {
		t.Error("is_favorite should be cleared")
	}

	if err := lib.AddFavorite(ctx, 999); !errors.Is(err, util.ErrQuestionNotFound) {
		t.Fatalf("missing question err = %v", err)
	}
}

func TestWrongBookClear(t *testing.T) {
	lib, repos := newLibrary(t)
	ctx := context.Background()
	a := seedQuestions(t, repos.questions, "a.xlsx", "A", "B")
	b := seedQuestions(t, repos.questions, "b.xlsx", "C")
	for _, q := range append(a, b...) {
		repos.wrong.Record(ctx, q.ID, q.FileName, []int{3})
	}

	if err := lib.RemoveWrong(ctx, a[0].ID); err != nil {
		t.Fatalf("RemoveWrong: %v", err)
	}
	if err := lib.RemoveWrong(ctx, a[0].ID); !errors.Is(err, util.ErrWrongAnswerNotFound) {
		t.Fatalf("remove twice err = %v", err)
	}

	n, err := lib.ClearWrong(ctx, "b.xlsx")
	if err != nil || n != 1 {
		t.Fatalf("ClearWrong(b) = %d, %v", n, err)
	}
	rows, _ := lib.ListWrong(ctx, "")
	if len(rows) != 1 || rows[0].QuestionID != a[1].ID {
		t.Fatalf("remaining wrong = %+v", rows)
	}
	q, _ := repos.questions.FindByID(ctx, b[0].ID)
	if q.IsWrong {
		t.Error("is_wrong should be cleared for b.xlsx")
	}

	if n, _ := lib.ClearWrong(ctx, ""); n != 1 {
		t.Fatalf("ClearWrong(all) = %d", n)
	}
}

func TestNotesAndHistory(t *testing.T) {
	lib, repos := newLibrary(t)
	ctx := context.Background()
	q := seedQuestions(t, repos.questions, "a.xlsx", "A")[0]

	if _, err := lib.GetNote(ctx, q.ID); !errors.Is(err, util.ErrNoteNotFound) {
		t.Fatalf("GetNote before save err = %v", err)
	}
	n, err := lib.SaveNote(ctx, q.ID, "易错")
	if err != nil || n.Content != "易错" {
		t.Fatalf("SaveNote = %+v, %v", n, err)
	}
	if n, _ = lib.SaveNote(ctx, q.ID, "再看一遍"); n.Content != "再看一遍" {
		t.Fatalf("upsert note = %+v", n)
	}
	if _, err := lib.SaveNote(ctx, q.ID, "  "); err != nil {
		t.Fatalf("blank note: %v", err)
	}
	if _, err := lib.GetNote(ctx, q.ID); !errors.Is(err, util.ErrNoteNotFound) {
		t.Fatal("blank note should delete")
	}

	scoring := NewScoringService(repos.history, repos.wrong)
	scoring.RecordResult(ctx, "a.xlsx", ScoreResult{Score: 1, Total: 1}, nil)
	scoring.RecordResult(ctx, "b.xlsx", ScoreResult{Score: 0, Total: 1}, nil)

	recs, total, err := lib.ListPracticeHistory(ctx, "a.xlsx", 1, 10)
	if err != nil || total != 1 || len(recs) != 1 {
		t.Fatalf("history(a) = %+v, %d, %v", recs, total, err)
	}
	if err := lib.DeleteHistory(ctx, false, recs[0].ID); err != nil {
		t.Fatalf("DeleteHistory: %v", err)
	}
	if err := lib.DeleteHistory(ctx, false, recs[0].ID); !errors.Is(err, util.ErrHistoryNotFound) {
		t.Fatalf("delete twice err = %v", err)
	}
	if err := lib.ClearHistory(ctx, false); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}
	if _, total, _ := lib.ListPracticeHistory(ctx, "", 1, 10); total != 0 {
		t.Fatalf("history after clear = %d", total)
	}
}

func TestFolders(t *testing.T) {
	lib, repos := newLibrary(t)
	ctx := context.Background()
	seedQuestions(t, repos.questions, "a.xlsx", "A")

	f, err := lib.CreateFolder(ctx, " 数学 ")
	if err != nil || f.Name != "数学" {
		t.Fatalf("CreateFolder = %+v, %v", f, err)
	}
	if _, err := lib.CreateFolder(ctx, "数学"); !errors.Is(err, util.ErrFolderExists) {
		t.Fatalf("duplicate folder err = %v", err)
	}
	other, _ := lib.CreateFolder(ctx, "语文")
	if err := lib.RenameFolder(ctx, other.ID, "数学"); !errors.Is(err, util.ErrFolderExists) {
		t.Fatalf("rename onto existing err = %v", err)
	}
	if err := lib.RenameFolder(ctx, 999, "英语"); !errors.Is(err, util.ErrFolderNotFound) {
		t.Fatalf("rename missing err = %v", err)
	}

	if err := lib.AssignFile(ctx, "a.xlsx", f.ID); err != nil {
		t.Fatalf("AssignFile: %v", err)
	}
	if err := lib.AssignFile(ctx, "missing.xlsx", f.ID); !errors.Is(err, util.ErrSourceNotFound) {
		t.Fatalf("assign missing file err = %v", err)
	}
	folders, _ := lib.ListFolders(ctx)
	if len(folders) != 2 || folders[0].Name != "数学" || len(folders[0].Files) != 1 {
		t.Fatalf("folders = %+v", folders)
	}

	if err := lib.DeleteFolder(ctx, f.ID); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	if err := lib.DeleteFolder(ctx, f.ID); !errors.Is(err, util.ErrFolderNotFound) {
		t.Fatalf("delete twice err = %v", err)
	}
	sources, _ := repos.questions.ListSources(ctx)
	if len(sources) != 1 || sources[0].FolderID != nil {
		t.Fatalf("mapping should be removed with folder: %+v", sources)
	}
}
