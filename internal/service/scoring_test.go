package service

import (
	"context"
	"testing"

	"quiz_bank_backend/internal/model"
)

func TestIsCorrect(t *testing.T) {
	single := &model.Question{Type: model.QuestionSingle, Answer: "B"}
	judge := &model.Question{Type: model.QuestionJudge, Answer: "A"}
	multi := &model.Question{Type: model.QuestionMultiple, Answer: "ACD"}

	cases := []struct {
		name     string
		q        *model.Question
		selected []int
		want     bool
	}{
		{"single correct", single, []int{1}, true},
		{"single wrong", single, []int{0}, false},
		{"single two picks", single, []int{1, 2}, false},
		{"single with placeholder", single, []int{-1, 1}, true},
		{"judge correct", judge, []int{0}, true},
		{"judge wrong", judge, []int{1}, false},
		{"multi exact", multi, []int{3, 0, 2}, true},
		{"multi subset", multi, []int{0, 2}, false},
		{"multi superset", multi, []int{0, 1, 2, 3}, false},
		{"multi duplicates", multi, []int{0, 0, 2, 3}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsCorrect(tc.q, tc.selected); got != tc.want {
				t.Errorf("IsCorrect(%v) = %v, want %v", tc.selected, got, tc.want)
			}
		})
	}
}

func TestIsUnanswered(t *testing.T) {
	cases := []struct {
		selected []int
		want     bool
	}{
		{nil, true},
		{[]int{}, true},
		{[]int{-1}, true},
		{[]int{-1, -1}, true},
		{[]int{0}, false},
		{[]int{-1, 2}, false},
	}
	for _, tc := range cases {
		if got := IsUnanswered(tc.selected); got != tc.want {
			t.Errorf("IsUnanswered(%v) = %v, want %v", tc.selected, got, tc.want)
		}
	}
}

func TestScoreAndRecordResult(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	ctx := context.Background()

	questions := seedQuestions(t, repos.questions, "bank.xlsx", "A", "B", "C")
	res := Score(questions, [][]int{{0}, {1}, {-1}})

	if res.Score != 2 || res.Total != 3 || res.Unanswered != 1 {
		t.Fatalf("score = %d/%d unanswered %d, want 2/3 unanswered 1", res.Score, res.Total, res.Unanswered)
	}
	if len(res.Wrong) != 0 {
		t.Fatalf("unanswered question must not be recorded as wrong: %+v", res.Wrong)
	}

	scoring := NewScoringService(repos.history, repos.wrong)
	if err := scoring.RecordResult(ctx, "bank.xlsx", res, nil); err != nil {
		t.Fatalf("RecordResult: %v", err)
	}
	records, total, err := repos.history.ListPractice(ctx, "", 1, 20)
	if err != nil {
		t.Fatalf("ListPractice: %v", err)
	}
	if total != 1 || records[0].Score != 2 || records[0].Total != 3 {
		t.Fatalf("history = %+v (total %d), want one 2/3 record", records, total)
	}
	ids, _ := repos.wrong.QuestionIDs(ctx, "")
	if len(ids) != 0 {
		t.Fatalf("wrong book should be empty, got %v", ids)
	}
}

func TestRecordResultWrongAnswers(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	ctx := context.Background()

	questions := seedQuestions(t, repos.questions, "bank.txt", "A", "B")
	scoring := NewScoringService(repos.history, repos.wrong)

	for i := 0; i < 2; i++ {
		res := Score(questions, [][]int{{2}, {1}})
		if res.Score != 1 || len(res.Wrong) != 1 {
			t.Fatalf("unexpected result %+v", res)
		}
		if err := scoring.RecordResult(ctx, "bank.txt", res, &ExamMeta{ExamType: "mock"}); err != nil {
			t.Fatalf("RecordResult: %v", err)
		}
	}

	rows, err := repos.wrong.List(ctx, "bank.txt")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || rows[0].WrongCount != 2 || rows[0].QuestionID != questions[0].ID {
		t.Fatalf("wrong rows = %+v", rows)
	}
	q, _ := repos.questions.FindByID(ctx, questions[0].ID)
	if !q.IsWrong {
		t.Error("is_wrong flag not set")
	}
	exams, total, _ := repos.history.ListExam(ctx, "bank.txt", 1, 20)
	if total != 2 || exams[0].ExamType != "mock" {
		t.Fatalf("exam history = %+v", exams)
	}
}
