package parser

import (
	"bytes"
	"errors"
	"testing"

	"quiz_bank_backend/internal/model"

	"baliance.com/gooxml/document"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestAnswerLetterToIndex(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"A", 0, true},
		{" c ", 2, true},
		{"H", 7, true},
		{"Ｂ", 1, true},
		{"I", -1, false},
		{"", -1, false},
		{"   ", -1, false},
		{"AB", -1, false},
	}
	for _, tc := range cases {
		got, ok := AnswerLetterToIndex(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("AnswerLetterToIndex(%q) = %d, %v; want %d, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizeAnswer(t *testing.T) {
	cases := []struct {
		raw  string
		qt   model.QuestionType
		want string
	}{
		{"bda", model.QuestionMultiple, "ABD"},
		{"A, C", model.QuestionMultiple, "AC"},
		{"对", model.QuestionJudge, "A"},
		{"×", model.QuestionJudge, "B"},
		{"F", model.QuestionSingle, "F"},
		{"Z", model.QuestionSingle, ""},
		{"", model.QuestionSingle, ""},
	}
	for _, tc := range cases {
		if got := NormalizeAnswer(tc.raw, tc.qt); got != tc.want {
			t.Errorf("NormalizeAnswer(%q, %s) = %q, want %q", tc.raw, tc.qt, got, tc.want)
		}
	}
}

func TestSplitOptions(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"A.苹果 B.香蕉", []string{"苹果", "香蕉"}},
		{"x|y|z", []string{"x", "y", "z"}},
		{"A、甲；B、乙", []string{"甲", "乙"}},
		{"", nil},
	}
	for _, tc := range cases {
		got := SplitOptions(tc.raw)
		if len(got) != len(tc.want) {
			t.Fatalf("SplitOptions(%q) = %v, want %v", tc.raw, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("SplitOptions(%q)[%d] = %q, want %q", tc.raw, i, got[i], tc.want[i])
			}
		}
	}
}

func TestParseDelimited(t *testing.T) {
	lines := []string{
		"1+1=?|单选|1;2;3|B|基础加法",
		"地球是圆的|判断||对|",
		"选出偶数|多选|2;3;4|CA|",
		"随便一行文本",
		"",
	}
	qs := ParseDelimited(lines)
	if len(qs) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(qs))
	}

	if qs[0].Type != model.QuestionSingle || qs[0].Answer != "B" || len(qs[0].Options) != 3 {
		t.Errorf("unexpected first question: %+v", qs[0])
	}
	if qs[0].Explanation != "基础加法" {
		t.Errorf("explanation = %q", qs[0].Explanation)
	}
	if qs[1].Type != model.QuestionJudge || qs[1].Answer != "A" || len(qs[1].Options) != 2 {
		t.Errorf("unexpected judge question: %+v", qs[1])
	}
	if qs[2].Type != model.QuestionMultiple || qs[2].Answer != "AC" {
		t.Errorf("unexpected multiple question: %+v", qs[2])
	}
}

func TestParseTagged(t *testing.T) {
	lines := []string{
		"一、单选题（共2题）",
		"1. 中国的首都是（2分）",
		"A. 上海",
		"B. 北京",
		"答案：B",
		"解析：北京是首都。",
		"2. 下列属于水果的是（ ）",
		"A.苹果 B.白菜 C.土豆",
		"正确答案: A",
		"二、判断题",
		"3. 太阳从东方升起（√）",
	}
	qs := ParseTagged(lines)
	if len(qs) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(qs))
	}

	first := qs[0]
	if first.Content != "中国的首都是" {
		t.Errorf("score annotation not stripped: %q", first.Content)
	}
	if first.Type != model.QuestionSingle || first.Answer != "B" || len(first.Options) != 2 {
		t.Errorf("unexpected first question: %+v", first)
	}
	if first.Explanation != "北京是首都。" {
		t.Errorf("explanation = %q", first.Explanation)
	}

	if len(qs[1].Options) != 3 || qs[1].Options[0] != "苹果" || qs[1].Answer != "A" {
		t.Errorf("inline options not split: %+v", qs[1])
	}

	judge := qs[2]
	if judge.Type != model.QuestionJudge || judge.Answer != "A" {
		t.Errorf("unexpected judge question: %+v", judge)
	}
	if len(judge.Options) != 2 || judge.Options[0] != "正确" {
		t.Errorf("judge options = %v", judge.Options)
	}
}

func TestParseTaggedExplanationWithNumberedLines(t *testing.T) {
	lines := []string{
		"1. 题目一",
		"A. 甲",
		"B. 乙",
		"答案：A",
		"解析：",
		"5. 这一行属于解析",
		"2. 题目二",
		"A. 丙",
		"B. 丁",
		"答案：B",
	}
	qs := ParseTagged(lines)
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}
	if qs[0].Explanation != "5. 这一行属于解析" {
		t.Errorf("explanation = %q", qs[0].Explanation)
	}
	if qs[1].Content != "题目二" {
		t.Errorf("second content = %q", qs[1].Content)
	}
}

func TestParseFileGBKText(t *testing.T) {
	src := "1+1=?|单选|1;2;3|B|加法\n"
	data, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(src))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	qs, err := ParseFile("bank.txt", data)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(qs) != 1 || qs[0].Explanation != "加法" {
		t.Fatalf("unexpected result: %+v", qs)
	}
}

func TestParseFileUTF8BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("天空是蓝色的|判断||正确|")...)
	qs, err := ParseFile("bank.txt", data)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(qs) != 1 || qs[0].Content != "天空是蓝色的" {
		t.Fatalf("unexpected result: %+v", qs)
	}
}

func TestParseFileExcel(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"题目", "题型", "A", "B", "C", "D", "答案", "解析"},
		{"水的化学式是", "单选", "CO2", "H2O", "O2", "NaCl", "B", "常识"},
		{"1是奇数", "判断", "", "", "", "", "对"},
	}
	for i, row := range rows {
		cellName, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		if err := f.SetSheetRow("Sheet1", cellName, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	qs, err := ParseFile("bank.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}
	if qs[0].Answer != "B" || len(qs[0].Options) != 4 || qs[0].Options[1] != "H2O" {
		t.Errorf("unexpected first question: %+v", qs[0])
	}
	if qs[1].Type != model.QuestionJudge || qs[1].Answer != "A" {
		t.Errorf("unexpected judge question: %+v", qs[1])
	}
}

func TestParseFileDocx(t *testing.T) {
	doc := document.New()
	for _, line := range []string{"1. 2+2=?", "A. 3"} {
		doc.AddParagraph().AddRun().AddText(line)
	}
	// 一个段落拆成多个 run
	p := doc.AddParagraph()
	p.AddRun().AddText("B. ")
	p.AddRun().AddText("4")
	doc.AddParagraph().AddRun().AddText("答案：B")

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		t.Fatalf("save docx: %v", err)
	}

	qs, err := ParseFile("bank.docx", buf.Bytes())
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(qs) != 1 {
		t.Fatalf("expected 1 question, got %d", len(qs))
	}
	if qs[0].Type != model.QuestionSingle || qs[0].Answer != "B" || qs[0].Options[1] != "4" {
		t.Errorf("unexpected question: %+v", qs[0])
	}
}

func TestDocxParagraphsInvalid(t *testing.T) {
	if _, err := DocxParagraphs([]byte("not a zip")); !errors.Is(err, ErrInvalidDocx) {
		t.Fatalf("expected ErrInvalidDocx, got %v", err)
	}
}

func TestParseFileNoQuestions(t *testing.T) {
	_, err := ParseFile("notes.txt", []byte("hello\nworld"))
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}
