package parser

import (
	"fmt"
	"io"
	"strings"

	"quiz_bank_backend/internal/model"

	"github.com/xuri/excelize/v2"
)

// tableLayout 表头中各列的位置，-1 表示不存在
type tableLayout struct {
	content     int
	qtype       int
	answer      int
	explanation int
	joined      int   // 所有选项合并在一列
	options     []int // 每个选项单独一列，按字母顺序
}

var (
	contentHeaders     = []string{"题目", "题干", "试题", "题目内容", "问题", "question", "content", "stem"}
	typeHeaders        = []string{"题型", "类型", "题目类型", "type"}
	answerHeaders      = []string{"答案", "正确答案", "参考答案", "标准答案", "answer"}
	explanationHeaders = []string{"解析", "答案解析", "试题解析", "explanation", "analysis"}
	joinedHeaders      = []string{"选项", "所有选项", "options"}
)

// ParseExcel 逐个工作表识别表头布局并读取题目
func ParseExcel(r io.Reader) ([]model.Question, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var (
		questions []model.Question
		lastErr   error
	)
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			lastErr = err
			continue
		}
		qs, err := parseRows(rows)
		if err != nil {
			lastErr = fmt.Errorf("sheet %s: %w", sheet, err)
			continue
		}
		questions = append(questions, qs...)
	}
	if len(questions) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return questions, nil
}

// ExcelLines 把第一张非空工作表拍平成文本行，供文本解析器兜底
func ExcelLines(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			var cells []string
			for _, c := range row {
				if c = strings.TrimSpace(c); c != "" {
					cells = append(cells, c)
				}
			}
			if len(cells) == 1 {
				lines = append(lines, splitLines(cells[0])...)
				continue
			}
			lines = append(lines, strings.Join(cells, "|"))
		}
		return lines, nil
	}
	return nil, nil
}

func parseRows(rows [][]string) ([]model.Question, error) {
	headerIdx, layout, ok := findHeader(rows)
	if !ok {
		return nil, ErrUnrecognizedTable
	}

	var questions []model.Question
	for _, row := range rows[headerIdx+1:] {
		q := model.Question{
			Content:     cell(row, layout.content),
			Answer:      cell(row, layout.answer),
			Explanation: cell(row, layout.explanation),
		}
		if t, ok := ParseType(cell(row, layout.qtype)); ok {
			q.Type = t
		}
		if layout.joined >= 0 {
			q.Options = SplitOptions(cell(row, layout.joined))
		} else {
			var opts []string
			for _, col := range layout.options {
				if v := cleanOption(cell(row, col)); v != "" {
					opts = append(opts, v)
				}
			}
			q.Options = opts
		}
		if finalize(&q) {
			questions = append(questions, q)
		}
	}
	return questions, nil
}

// findHeader 在前几行中寻找同时包含题干列和答案列的表头
func findHeader(rows [][]string) (int, tableLayout, bool) {
	limit := len(rows)
	if limit > 5 {
		limit = 5
	}
	for i := 0; i < limit; i++ {
		if layout, ok := detectLayout(rows[i]); ok {
			return i, layout, true
		}
	}
	return 0, tableLayout{}, false
}

func detectLayout(header []string) (tableLayout, bool) {
	layout := tableLayout{content: -1, qtype: -1, answer: -1, explanation: -1, joined: -1}
	optionCols := make(map[int]int)

	for col, raw := range header {
		h := normalizeHeader(raw)
		switch {
		case h == "":
		case matchHeader(h, explanationHeaders):
			setOnce(&layout.explanation, col)
		case matchHeader(h, answerHeaders):
			setOnce(&layout.answer, col)
		case matchHeader(h, typeHeaders):
			setOnce(&layout.qtype, col)
		case matchHeader(h, contentHeaders):
			setOnce(&layout.content, col)
		case matchHeader(h, joinedHeaders):
			setOnce(&layout.joined, col)
		default:
			if idx, ok := optionHeaderIndex(h); ok {
				if _, dup := optionCols[idx]; !dup {
					optionCols[idx] = col
				}
			}
		}
	}

	if layout.content < 0 || layout.answer < 0 {
		return layout, false
	}
	for i := 0; i < MaxOptions; i++ {
		col, ok := optionCols[i]
		if !ok {
			break
		}
		layout.options = append(layout.options, col)
	}
	if len(layout.options) > 0 {
		layout.joined = -1
	}
	return layout, true
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, "*:：")
	return strings.ReplaceAll(s, " ", "")
}

func matchHeader(h string, candidates []string) bool {
	for _, c := range candidates {
		if h == c {
			return true
		}
	}
	return false
}

// optionHeaderIndex 识别 "A"、"选项A"、"option b"、"选项1" 这类选项列
func optionHeaderIndex(h string) (int, bool) {
	for _, prefix := range []string{"选项", "option"} {
		h = strings.TrimPrefix(h, prefix)
	}
	if idx, ok := AnswerLetterToIndex(h); ok {
		return idx, true
	}
	if len(h) == 1 && h[0] >= '1' && h[0] <= '8' {
		return int(h[0] - '1'), true
	}
	return -1, false
}

func setOnce(dst *int, v int) {
	if *dst < 0 {
		*dst = v
	}
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
