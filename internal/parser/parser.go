// Package parser 识别 Excel、Word 与纯文本三类题库文件
package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"quiz_bank_backend/internal/model"
)

var (
	ErrNoQuestions       = errors.New("no questions recognized")
	ErrUnrecognizedTable = errors.New("unrecognized table header")
)

var optionPrefix = regexp.MustCompile(`^\s*[A-Ha-hＡ-Ｈ]\s*[\.．、\)）:：]\s*`)

// ParseFile 依次尝试表格解析、分隔符文本解析、标记段落解析
func ParseFile(name string, data []byte) ([]model.Question, error) {
	var tableErr error
	if isSpreadsheet(name, data) {
		qs, err := ParseExcel(bytes.NewReader(data))
		if err == nil && len(qs) > 0 {
			return qs, nil
		}
		tableErr = err
	}

	lines, err := extractLines(name, data)
	if err != nil {
		return nil, err
	}

	if qs := ParseDelimited(lines); len(qs) > 0 {
		return qs, nil
	}
	if qs := ParseTagged(lines); len(qs) > 0 {
		return qs, nil
	}

	if tableErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoQuestions, tableErr)
	}
	return nil, ErrNoQuestions
}

func extractLines(name string, data []byte) ([]string, error) {
	switch {
	case isSpreadsheet(name, data):
		return ExcelLines(bytes.NewReader(data))
	case isDocx(name, data):
		return DocxParagraphs(data)
	default:
		text, err := DecodeText(data)
		if err != nil {
			return nil, err
		}
		return splitLines(text), nil
	}
}

func isSpreadsheet(name string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return true
	case ".txt", ".docx", ".csv":
		return false
	}
	return zipHas(data, "xl/workbook.xml")
}

func isDocx(name string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".docx":
		return true
	case ".txt", ".xlsx", ".csv":
		return false
	}
	return zipHas(data, "word/document.xml")
}

func zipHas(data []byte, entry string) bool {
	if len(data) < 4 || !bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return false
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if f.Name == entry {
			return true
		}
	}
	return false
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// SplitOptions 拆分合并在一个单元格/字段里的选项
func SplitOptions(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var parts []string
	switch {
	case strings.Contains(raw, "|"):
		parts = strings.Split(raw, "|")
	case strings.ContainsAny(raw, ";；"):
		parts = strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == '；' })
	case strings.Contains(raw, "\n"):
		parts = strings.Split(raw, "\n")
	default:
		if inline := splitInlineOptions(raw); len(inline) > 1 {
			return inline
		}
		parts = []string{raw}
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = cleanOption(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func cleanOption(s string) string {
	return strings.TrimSpace(optionPrefix.ReplaceAllString(strings.TrimSpace(s), ""))
}

// finalize 补齐题型、答案编码和判断题默认选项，不完整的题目返回 false
func finalize(q *model.Question) bool {
	q.Content = strings.TrimSpace(q.Content)
	q.Explanation = strings.TrimSpace(q.Explanation)
	if q.Content == "" {
		return false
	}
	if !q.Type.Valid() {
		q.Type = InferType(q.Options, q.Answer)
	}
	if q.Type == model.QuestionJudge && len(q.Options) == 0 {
		q.Options = append([]string(nil), judgeOptions...)
	}
	q.Answer = NormalizeAnswer(q.Answer, q.Type)
	if q.Answer == "" || len(q.Options) == 0 {
		return false
	}
	indices, _ := AnswerToIndices(q.Answer)
	for _, i := range indices {
		if i >= len(q.Options) {
			return false
		}
	}
	if q.Type != model.QuestionMultiple && len(indices) > 1 {
		q.Type = model.QuestionMultiple
	}
	return true
}
