package parser

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"quiz_bank_backend/internal/model"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeText 处理 UTF-8（含 BOM）、UTF-16（含 BOM）与 GBK/GB18030 编码的文本
func DecodeText(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return string(data[3:]), nil
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}), bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		out, _, err := transform.Bytes(dec, data)
		if err != nil {
			return "", fmt.Errorf("decode utf-16: %w", err)
		}
		return string(out), nil
	case utf8.Valid(data):
		return string(data), nil
	}
	out, _, err := transform.Bytes(simplifiedchinese.GB18030.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("decode gb18030: %w", err)
	}
	return string(out), nil
}

// ParseDelimited 每行一题：题干|题型|选项1;选项2|答案|解析（也接受制表符分隔）
func ParseDelimited(lines []string) []model.Question {
	var questions []model.Question
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		q, ok := parseDelimitedLine(line)
		if ok {
			questions = append(questions, q)
		}
	}
	return questions
}

func parseDelimitedLine(line string) (model.Question, bool) {
	var fields []string
	switch {
	case strings.Count(line, "|") >= 3:
		fields = strings.Split(line, "|")
	case strings.Count(line, "\t") >= 3:
		fields = strings.Split(line, "\t")
	default:
		return model.Question{}, false
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	qt, ok := ParseType(fields[1])
	if !ok {
		return model.Question{}, false
	}

	q := model.Question{
		Content: fields[0],
		Type:    qt,
		Options: splitDelimitedOptions(fields[2]),
		Answer:  fields[3],
	}
	if len(fields) > 4 {
		q.Explanation = strings.Join(fields[4:], "|")
	}
	if !finalize(&q) {
		return model.Question{}, false
	}
	return q, true
}

func splitDelimitedOptions(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == '；' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = cleanOption(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
