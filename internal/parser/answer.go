package parser

import (
	"sort"
	"strings"

	"quiz_bank_backend/internal/model"
)

// MaxOptions 选项字母 A–H
const MaxOptions = 8

var judgeOptions = []string{"正确", "错误"}

// AnswerLetterToIndex 把单个答案字母转换为从 0 开始的选项下标，空白或非法输入返回 false
func AnswerLetterToIndex(s string) (int, bool) {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) != 1 {
		return -1, false
	}
	idx, ok := letterIndex(r[0])
	if !ok {
		return -1, false
	}
	return idx, true
}

// IndexToLetter 0 -> "A"
func IndexToLetter(i int) string {
	if i < 0 || i >= MaxOptions {
		return ""
	}
	return string(rune('A' + i))
}

// AnswerToIndices 解析多字母答案（"ABD"、"A,C"），结果去重并升序
func AnswerToIndices(answer string) ([]int, bool) {
	seen := make(map[int]bool)
	var out []int
	for _, r := range answer {
		if isSeparator(r) {
			continue
		}
		idx, ok := letterIndex(r)
		if !ok {
			return nil, false
		}
		if !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	sort.Ints(out)
	return out, true
}

// IndicesToAnswer [0 2] -> "AC"
func IndicesToAnswer(indices []int) string {
	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)
	var b strings.Builder
	last := -1
	for _, i := range sorted {
		if i == last {
			continue
		}
		b.WriteString(IndexToLetter(i))
		last = i
	}
	return b.String()
}

// NormalizeAnswer 统一答案编码：字母大写排序，判断题的 对/错 转换为 A/B
func NormalizeAnswer(raw string, qt model.QuestionType) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if letter, ok := judgeAnswer(raw); ok && (qt == model.QuestionJudge || qt == "") {
		return letter
	}
	indices, ok := AnswerToIndices(raw)
	if !ok {
		if letter, ok := judgeAnswer(raw); ok {
			return letter
		}
		return ""
	}
	return IndicesToAnswer(indices)
}

// ParseType 识别题型文字
func ParseType(raw string) (model.QuestionType, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, "【】[]()（）")
	switch {
	case s == "":
		return "", false
	case strings.Contains(s, "多选"), strings.Contains(s, "不定项"), s == "multiple", s == "multi", s == "checkbox":
		return model.QuestionMultiple, true
	case strings.Contains(s, "单选"), s == "single", s == "radio", s == "选择题", s == "选择":
		return model.QuestionSingle, true
	case strings.Contains(s, "判断"), s == "judge", s == "tf", s == "true_false", s == "true-false", s == "truefalse":
		return model.QuestionJudge, true
	}
	return "", false
}

// InferType 题型缺失时根据选项与答案推断
func InferType(options []string, answer string) model.QuestionType {
	if indices, ok := AnswerToIndices(answer); ok && len(indices) > 1 {
		return model.QuestionMultiple
	}
	if len(options) == 0 || isJudgeOptions(options) {
		return model.QuestionJudge
	}
	return model.QuestionSingle
}

func isJudgeOptions(options []string) bool {
	if len(options) != 2 {
		return false
	}
	a, okA := judgeAnswer(options[0])
	b, okB := judgeAnswer(options[1])
	return okA && okB && a == "A" && b == "B"
}

func judgeAnswer(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "对", "正确", "√", "✓", "✔", "t", "true", "y", "yes", "是":
		return "A", true
	case "错", "错误", "×", "✗", "✘", "x", "f", "false", "n", "no", "否":
		return "B", true
	}
	return "", false
}

func letterIndex(r rune) (int, bool) {
	switch {
	case r >= 'A' && r <= 'H':
		return int(r - 'A'), true
	case r >= 'a' && r <= 'h':
		return int(r - 'a'), true
	case r >= 'Ａ' && r <= 'Ｈ':
		return int(r - 'Ａ'), true
	}
	return -1, false
}

func isSeparator(r rune) bool {
	switch r {
	case ' ', '\t', ',', '，', '、', ';', '；', '/':
		return true
	}
	return false
}
