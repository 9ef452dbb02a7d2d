package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"quiz_bank_backend/internal/model"
)

var (
	stemRe        = regexp.MustCompile(`^\s*(\d{1,4})\s*[\.．、]\s*(.*)$`)
	scoreRe       = regexp.MustCompile(`[\(（]\s*\d+(\.\d+)?\s*分\s*[\)）]`)
	typeTagRe     = regexp.MustCompile(`[【\[]\s*(单选题?|多选题?|判断题?|不定项选择?题?)\s*[】\]]`)
	sectionRe     = regexp.MustCompile(`^\s*[一二三四五六七八九十]+\s*[、\.．]\s*(.*)$`)
	optionRe      = regexp.MustCompile(`^\s*([A-Ha-hＡ-Ｈ])\s*[\.．、\)）:：]\s*(.*)$`)
	inlineOptRe   = regexp.MustCompile(`(?:^|\s)([A-Ha-hＡ-Ｈ])\s*[\.．、\)）:：]`)
	answerRe      = regexp.MustCompile(`(?i)^\s*(?:(?:正确答案|参考答案|标准答案|答案)\s*[:：]?|answer\s*[:：])\s*(.*)$`)
	explanationRe = regexp.MustCompile(`(?i)^\s*(?:答案解析|试题解析|解析|explanation|analysis)\s*[:：]\s*(.*)$`)
	stemAnswerRe  = regexp.MustCompile(`[\(（]\s*([A-Ha-h]{1,8}|对|错|正确|错误|√|×)\s*[\)）]`)
)

// taggedBuilder 逐行累积一道题，遇到下一个题号时收尾
type taggedBuilder struct {
	questions   []model.Question
	current     *model.Question
	content     []string
	options     []string
	explanation []string
	inExplain   bool
	lastNumber  int
	sectionType model.QuestionType
}

// ParseTagged 解析带题号、选项字母、答案行、解析段的段落文本
func ParseTagged(lines []string) []model.Question {
	b := &taggedBuilder{}
	for _, line := range lines {
		b.feed(strings.TrimSpace(line))
	}
	b.flush()
	return b.questions
}

func (b *taggedBuilder) feed(line string) {
	if line == "" {
		return
	}

	if m := stemRe.FindStringSubmatch(line); m != nil && b.startsStem(m[1], line) {
		b.flush()
		n, _ := strconv.Atoi(m[1])
		b.lastNumber = n
		b.current = &model.Question{Type: b.sectionType}
		b.appendContent(m[2])
		return
	}

	if m := sectionRe.FindStringSubmatch(line); m != nil && utf8.RuneCountInString(line) <= 30 {
		if t, ok := ParseType(stripTypeWords(m[1])); ok {
			b.flush()
			b.sectionType = t
			return
		}
	}

	if b.current == nil {
		return
	}

	if m := explanationRe.FindStringSubmatch(line); m != nil {
		b.inExplain = true
		if s := strings.TrimSpace(m[1]); s != "" {
			b.explanation = append(b.explanation, s)
		}
		return
	}
	if b.inExplain {
		b.explanation = append(b.explanation, line)
		return
	}
	if m := answerRe.FindStringSubmatch(line); m != nil {
		b.current.Answer = strings.TrimSpace(m[1])
		return
	}
	if m := optionRe.FindStringSubmatch(line); m != nil {
		if inline := splitInlineOptions(line); len(inline) > 1 {
			b.options = append(b.options, inline...)
			return
		}
		b.options = append(b.options, strings.TrimSpace(m[2]))
		return
	}
	if len(b.options) > 0 {
		// 选项跨行
		b.options[len(b.options)-1] += line
		return
	}
	b.appendContent(line)
}

// startsStem 解析段中出现的数字开头行只有在题号连续或带分值时才算新题
func (b *taggedBuilder) startsStem(number, line string) bool {
	if !b.inExplain {
		return true
	}
	n, err := strconv.Atoi(number)
	if err != nil {
		return false
	}
	return n == b.lastNumber+1 || scoreRe.MatchString(line)
}

func (b *taggedBuilder) appendContent(s string) {
	if m := typeTagRe.FindStringSubmatch(s); m != nil {
		if t, ok := ParseType(m[1]); ok {
			b.current.Type = t
		}
		s = typeTagRe.ReplaceAllString(s, "")
	}
	s = strings.TrimSpace(scoreRe.ReplaceAllString(s, ""))
	if s != "" {
		b.content = append(b.content, s)
	}
}

func (b *taggedBuilder) flush() {
	defer b.reset()
	if b.current == nil {
		return
	}
	q := b.current
	q.Content = strings.Join(b.content, "\n")
	q.Options = b.options
	q.Explanation = strings.Join(b.explanation, "\n")
	if strings.TrimSpace(q.Answer) == "" {
		if m := stemAnswerRe.FindStringSubmatch(q.Content); m != nil {
			q.Answer = m[1]
			q.Content = strings.Replace(q.Content, m[0], "（ ）", 1)
		}
	}
	if finalize(q) {
		b.questions = append(b.questions, *q)
	}
}

func (b *taggedBuilder) reset() {
	b.current = nil
	b.content = nil
	b.options = nil
	b.explanation = nil
	b.inExplain = false
}

func stripTypeWords(s string) string {
	if i := strings.IndexAny(s, "（(：:"); i > 0 {
		return s[:i]
	}
	return s
}

// splitInlineOptions "A.苹果 B.香蕉 C.橘子" -> [苹果 香蕉 橘子]，字母必须从 A 起连续
func splitInlineOptions(s string) []string {
	locs := inlineOptRe.FindAllStringSubmatchIndex(s, -1)
	if len(locs) < 2 {
		return nil
	}
	var (
		out  []string
		want = 0
	)
	for i, loc := range locs {
		idx, ok := letterIndex([]rune(s[loc[2]:loc[3]])[0])
		if !ok || idx != want {
			return nil
		}
		want++
		end := len(s)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		out = append(out, strings.TrimSpace(s[loc[1]:end]))
	}
	return out
}
