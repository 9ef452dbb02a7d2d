package ai

import (
	"fmt"
	"strings"

	"quiz_bank_backend/internal/model"
)

const systemPrompt = "你是一名耐心的考试辅导老师。请用简洁的中文解析题目，说明正确答案的依据，并指出其他选项错在哪里。"

var typeNames = map[model.QuestionType]string{
	model.QuestionSingle:   "单选题",
	model.QuestionMultiple: "多选题",
	model.QuestionJudge:    "判断题",
}

// ExplainMessages 构造解析题目的对话
func ExplainMessages(q *model.Question) []Message {
	return []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: describe(q) + "请给出详细解析。"},
	}
}

// AskMessages 针对题目的自由追问
func AskMessages(q *model.Question, prompt string) []Message {
	return []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: describe(q) + strings.TrimSpace(prompt)},
	}
}

func describe(q *model.Question) string {
	var b strings.Builder
	name := typeNames[q.Type]
	if name == "" {
		name = "选择题"
	}
	fmt.Fprintf(&b, "【%s】%s\n", name, q.Content)
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "%c. %s\n", 'A'+i, opt)
	}
	if q.Answer != "" {
		fmt.Fprintf(&b, "正确答案：%s\n", q.Answer)
	}
	return b.String()
}
