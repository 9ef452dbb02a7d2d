package ai

import (
	"regexp"
	"strings"
)

var (
	headingRe  = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]*`)
	// 星号两侧是字母数字时按算式处理，如 2*3*4
	emphasisRe = regexp.MustCompile(`(?m)(^|[^0-9A-Za-z*])\*([^*\s](?:[^*\n]*?[^*\s])?)\*($|[^0-9A-Za-z*])`)
)

// StripMarkdown 去掉粗体、斜体、删除线和标题标记，保留正文
func StripMarkdown(s string) string {
	s = headingRe.ReplaceAllString(s, "")
	s = strings.NewReplacer("**", "", "__", "", "~~", "").Replace(s)
	// 相邻的强调共用分隔字符，一遍替换不完
	for i := 0; i < 4; i++ {
		next := emphasisRe.ReplaceAllString(s, "${1}${2}${3}")
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimSpace(s)
}
