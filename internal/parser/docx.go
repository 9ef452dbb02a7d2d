package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"baliance.com/gooxml/document"
)

var ErrInvalidDocx = errors.New("invalid docx document")

// DocxParagraphs 每个段落的纯文本，表格单元格中的段落同样返回；段内换行拆成多行
func DocxParagraphs(data []byte) ([]string, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocx, err)
	}

	var lines []string
	for _, p := range doc.Paragraphs() {
		var b strings.Builder
		for _, r := range p.Runs() {
			b.WriteString(r.Text())
		}
		lines = append(lines, strings.Split(b.String(), "\n")...)
	}
	return lines, nil
}
