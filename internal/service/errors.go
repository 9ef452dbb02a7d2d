package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// DuplicateFilesError 导入时文件名已存在的文件被跳过
type DuplicateFilesError struct {
	Files []string
}

func (e *DuplicateFilesError) Error() string {
	return fmt.Sprintf("duplicate files skipped: %s", strings.Join(e.Files, ", "))
}

// FileFailure 单个文件的解析失败原因
type FileFailure struct {
	FileName string `json:"fileName"`
	Reason   string `json:"reason"`
}

// ImportFailuresError 批量导入中解析失败的文件，不影响其他文件
type ImportFailuresError struct {
	Failures []FileFailure
}

func (e *ImportFailuresError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.FileName + ": " + f.Reason
	}
	return fmt.Sprintf("%d file(s) failed to import: %s", len(e.Failures), strings.Join(parts, "; "))
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// notFoundAs 把 gorm 的未找到错误转换为领域错误
func notFoundAs(err, target error) error {
	if isNotFound(err) {
		return target
	}
	return err
}
