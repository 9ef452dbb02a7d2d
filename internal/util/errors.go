package util

import "errors"

var (
	ErrQuestionNotFound      = errors.New("题目不存在")
	ErrProgressNotFound      = errors.New("进度不存在")
	ErrFolderNotFound        = errors.New("文件夹不存在")
	ErrFolderExists          = errors.New("文件夹已存在")
	ErrSourceNotFound        = errors.New("题库文件不存在")
	ErrUnknownProvider       = errors.New("unknown ai provider")
	ErrUnsupportedExportType = errors.New("unsupported export type")
	ErrInvalidAnswer         = errors.New("invalid answer selection")
	ErrImportJobNotFound     = errors.New("import job not found")
	ErrSessionFinished       = errors.New("session already submitted")
	ErrEmptySession          = errors.New("no questions available for session")
	ErrInvalidDeviceKey      = errors.New("invalid device key")
	ErrAuthDisabled          = errors.New("auth disabled")
	ErrWrongAnswerNotFound   = errors.New("错题不存在")
	ErrHistoryNotFound       = errors.New("记录不存在")
	ErrNoteNotFound          = errors.New("笔记不存在")
)
