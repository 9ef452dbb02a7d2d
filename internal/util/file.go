package util

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// ValidateMimeType 深度校验文件 MIME 类型
// allowedTypes: 允许的 MIME 前缀或完整类型，如 "text/plain", "application/zip"
func ValidateMimeType(reader io.Reader, allowedTypes []string) (string, error) {
	buffer := make([]byte, 512)
	n, err := reader.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	mimeType := http.DetectContentType(buffer[:n])

	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) || mimeType == allowed {
			return mimeType, nil
		}
	}

	return mimeType, errors.New("invalid file type: " + mimeType)
}

// ValidateImportFile 校验扩展名、大小和内容类型
func ValidateImportFile(name string, data []byte, allowedExts []string, maxBytes int64) error {
	ext := strings.ToLower(filepath.Ext(name))
	if len(allowedExts) > 0 && !containsFold(allowedExts, ext) {
		return fmt.Errorf("unsupported file extension %q", ext)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return fmt.Errorf("file %s exceeds %d bytes", name, maxBytes)
	}
	if _, err := ValidateMimeType(bytes.NewReader(data), AllowedImportMimeTypes); err != nil {
		return err
	}
	return nil
}

// SourceName 去掉目录部分，作为题目的来源标签
func SourceName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.TrimSpace(filepath.Base(name))
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
