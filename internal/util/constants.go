package util

const DateFormat = "2006-01-02"

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 题库文件上传相关常量
const (
	MimeOctetStream = "application/octet-stream"
	MimeJSON        = "application/json"
)

// xlsx/docx 探测为 zip，纯文本为 text/plain
var AllowedImportMimeTypes = []string{"text/plain", "application/zip", MimeOctetStream}

// 对象存储中的目录前缀
const (
	ImportArchivePrefix = "imports"
	ExportArchivePrefix = "exports"
)
