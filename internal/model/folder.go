package model

import "time"

// swagger:model Folder
type Folder struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Files     []string  `gorm:"-" json:"files"`
}

func (Folder) TableName() string {
	return "folders"
}

// FileFolder 题库文件与文件夹的对应关系，仅用于展示分组
type FileFolder struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	FileName string `gorm:"size:255;uniqueIndex;not null" json:"fileName"`
	FolderID uint   `gorm:"index;not null" json:"folderId"`
}

func (FileFolder) TableName() string {
	return "file_folders"
}

type Preference struct {
	Key   string `gorm:"primaryKey;size:100" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}

func (Preference) TableName() string {
	return "preferences"
}

type SchemaVersion struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false" json:"version"`
	AppliedAt time.Time `json:"appliedAt"`
}

func (SchemaVersion) TableName() string {
	return "schema_versions"
}
