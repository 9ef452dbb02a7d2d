package model

import "gorm.io/datatypes"

type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
	QuestionJudge    QuestionType = "judge"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionSingle, QuestionMultiple, QuestionJudge:
		return true
	}
	return false
}

// swagger:model Question
type Question struct {
	BaseModel
	Content     string                      `gorm:"type:text;not null" json:"content"`
	Type        QuestionType                `gorm:"size:20;not null;default:'single'" json:"type"`
	Options     datatypes.JSONSlice[string] `json:"options"`
	Answer      string                      `gorm:"size:16" json:"answer"` // 字母编码：A、ABD
	Explanation string                      `gorm:"type:text" json:"explanation"`
	FileName    string                      `gorm:"size:255;index" json:"fileName"`
	IsFavorite  bool                        `gorm:"default:false" json:"isFavorite"`
	IsWrong     bool                        `gorm:"default:false" json:"isWrong"`
}

func (Question) TableName() string {
	return "questions"
}

// QuestionFilter 题目列表筛选条件
type QuestionFilter struct {
	FileName string
	Type     QuestionType
	Favorite *bool
	Wrong    *bool
	Keyword  string
}

// SourceFile 题库（按来源文件聚合）
type SourceFile struct {
	FileName   string `json:"fileName"`
	Count      int64  `json:"count"`
	FolderID   *uint  `json:"folderId,omitempty"`
	FolderName string `json:"folderName,omitempty"`
}
