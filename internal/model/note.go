package model

import "time"

// swagger:model QuestionNote
type QuestionNote struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	QuestionID uint      `gorm:"uniqueIndex;not null" json:"questionId"`
	Content    string    `gorm:"type:text" json:"content"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (QuestionNote) TableName() string {
	return "question_notes"
}

// QuestionAnalysis AI 解析持久化缓存
// swagger:model QuestionAnalysis
type QuestionAnalysis struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	QuestionID uint      `gorm:"uniqueIndex:idx_analysis_question_provider;not null" json:"questionId"`
	Provider   string    `gorm:"size:32;uniqueIndex:idx_analysis_question_provider;not null" json:"provider"`
	Content    string    `gorm:"type:text" json:"content"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (QuestionAnalysis) TableName() string {
	return "question_analyses"
}

// QuestionAsk AI 追问缓存
// swagger:model QuestionAsk
type QuestionAsk struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	QuestionID uint      `gorm:"uniqueIndex:idx_ask_key;not null" json:"questionId"`
	Provider   string    `gorm:"size:32;uniqueIndex:idx_ask_key;not null" json:"provider"`
	PromptHash string    `gorm:"size:64;uniqueIndex:idx_ask_key;not null" json:"promptHash"`
	Prompt     string    `gorm:"type:text" json:"prompt"`
	Answer     string    `gorm:"type:text" json:"answer"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (QuestionAsk) TableName() string {
	return "question_asks"
}
