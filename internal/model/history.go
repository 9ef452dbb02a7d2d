package model

import "time"

// HistoryRecord 练习记录
// swagger:model HistoryRecord
type HistoryRecord struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Score      int       `gorm:"not null" json:"score"`
	Total      int       `gorm:"not null" json:"total"`
	Unanswered int       `gorm:"default:0" json:"unanswered"`
	FileName   string    `gorm:"size:255;index" json:"fileName"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
}

func (HistoryRecord) TableName() string {
	return "history_records"
}

// ExamHistoryRecord 考试记录
// swagger:model ExamHistoryRecord
type ExamHistoryRecord struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Score           int       `gorm:"not null" json:"score"`
	Total           int       `gorm:"not null" json:"total"`
	Unanswered      int       `gorm:"default:0" json:"unanswered"`
	FileName        string    `gorm:"size:255;index" json:"fileName"`
	DurationSeconds int64     `gorm:"default:0" json:"durationSeconds"`
	ExamType        string    `gorm:"size:50" json:"examType"`
	CreatedAt       time.Time `gorm:"index" json:"createdAt"`
}

func (ExamHistoryRecord) TableName() string {
	return "exam_history_records"
}
