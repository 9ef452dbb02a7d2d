package model

import (
	"time"

	"gorm.io/datatypes"
)

// swagger:model WrongAnswer
type WrongAnswer struct {
	BaseModel
	QuestionID uint                     `gorm:"uniqueIndex;not null" json:"questionId"`
	Question   *Question                `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
	Selected   datatypes.JSONSlice[int] `json:"selected"`
	WrongCount int                      `gorm:"default:1" json:"wrongCount"`
	FileName   string                   `gorm:"size:255;index" json:"fileName"`
}

func (WrongAnswer) TableName() string {
	return "wrong_answers"
}

// swagger:model Favorite
type Favorite struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	QuestionID uint      `gorm:"uniqueIndex;not null" json:"questionId"`
	Question   *Question `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
	FileName   string    `gorm:"size:255;index" json:"fileName"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Favorite) TableName() string {
	return "favorites"
}
