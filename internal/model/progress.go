package model

import (
	"time"

	"gorm.io/datatypes"
)

type SessionMode string

const (
	ModePractice SessionMode = "practice"
	ModeExam     SessionMode = "exam"
)

// AnswerState 单题作答状态，按题目 ID 存储而不是按列表下标
type AnswerState struct {
	Selected   []int      `json:"selected"`
	ShowResult bool       `json:"showResult"`
	Note       string     `json:"note,omitempty"`
	Analysis   string     `json:"analysis,omitempty"`
	AnsweredAt *time.Time `json:"answeredAt,omitempty"`
}

type AnswerStates map[uint]AnswerState

// Progress 可恢复的练习/考试进度快照
// swagger:model Progress
type Progress struct {
	BaseModel
	SessionKey       string                           `gorm:"size:255;uniqueIndex;not null" json:"sessionKey"`
	Mode             SessionMode                      `gorm:"size:20;not null;default:'practice'" json:"mode"`
	FileName         string                           `gorm:"size:255;index" json:"fileName"`
	QuestionOrder    datatypes.JSONSlice[uint]        `json:"questionOrder"`
	CurrentIndex     int                              `gorm:"default:0" json:"currentIndex"`
	States           datatypes.JSONType[AnswerStates] `json:"states"`
	StartedAt        time.Time                        `json:"startedAt"`
	TimeLimitSeconds int                              `gorm:"default:0" json:"timeLimitSeconds"`
	ExamType         string                           `gorm:"size:50" json:"examType,omitempty"`
	Finished         bool                             `gorm:"default:false" json:"finished"`
	Fingerprint      string                           `gorm:"size:64" json:"-"`
	LegacySelected   datatypes.JSONSlice[[]int]       `json:"-"` // v5 按下标存储的选项，v6 迁移后清空
}

func (Progress) TableName() string {
	return "progresses"
}

// StateOf 返回题目的作答状态，未作答时返回零值
func (p *Progress) StateOf(questionID uint) AnswerState {
	states := p.States.Data()
	if states == nil {
		return AnswerState{}
	}
	return states[questionID]
}

// SetState 按题目 ID 写入状态（写时复制，避免与已广播的快照共享 map）
func (p *Progress) SetState(questionID uint, state AnswerState) {
	old := p.States.Data()
	next := make(AnswerStates, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[questionID] = state
	p.States = datatypes.NewJSONType(next)
}
