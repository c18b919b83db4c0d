package model

import (
	"encoding/json"
	"time"
)

const (
	AttemptInProgress = "in_progress"
	AttemptCompleted  = "completed"
)

// StudentAttempt 学生一次测验的作答记录
// swagger:model StudentAttempt
type StudentAttempt struct {
	BaseModel
	AssessmentID  uint       `gorm:"index;type:bigint unsigned;not null" json:"assessmentId"`
	UserID        uint       `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	Status        string     `gorm:"size:20;default:'in_progress'" json:"status"`
	Score         int        `gorm:"default:0" json:"score"`
	MaxScore      int        `gorm:"default:0" json:"maxScore"`
	Passed        bool       `gorm:"default:false" json:"passed"`
	PendingReview bool       `gorm:"default:false" json:"pendingReview"` // 有主观题待人工评分
	Feedback      string     `gorm:"type:text" json:"feedback"`
	StartedAt     time.Time  `json:"startedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

func (StudentAttempt) TableName() string {
	return "student_attempts"
}

type StudentAnswer struct {
	BaseModel
	AttemptID         uint            `gorm:"index;type:bigint unsigned;not null" json:"attemptId"`
	QuestionID        uint            `gorm:"index;type:bigint unsigned;not null" json:"questionId"`
	SelectedOptionIDs json.RawMessage `gorm:"type:json" json:"selectedOptionIds"` // []uint
	AnswerText        string          `gorm:"type:text" json:"answerText"`
	IsCorrect         bool            `gorm:"default:false" json:"isCorrect"`
	Graded            bool            `gorm:"default:false" json:"graded"` // 主观题提交时为 false
	Points            int             `gorm:"default:0" json:"points"`
}

func (StudentAnswer) TableName() string {
	return "student_answers"
}
