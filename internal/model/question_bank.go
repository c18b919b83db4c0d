package model

import "encoding/json"

// QuestionBankItem 题库条目，是题目的独立副本，不再挂在具体测验下
// swagger:model QuestionBankItem
type QuestionBankItem struct {
	BaseModel
	OwnerID      uint            `gorm:"index;type:bigint unsigned;not null" json:"ownerId"`
	CourseID     uint            `gorm:"index;type:bigint unsigned" json:"courseId"`
	QuestionType QuestionType    `gorm:"size:20;not null" json:"questionType"`
	Content      string          `gorm:"type:text;not null" json:"content"`
	Difficulty   string          `gorm:"size:20;default:'medium'" json:"difficulty"`
	Topic        string          `gorm:"size:255" json:"topic"`
	Subtopic     string          `gorm:"size:255" json:"subtopic"`
	Options      json.RawMessage `gorm:"type:json" json:"options"` // 含正确性标记的选项快照
	Points       int             `gorm:"default:1" json:"points"`
	Explanation  string          `gorm:"type:text" json:"explanation"`
}

func (QuestionBankItem) TableName() string {
	return "question_bank"
}

// BankOption 题库中存储的选项快照
type BankOption struct {
	Content   string `json:"content"`
	IsCorrect bool   `json:"isCorrect"`
}
