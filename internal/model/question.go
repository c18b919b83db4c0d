package model

type QuestionType string

const (
	MCQ        QuestionType = "mcq"        // 单选
	MSQ        QuestionType = "msq"        // 多选
	Subjective QuestionType = "subjective" // 主观题
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// swagger:model Question
type Question struct {
	BaseModel
	AssessmentID uint             `gorm:"index;type:bigint unsigned;not null" json:"assessmentId"`
	QuestionType QuestionType     `gorm:"size:20;not null" json:"questionType"`
	Content      string           `gorm:"type:text;not null" json:"content"` // 题干
	Difficulty   string           `gorm:"size:20;default:'medium'" json:"difficulty"`
	Topic        string           `gorm:"size:255" json:"topic"`
	Subtopic     string           `gorm:"size:255" json:"subtopic"`
	Points       int              `gorm:"default:1" json:"points"`
	Order        int              `gorm:"default:0" json:"order"`
	Explanation  string           `gorm:"type:text" json:"explanation"`
	Options      []QuestionOption `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

type QuestionOption struct {
	BaseModel
	QuestionID uint   `gorm:"index;type:bigint unsigned;not null" json:"questionId"`
	Content    string `gorm:"type:text;not null" json:"content"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect"`
	Order      int    `gorm:"default:0" json:"order"`
}

func (QuestionOption) TableName() string {
	return "question_options"
}
