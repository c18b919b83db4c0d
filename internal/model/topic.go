package model

// Topic 大纲主题，由 AI 根据课程资料生成，也可由教师手动编辑
type Topic struct {
	BaseModel
	CourseID       uint       `gorm:"index;type:bigint unsigned;not null" json:"courseId"`
	Title          string     `gorm:"size:255;not null" json:"title"`
	CognitiveLevel string     `gorm:"size:50" json:"cognitiveLevel"` // remember, understand, apply, analyze...
	Order          int        `gorm:"default:0" json:"order"`
	Subtopics      []Subtopic `gorm:"foreignKey:TopicID" json:"subtopics,omitempty"`
}

func (Topic) TableName() string {
	return "topics"
}

type Subtopic struct {
	BaseModel
	TopicID        uint   `gorm:"index;type:bigint unsigned;not null" json:"topicId"`
	Title          string `gorm:"size:255;not null" json:"title"`
	CognitiveLevel string `gorm:"size:50" json:"cognitiveLevel"`
	Order          int    `gorm:"default:0" json:"order"`
}

func (Subtopic) TableName() string {
	return "subtopics"
}
