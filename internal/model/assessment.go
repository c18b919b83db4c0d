package model

import "time"

// swagger:model Assessment
type Assessment struct {
	BaseModel
	CourseID     uint       `gorm:"index;type:bigint unsigned;not null" json:"courseId"`
	InstructorID uint       `gorm:"index;type:bigint unsigned;not null" json:"instructorId"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	TimeLimit    int        `gorm:"default:0" json:"timeLimit"` // Minutes, 0 = unlimited
	PassingScore int        `gorm:"default:0" json:"passingScore"`
	IsPublished  bool       `gorm:"default:false" json:"isPublished"`
	PublishedAt  *time.Time `json:"publishedAt,omitempty"`

	// 各题型数量汇总，随题目增删在同一事务内维护
	MCQCount        int `gorm:"default:0" json:"mcqCount"`
	MSQCount        int `gorm:"default:0" json:"msqCount"`
	SubjectiveCount int `gorm:"default:0" json:"subjectiveCount"`

	AcademicLevel string `gorm:"size:50" json:"academicLevel"`
	EasyPercent   int    `gorm:"default:0" json:"easyPercent"`
	MediumPercent int    `gorm:"default:0" json:"mediumPercent"`
	HardPercent   int    `gorm:"default:0" json:"hardPercent"`
}

func (Assessment) TableName() string {
	return "assessments"
}
