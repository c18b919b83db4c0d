package model

import "time"

// Course 课程 由教师创建，上传资料后生成大纲
// swagger:model Course
type Course struct {
	BaseModel
	InstructorID uint       `gorm:"index;type:bigint unsigned;not null" json:"instructorId"`
	Instructor   *User      `gorm:"foreignKey:InstructorID" json:"instructor,omitempty"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	FileURL      string     `gorm:"size:512" json:"fileUrl"` // 旧版单文件字段，新上传走 course_files
	IsPublished  bool       `gorm:"default:false" json:"isPublished"`
	PublishedAt  *time.Time `json:"publishedAt,omitempty"`
	Topics       []Topic    `gorm:"foreignKey:CourseID" json:"topics,omitempty"`
	Files        []CourseFile `gorm:"foreignKey:CourseID" json:"files,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// CourseFile 课程资料文件，一门课程可有多个
type CourseFile struct {
	BaseModel
	CourseID    uint   `gorm:"index;type:bigint unsigned;not null" json:"courseId"`
	FileName    string `gorm:"size:255" json:"fileName"`
	FileURL     string `gorm:"size:512;not null" json:"fileUrl"`
	ObjectKey   string `gorm:"size:255" json:"-"` // 存储桶内对象名
	ContentType string `gorm:"size:100" json:"contentType"`
	Size        int64  `gorm:"default:0" json:"size"`
	UploaderID  uint   `gorm:"index;type:bigint unsigned" json:"uploaderId"`
	// 上传时提取的纯文本，生成大纲/出题不用再回读存储桶
	ExtractedText string `gorm:"type:longtext" json:"-"`
}

func (CourseFile) TableName() string {
	return "course_files"
}
