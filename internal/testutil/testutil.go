package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"doodle_moodle_backend/internal/model"
	"doodle_moodle_backend/pkg/database"
	"doodle_moodle_backend/pkg/logger"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq int64

func init() {
	logger.InitTestLogger()
}

// NewTestDB 每个测试一个独立的内存库，跑全量迁移
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, role model.UserRole) *model.User {
	t.Helper()

	user := &model.User{
		Name:     fmt.Sprintf("user-%d", time.Now().UnixNano()),
		Email:    fmt.Sprintf("u%d@example.com", atomic.AddInt64(&dbSeq, 1)),
		Password: "$2a$10$abcdefghijklmnopqrstuv", // 占位哈希，登录测试自己生成
		Role:     role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func CreateCourse(t *testing.T, db *gorm.DB, instructorID uint, published bool) *model.Course {
	t.Helper()

	course := &model.Course{
		InstructorID: instructorID,
		Title:        "Intro to Testing",
		Description:  "course for tests",
		IsPublished:  published,
	}
	if published {
		now := time.Now()
		course.PublishedAt = &now
	}
	if err := db.Create(course).Error; err != nil {
		t.Fatalf("create course: %v", err)
	}
	return course
}

// CreateSyllabus 给课程挂一个最小可用的大纲
func CreateSyllabus(t *testing.T, db *gorm.DB, courseID uint) []model.Topic {
	t.Helper()

	topics := []model.Topic{
		{
			CourseID:       courseID,
			Title:          "Fundamentals",
			CognitiveLevel: "understand",
			Order:          1,
			Subtopics: []model.Subtopic{
				{Title: "Definitions", CognitiveLevel: "remember", Order: 1},
				{Title: "Examples", CognitiveLevel: "apply", Order: 2},
			},
		},
		{
			CourseID:       courseID,
			Title:          "Advanced Topics",
			CognitiveLevel: "analyze",
			Order:          2,
			Subtopics: []model.Subtopic{
				{Title: "Edge Cases", CognitiveLevel: "analyze", Order: 1},
			},
		},
	}
	for i := range topics {
		if err := db.Create(&topics[i]).Error; err != nil {
			t.Fatalf("create topic: %v", err)
		}
	}
	return topics
}

// CreateAssessment 建一个含单选和多选各一题的测验
func CreateAssessment(t *testing.T, db *gorm.DB, courseID, instructorID uint, published bool) *model.Assessment {
	t.Helper()

	a := &model.Assessment{
		CourseID:     courseID,
		InstructorID: instructorID,
		Title:        "Quiz 1",
		PassingScore: 50,
	}
	if published {
		now := time.Now()
		a.IsPublished = true
		a.PublishedAt = &now
	}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("create assessment: %v", err)
	}

	questions := []model.Question{
		{
			AssessmentID: a.ID,
			QuestionType: model.MCQ,
			Content:      "2 + 2 = ?",
			Difficulty:   model.DifficultyEasy,
			Topic:        "Fundamentals",
			Points:       2,
			Order:        1,
			Options: []model.QuestionOption{
				{Content: "3", Order: 1},
				{Content: "4", IsCorrect: true, Order: 2},
				{Content: "5", Order: 3},
			},
		},
		{
			AssessmentID: a.ID,
			QuestionType: model.MSQ,
			Content:      "Which are even?",
			Difficulty:   model.DifficultyMedium,
			Topic:        "Fundamentals",
			Points:       3,
			Order:        2,
			Options: []model.QuestionOption{
				{Content: "1", Order: 1},
				{Content: "2", IsCorrect: true, Order: 2},
				{Content: "4", IsCorrect: true, Order: 3},
				{Content: "7", Order: 4},
			},
		},
	}
	for i := range questions {
		if err := db.Create(&questions[i]).Error; err != nil {
			t.Fatalf("create question: %v", err)
		}
		switch questions[i].QuestionType {
		case model.MCQ:
			a.MCQCount++
		case model.MSQ:
			a.MSQCount++
		case model.Subjective:
			a.SubjectiveCount++
		}
	}
	if err := db.Save(a).Error; err != nil {
		t.Fatalf("save assessment counts: %v", err)
	}
	return a
}
