package service

import (
	"errors"

	"doodle_moodle_backend/internal/repository"
	"doodle_moodle_backend/internal/util"

	"gorm.io/gorm"
)

// AnalyticsService 统计分析还没接入真实数据，先返回占位结构
type AnalyticsService struct {
	CourseRepo *repository.CourseRepository
}

func NewAnalyticsService(courseRepo *repository.CourseRepository) *AnalyticsService {
	return &AnalyticsService{CourseRepo: courseRepo}
}

type CourseAnalytics struct {
	CourseID        uint    `json:"courseId"`
	EnrolledCount   int     `json:"enrolledCount"`
	AttemptCount    int     `json:"attemptCount"`
	AverageScore    float64 `json:"averageScore"`
	CompletionRate  float64 `json:"completionRate"`
	WeakestTopics   []string `json:"weakestTopics"`
	StrongestTopics []string `json:"strongestTopics"`
}

type PlatformOverview struct {
	TotalCourses     int `json:"totalCourses"`
	TotalAssessments int `json:"totalAssessments"`
	TotalAttempts    int `json:"totalAttempts"`
	ActiveStudents   int `json:"activeStudents"`
}

func (s *AnalyticsService) CourseStats(courseID, instructorID uint) (*CourseAnalytics, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	// 只有课程所属教师能看统计
	if course.InstructorID != instructorID {
		return nil, util.ErrPermissionDenied
	}
	return &CourseAnalytics{
		CourseID:        courseID,
		WeakestTopics:   []string{},
		StrongestTopics: []string{},
	}, nil
}

func (s *AnalyticsService) Overview() *PlatformOverview {
	return &PlatformOverview{}
}
