package repository

import (
	"doodle_moodle_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(a *model.StudentAttempt) error {
	return r.DB.Create(a).Error
}

func (r *AttemptRepository) FindByID(id uint) (*model.StudentAttempt, error) {
	var a model.StudentAttempt
	err := r.DB.First(&a, id).Error
	return &a, err
}

func (r *AttemptRepository) FindByUserAndAssessment(userID, assessmentID uint) (*model.StudentAttempt, error) {
	var a model.StudentAttempt
	err := r.DB.Where("user_id = ? AND assessment_id = ?", userID, assessmentID).
		Order("created_at desc").First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) ListByAssessment(assessmentID uint, page, limit int) ([]model.StudentAttempt, int64, error) {
	var as []model.StudentAttempt
	var total int64
	query := r.DB.Model(&model.StudentAttempt{}).Where("assessment_id = ?", assessmentID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&as).Error
	return as, total, err
}

func (r *AttemptRepository) Update(a *model.StudentAttempt) error {
	return r.DB.Save(a).Error
}

func (r *AttemptRepository) CreateAnswer(ans *model.StudentAnswer) error {
	return r.DB.Create(ans).Error
}

func (r *AttemptRepository) ListAnswers(attemptID uint) ([]model.StudentAnswer, error) {
	var answers []model.StudentAnswer
	err := r.DB.Where("attempt_id = ?", attemptID).Order("created_at asc").Find(&answers).Error
	return answers, err
}

func (r *AttemptRepository) FindAnswer(attemptID, questionID uint) (*model.StudentAnswer, error) {
	var ans model.StudentAnswer
	err := r.DB.Where("attempt_id = ? AND question_id = ?", attemptID, questionID).First(&ans).Error
	if err != nil {
		return nil, err
	}
	return &ans, nil
}

// AnsweredQuestionIDs 已作答题目 id 集合，自适应出题时跳过
func (r *AttemptRepository) AnsweredQuestionIDs(attemptID uint) (map[uint]bool, error) {
	var ids []uint
	err := r.DB.Model(&model.StudentAnswer{}).
		Where("attempt_id = ?", attemptID).
		Pluck("question_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// ListExpired 超过时限仍未完成的作答，供后台任务自动收卷
func (r *AttemptRepository) ListExpired(now time.Time) ([]model.StudentAttempt, error) {
	var attempts []model.StudentAttempt
	err := r.DB.
		Joins("JOIN assessments ON assessments.id = student_attempts.assessment_id").
		Where("student_attempts.status = ?", model.AttemptInProgress).
		Where("assessments.time_limit > 0").
		Where("student_attempts.started_at < ?", now).
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}

	// 时限按各自测验配置过滤
	expired := attempts[:0]
	for _, a := range attempts {
		var limits []int
		if err := r.DB.Model(&model.Assessment{}).
			Where("id = ?", a.AssessmentID).
			Pluck("time_limit", &limits).Error; err != nil || len(limits) == 0 {
			continue
		}
		if limits[0] > 0 && now.Sub(a.StartedAt) > time.Duration(limits[0])*time.Minute {
			expired = append(expired, a)
		}
	}
	return expired, nil
}
