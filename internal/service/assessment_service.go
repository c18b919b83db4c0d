package service

import (
	"errors"
	"fmt"
	"time"

	"doodle_moodle_backend/internal/model"
	"doodle_moodle_backend/internal/repository"
	"doodle_moodle_backend/internal/util"
	"doodle_moodle_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AssessmentService struct {
	AssessmentRepo *repository.AssessmentRepository
	Courses        *CourseService
	AI             Completer
}

func NewAssessmentService(assessmentRepo *repository.AssessmentRepository, courses *CourseService, ai Completer) *AssessmentService {
	return &AssessmentService{
		AssessmentRepo: assessmentRepo,
		Courses:        courses,
		AI:             ai,
	}
}

type CreateAssessmentInput struct {
	CourseID     uint   `json:"courseId" binding:"required"`
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description"`
	TimeLimit    int    `json:"timeLimit"`
	PassingScore int    `json:"passingScore"`

	MCQCount        int `json:"mcqCount"`
	MSQCount        int `json:"msqCount"`
	SubjectiveCount int `json:"subjectiveCount"`

	AcademicLevel string `json:"academicLevel"`
	EasyPercent   int    `json:"easyPercent"`
	MediumPercent int    `json:"mediumPercent"`
	HardPercent   int    `json:"hardPercent"`

	Selections []TopicSelection `json:"selections" binding:"required"`
}

// CreateAssessment 一次 AI 调用生成整套题目，与测验同事务落库
func (s *AssessmentService) CreateAssessment(instructorID uint, input CreateAssessmentInput) (*model.Assessment, error) {
	course, err := s.Courses.ensureOwner(input.CourseID, instructorID)
	if err != nil {
		return nil, err
	}

	total := input.MCQCount + input.MSQCount + input.SubjectiveCount
	if total <= 0 {
		return nil, fmt.Errorf("%w: question counts must add up to at least 1", util.ErrInvalidInput)
	}
	// 难度占比可整体省略，一旦填了任意一项就必须凑满 100
	if input.EasyPercent != 0 || input.MediumPercent != 0 || input.HardPercent != 0 {
		if input.EasyPercent+input.MediumPercent+input.HardPercent != 100 {
			return nil, util.ErrBadDistribution
		}
	}
	if len(input.Selections) == 0 {
		return nil, fmt.Errorf("%w: select at least one syllabus topic", util.ErrInvalidInput)
	}
	if err := s.validateSelections(input.CourseID, input.Selections); err != nil {
		return nil, err
	}

	material, err := s.Courses.collectMaterial(input.CourseID)
	if err != nil {
		return nil, err
	}

	drafts, err := GenerateQuestions(s.AI, QuestionGenSpec{
		CourseTitle:     course.Title,
		Material:        material,
		Selections:      input.Selections,
		MCQCount:        input.MCQCount,
		MSQCount:        input.MSQCount,
		SubjectiveCount: input.SubjectiveCount,
		AcademicLevel:   input.AcademicLevel,
		EasyPercent:     input.EasyPercent,
		MediumPercent:   input.MediumPercent,
		HardPercent:     input.HardPercent,
	})
	if err != nil {
		return nil, err
	}

	questions := normalizeQuestionDrafts(drafts)
	if len(questions) == 0 {
		return nil, errors.New("AI produced no usable questions, try again")
	}

	assessment := &model.Assessment{
		CourseID:      input.CourseID,
		InstructorID:  instructorID,
		Title:         input.Title,
		Description:   input.Description,
		TimeLimit:     input.TimeLimit,
		PassingScore:  input.PassingScore,
		AcademicLevel: input.AcademicLevel,
		EasyPercent:   input.EasyPercent,
		MediumPercent: input.MediumPercent,
		HardPercent:   input.HardPercent,
	}
	if err := s.AssessmentRepo.CreateWithQuestions(assessment, questions); err != nil {
		return nil, err
	}

	logger.Log.Info("测验创建成功",
		zap.Uint("assessmentId", assessment.ID),
		zap.Uint("courseId", input.CourseID),
		zap.Int("questions", len(questions)))
	return assessment, nil
}

func (s *AssessmentService) GetAssessment(id uint, viewerID uint, viewerRole model.UserRole) (*model.Assessment, error) {
	a, err := s.AssessmentRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAssessmentNotFound
		}
		return nil, err
	}

	if viewerRole == model.Instructor && a.InstructorID == viewerID {
		return a, nil
	}
	if !a.IsPublished {
		return nil, util.ErrAssessmentNotFound
	}
	return a, nil
}

func (s *AssessmentService) ListByCourse(courseID, instructorID uint, page, limit int) ([]model.Assessment, int64, error) {
	if _, err := s.Courses.ensureOwner(courseID, instructorID); err != nil {
		return nil, 0, err
	}
	return s.AssessmentRepo.ListByCourse(courseID, page, limit)
}

// ListOpenByCourse 学生可见的测验：课程已发布且测验已发布
func (s *AssessmentService) ListOpenByCourse(courseID uint) ([]model.Assessment, error) {
	course, err := s.Courses.CourseRepo.FindByID(courseID)
	if err != nil || !course.IsPublished {
		return nil, util.ErrCourseNotFound
	}
	return s.AssessmentRepo.ListPublishedByCourse(courseID)
}

func (s *AssessmentService) UpdateAssessment(id, instructorID uint, title, description string, timeLimit, passingScore int) (*model.Assessment, error) {
	a, err := s.ensureOwner(id, instructorID)
	if err != nil {
		return nil, err
	}

	if title != "" {
		a.Title = title
	}
	a.Description = description
	a.TimeLimit = timeLimit
	a.PassingScore = passingScore
	if err := s.AssessmentRepo.Update(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AssessmentService) DeleteAssessment(id, instructorID uint) error {
	if _, err := s.ensureOwner(id, instructorID); err != nil {
		return err
	}
	return s.AssessmentRepo.Delete(id)
}

// Publish 发布前至少要有一道题
func (s *AssessmentService) Publish(id, instructorID uint) (*model.Assessment, error) {
	a, err := s.ensureOwner(id, instructorID)
	if err != nil {
		return nil, err
	}

	n, err := s.AssessmentRepo.CountQuestions(id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, util.ErrAssessmentNoQuestion
	}

	now := time.Now()
	a.IsPublished = true
	a.PublishedAt = &now
	if err := s.AssessmentRepo.Update(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AssessmentService) Unpublish(id, instructorID uint) (*model.Assessment, error) {
	a, err := s.ensureOwner(id, instructorID)
	if err != nil {
		return nil, err
	}

	a.IsPublished = false
	a.PublishedAt = nil
	if err := s.AssessmentRepo.Update(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AssessmentService) ListQuestions(assessmentID, instructorID uint) ([]model.Question, error) {
	if _, err := s.ensureOwner(assessmentID, instructorID); err != nil {
		return nil, err
	}
	return s.AssessmentRepo.ListQuestions(assessmentID)
}

func (s *AssessmentService) AddQuestion(assessmentID, instructorID uint, q *model.Question) error {
	if _, err := s.ensureOwner(assessmentID, instructorID); err != nil {
		return err
	}
	if err := validateQuestion(q); err != nil {
		return err
	}
	q.AssessmentID = assessmentID
	return s.AssessmentRepo.CreateQuestion(q)
}

func (s *AssessmentService) UpdateQuestion(assessmentID, questionID, instructorID uint, q *model.Question) error {
	if _, err := s.ensureOwner(assessmentID, instructorID); err != nil {
		return err
	}
	existing, err := s.AssessmentRepo.FindQuestionByID(questionID)
	if err != nil || existing.AssessmentID != assessmentID {
		return util.ErrQuestionNotFound
	}
	if err := validateQuestion(q); err != nil {
		return err
	}
	q.ID = questionID
	q.AssessmentID = assessmentID
	q.CreatedAt = existing.CreatedAt
	return s.AssessmentRepo.UpdateQuestion(q)
}

func (s *AssessmentService) DeleteQuestion(assessmentID, questionID, instructorID uint) error {
	if _, err := s.ensureOwner(assessmentID, instructorID); err != nil {
		return err
	}
	existing, err := s.AssessmentRepo.FindQuestionByID(questionID)
	if err != nil || existing.AssessmentID != assessmentID {
		return util.ErrQuestionNotFound
	}
	return s.AssessmentRepo.DeleteQuestion(questionID)
}

func (s *AssessmentService) ensureOwner(assessmentID, instructorID uint) (*model.Assessment, error) {
	a, err := s.AssessmentRepo.FindByID(assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAssessmentNotFound
		}
		return nil, err
	}
	if a.InstructorID != instructorID {
		return nil, util.ErrPermissionDenied
	}
	return a, nil
}

// validateSelections 出题范围必须来自课程现有大纲
func (s *AssessmentService) validateSelections(courseID uint, selections []TopicSelection) error {
	course, err := s.Courses.CourseRepo.FindByIDWithSyllabus(courseID)
	if err != nil {
		return err
	}

	known := make(map[string]map[string]bool, len(course.Topics))
	for _, t := range course.Topics {
		subs := make(map[string]bool, len(t.Subtopics))
		for _, st := range t.Subtopics {
			subs[st.Title] = true
		}
		known[t.Title] = subs
	}

	for _, sel := range selections {
		subs, ok := known[sel.Topic]
		if !ok {
			return fmt.Errorf("%w: topic %q is not in the course syllabus", util.ErrInvalidInput, sel.Topic)
		}
		for _, st := range sel.Subtopics {
			if !subs[st] {
				return fmt.Errorf("%w: subtopic %q is not under topic %q", util.ErrInvalidInput, st, sel.Topic)
			}
		}
	}
	return nil
}

// normalizeQuestionDrafts 过滤 AI 输出里不合规的题目并兜底默认值
// mcq 恰好一个正确选项，msq 至少两个，主观题不带选项
func normalizeQuestionDrafts(drafts []QuestionDraft) []model.Question {
	var questions []model.Question
	for _, d := range drafts {
		q := model.Question{
			QuestionType: model.QuestionType(d.Type),
			Content:      d.Content,
			Difficulty:   d.Difficulty,
			Topic:        d.Topic,
			Subtopic:     d.Subtopic,
			Points:       d.Points,
			Explanation:  d.Explanation,
		}
		if q.Content == "" {
			continue
		}
		if q.Points <= 0 {
			q.Points = 1
		}
		switch q.Difficulty {
		case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
		default:
			q.Difficulty = model.DifficultyMedium
		}

		correct := 0
		for i, opt := range d.Options {
			if opt.Content == "" {
				continue
			}
			if opt.Correct {
				correct++
			}
			q.Options = append(q.Options, model.QuestionOption{
				Content:   opt.Content,
				IsCorrect: opt.Correct,
				Order:     i + 1,
			})
		}

		switch q.QuestionType {
		case model.MCQ:
			if len(q.Options) < 2 || correct != 1 {
				continue
			}
		case model.MSQ:
			if len(q.Options) < 3 || correct < 2 {
				continue
			}
		case model.Subjective:
			q.Options = nil
		default:
			continue
		}

		q.Order = len(questions) + 1
		questions = append(questions, q)
	}
	return questions
}

func validateQuestion(q *model.Question) error {
	if q.Content == "" {
		return fmt.Errorf("%w: question content is required", util.ErrInvalidInput)
	}
	if q.Points <= 0 {
		q.Points = 1
	}

	correct := 0
	for _, opt := range q.Options {
		if opt.IsCorrect {
			correct++
		}
	}
	switch q.QuestionType {
	case model.MCQ:
		if len(q.Options) < 2 || correct != 1 {
			return fmt.Errorf("%w: mcq requires at least 2 options with exactly one correct", util.ErrInvalidInput)
		}
	case model.MSQ:
		if len(q.Options) < 3 || correct < 2 {
			return fmt.Errorf("%w: msq requires at least 3 options with two or more correct", util.ErrInvalidInput)
		}
	case model.Subjective:
		if len(q.Options) > 0 {
			return fmt.Errorf("%w: subjective question cannot have options", util.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown question type", util.ErrInvalidInput)
	}
	return nil
}
