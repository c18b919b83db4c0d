package service

import (
	"encoding/json"
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

// QuizService 学生作答流程：一次取一题，按上一题对错调整难度
type QuizService struct {
	AttemptRepo    *repository.AttemptRepository
	AssessmentRepo *repository.AssessmentRepository
	CourseRepo     *repository.CourseRepository
	AI             Completer
}

func NewQuizService(attemptRepo *repository.AttemptRepository, assessmentRepo *repository.AssessmentRepository, courseRepo *repository.CourseRepository, ai Completer) *QuizService {
	return &QuizService{
		AttemptRepo:    attemptRepo,
		AssessmentRepo: assessmentRepo,
		CourseRepo:     courseRepo,
		AI:             ai,
	}
}

// StartAttempt 开始作答；已有未完成的作答则恢复，已完成则拒绝重考
func (s *QuizService) StartAttempt(assessmentID, userID uint) (*model.StudentAttempt, error) {
	assessment, err := s.openAssessment(assessmentID)
	if err != nil {
		return nil, err
	}

	existing, err := s.AttemptRepo.FindByUserAndAssessment(userID, assessmentID)
	if err == nil {
		if existing.Status == model.AttemptInProgress {
			if s.expired(existing, assessment) {
				if err := s.finalize(existing, assessment); err != nil {
					return nil, err
				}
				return nil, util.ErrAttemptCompleted
			}
			return existing, nil
		}
		return nil, util.ErrAttemptCompleted
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	questions, err := s.AssessmentRepo.ListQuestions(assessmentID)
	if err != nil {
		return nil, err
	}
	maxScore := 0
	for _, q := range questions {
		maxScore += q.Points
	}

	attempt := &model.StudentAttempt{
		AssessmentID: assessmentID,
		UserID:       userID,
		Status:       model.AttemptInProgress,
		MaxScore:     maxScore,
		StartedAt:    time.Now(),
	}
	if err := s.AttemptRepo.Create(attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

type NextQuestionResult struct {
	Done     bool            `json:"done"`
	Question *model.Question `json:"question,omitempty"`
	Answered int             `json:"answered"`
	Total    int             `json:"total"`
	Deadline *time.Time      `json:"deadline,omitempty"`
}

// NextQuestion 取下一道未作答的题
// 上一题答对优先给更难的题，答错给更容易的，首题按出题顺序
func (s *QuizService) NextQuestion(attemptID, userID uint) (*NextQuestionResult, error) {
	attempt, assessment, err := s.ownAttempt(attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.AttemptInProgress {
		// 已收卷的作答再取题，固定返回"没有更多题目"
		return s.doneResult(attemptID, assessment.ID)
	}
	if s.expired(attempt, assessment) {
		if err := s.finalize(attempt, assessment); err != nil {
			return nil, err
		}
		return s.doneResult(attemptID, assessment.ID)
	}

	questions, err := s.AssessmentRepo.ListQuestions(assessment.ID)
	if err != nil {
		return nil, err
	}
	answered, err := s.AttemptRepo.AnsweredQuestionIDs(attemptID)
	if err != nil {
		return nil, err
	}

	result := &NextQuestionResult{
		Answered: len(answered),
		Total:    len(questions),
	}
	if assessment.TimeLimit > 0 {
		deadline := attempt.StartedAt.Add(time.Duration(assessment.TimeLimit) * time.Minute)
		result.Deadline = &deadline
	}

	if len(answered) >= len(questions) {
		if err := s.finalize(attempt, assessment); err != nil {
			return nil, err
		}
		result.Done = true
		return result, nil
	}

	next := pickNextQuestion(questions, answered, s.lastAnswerCorrect(attemptID))
	result.Question = sanitizeQuestion(next)
	return result, nil
}

type SubmitAnswerInput struct {
	QuestionID        uint   `json:"questionId" binding:"required"`
	SelectedOptionIDs []uint `json:"selectedOptionIds"`
	AnswerText        string `json:"answerText"`
}

// SubmitAnswer 提交单题答案并立即判分
// 选择题按选项集合完全相等判对错，主观题留待教师评阅
func (s *QuizService) SubmitAnswer(attemptID, userID uint, input SubmitAnswerInput) (*model.StudentAnswer, error) {
	attempt, assessment, err := s.ownAttempt(attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, util.ErrAttemptCompleted
	}
	if s.expired(attempt, assessment) {
		if err := s.finalize(attempt, assessment); err != nil {
			return nil, err
		}
		return nil, util.ErrAttemptCompleted
	}

	question, err := s.AssessmentRepo.FindQuestionByID(input.QuestionID)
	if err != nil || question.AssessmentID != assessment.ID {
		return nil, util.ErrQuestionNotFound
	}

	if _, err := s.AttemptRepo.FindAnswer(attemptID, input.QuestionID); err == nil {
		return nil, util.ErrAlreadyAnswered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	selectedJSON, err := json.Marshal(input.SelectedOptionIDs)
	if err != nil {
		return nil, err
	}

	answer := &model.StudentAnswer{
		AttemptID:         attemptID,
		QuestionID:        input.QuestionID,
		SelectedOptionIDs: selectedJSON,
		AnswerText:        input.AnswerText,
	}

	switch question.QuestionType {
	case model.MCQ, model.MSQ:
		answer.Graded = true
		answer.IsCorrect = gradeSelection(question, input.SelectedOptionIDs)
		if answer.IsCorrect {
			answer.Points = question.Points
		}
	case model.Subjective:
		// 主观题不自动判分
		if !attempt.PendingReview {
			attempt.PendingReview = true
			if err := s.AttemptRepo.Update(attempt); err != nil {
				return nil, err
			}
		}
	}

	if err := s.AttemptRepo.CreateAnswer(answer); err != nil {
		return nil, err
	}

	// 最后一题提交后自动收卷
	answered, err := s.AttemptRepo.AnsweredQuestionIDs(attemptID)
	if err == nil {
		total, err := s.AssessmentRepo.CountQuestions(assessment.ID)
		if err == nil && int64(len(answered)) >= total {
			if err := s.finalize(attempt, assessment); err != nil {
				logger.Log.Error("自动收卷失败", zap.Uint("attemptId", attemptID), zap.Error(err))
			}
		}
	}
	return answer, nil
}

type AnswerDetail struct {
	Answer   model.StudentAnswer `json:"answer"`
	Question model.Question      `json:"question"`
}

type AttemptResult struct {
	Attempt model.StudentAttempt `json:"attempt"`
	Details []AnswerDetail       `json:"details"`
}

// GetResult 成绩单：学生看自己的，教师看自己测验下的
func (s *QuizService) GetResult(attemptID, viewerID uint, viewerRole model.UserRole) (*AttemptResult, error) {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}

	assessment, err := s.AssessmentRepo.FindByID(attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	if attempt.UserID != viewerID {
		if viewerRole != model.Instructor || assessment.InstructorID != viewerID {
			return nil, util.ErrPermissionDenied
		}
	}

	answers, err := s.AttemptRepo.ListAnswers(attemptID)
	if err != nil {
		return nil, err
	}

	result := &AttemptResult{Attempt: *attempt}
	for _, ans := range answers {
		q, err := s.AssessmentRepo.FindQuestionByID(ans.QuestionID)
		if err != nil {
			continue
		}
		result.Details = append(result.Details, AnswerDetail{Answer: ans, Question: *q})
	}
	return result, nil
}

func (s *QuizService) ListAttempts(assessmentID, instructorID uint, page, limit int) ([]model.StudentAttempt, int64, error) {
	assessment, err := s.AssessmentRepo.FindByID(assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, util.ErrAssessmentNotFound
		}
		return nil, 0, err
	}
	if assessment.InstructorID != instructorID {
		return nil, 0, util.ErrPermissionDenied
	}
	return s.AttemptRepo.ListByAssessment(assessmentID, page, limit)
}

// GradeSubjective 教师评阅主观题，全部评完后重算总分
func (s *QuizService) GradeSubjective(attemptID, questionID, instructorID uint, points int) error {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		return util.ErrAttemptNotFound
	}
	assessment, err := s.AssessmentRepo.FindByID(attempt.AssessmentID)
	if err != nil {
		return err
	}
	if assessment.InstructorID != instructorID {
		return util.ErrPermissionDenied
	}

	answer, err := s.AttemptRepo.FindAnswer(attemptID, questionID)
	if err != nil {
		return util.ErrQuestionNotFound
	}
	question, err := s.AssessmentRepo.FindQuestionByID(questionID)
	if err != nil {
		return util.ErrQuestionNotFound
	}
	if question.QuestionType != model.Subjective {
		return fmt.Errorf("%w: only subjective answers need manual grading", util.ErrInvalidInput)
	}

	if points < 0 {
		points = 0
	}
	if points > question.Points {
		points = question.Points
	}
	answer.Points = points
	answer.IsCorrect = points == question.Points
	answer.Graded = true
	if err := s.AttemptRepo.DB.Save(answer).Error; err != nil {
		return err
	}

	// 还有未评阅的主观题就先不重算
	answers, err := s.AttemptRepo.ListAnswers(attemptID)
	if err != nil {
		return err
	}
	for _, a := range answers {
		if !a.Graded {
			return nil
		}
	}

	attempt.PendingReview = false
	return s.recomputeScore(attempt, assessment, answers)
}

// SweepExpired 后台任务：超时未交卷的自动收卷
func (s *QuizService) SweepExpired() {
	expired, err := s.AttemptRepo.ListExpired(time.Now())
	if err != nil {
		logger.Log.Error("扫描超时作答失败", zap.Error(err))
		return
	}

	for _, attempt := range expired {
		a := attempt
		assessment, err := s.AssessmentRepo.FindByID(a.AssessmentID)
		if err != nil {
			continue
		}
		if err := s.finalize(&a, assessment); err != nil {
			logger.Log.Error("超时收卷失败", zap.Uint("attemptId", a.ID), zap.Error(err))
		} else {
			logger.Log.Info("超时自动收卷", zap.Uint("attemptId", a.ID))
		}
	}
}

// ---- internal helpers ----

func (s *QuizService) openAssessment(assessmentID uint) (*model.Assessment, error) {
	assessment, err := s.AssessmentRepo.FindByID(assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAssessmentNotFound
		}
		return nil, err
	}
	if !assessment.IsPublished {
		return nil, util.ErrAssessmentNotOpen
	}
	course, err := s.CourseRepo.FindByID(assessment.CourseID)
	if err != nil || !course.IsPublished {
		return nil, util.ErrAssessmentNotOpen
	}
	return assessment, nil
}

func (s *QuizService) ownAttempt(attemptID, userID uint) (*model.StudentAttempt, *model.Assessment, error) {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrAttemptNotFound
		}
		return nil, nil, err
	}
	if attempt.UserID != userID {
		return nil, nil, util.ErrPermissionDenied
	}
	assessment, err := s.AssessmentRepo.FindByID(attempt.AssessmentID)
	if err != nil {
		return nil, nil, err
	}
	return attempt, assessment, nil
}

func (s *QuizService) doneResult(attemptID, assessmentID uint) (*NextQuestionResult, error) {
	answered, err := s.AttemptRepo.AnsweredQuestionIDs(attemptID)
	if err != nil {
		return nil, err
	}
	total, err := s.AssessmentRepo.CountQuestions(assessmentID)
	if err != nil {
		return nil, err
	}
	return &NextQuestionResult{Done: true, Answered: len(answered), Total: int(total)}, nil
}

func (s *QuizService) expired(attempt *model.StudentAttempt, assessment *model.Assessment) bool {
	if assessment.TimeLimit <= 0 {
		return false
	}
	return time.Since(attempt.StartedAt) > time.Duration(assessment.TimeLimit)*time.Minute
}

// finalize 收卷：汇总得分、判断及格、生成 AI 反馈
func (s *QuizService) finalize(attempt *model.StudentAttempt, assessment *model.Assessment) error {
	answers, err := s.AttemptRepo.ListAnswers(attempt.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	attempt.Status = model.AttemptCompleted
	attempt.CompletedAt = &now
	if err := s.recomputeScore(attempt, assessment, answers); err != nil {
		return err
	}

	// 反馈生成失败不影响收卷
	if s.AI != nil {
		feedback, err := GenerateFeedback(s.AI, s.buildSummary(attempt, assessment, answers))
		if err != nil {
			logger.Log.Warn("生成作答反馈失败", zap.Uint("attemptId", attempt.ID), zap.Error(err))
		} else {
			attempt.Feedback = feedback
			return s.AttemptRepo.Update(attempt)
		}
	}
	return nil
}

func (s *QuizService) recomputeScore(attempt *model.StudentAttempt, assessment *model.Assessment, answers []model.StudentAnswer) error {
	score := 0
	for _, a := range answers {
		score += a.Points
	}
	attempt.Score = score
	if attempt.MaxScore > 0 {
		attempt.Passed = score*100 >= assessment.PassingScore*attempt.MaxScore
	}
	return s.AttemptRepo.Update(attempt)
}

func (s *QuizService) buildSummary(attempt *model.StudentAttempt, assessment *model.Assessment, answers []model.StudentAnswer) AttemptSummary {
	summary := AttemptSummary{
		AssessmentTitle: assessment.Title,
		Score:           float64(attempt.Score),
		MaxScore:        float64(attempt.MaxScore),
	}
	if course, err := s.CourseRepo.FindByID(assessment.CourseID); err == nil {
		summary.CourseTitle = course.Title
	}

	seenWeak := map[string]bool{}
	seenStrong := map[string]bool{}
	for _, a := range answers {
		q, err := s.AssessmentRepo.FindQuestionByID(a.QuestionID)
		if err != nil || q.Topic == "" || !a.Graded {
			continue
		}
		if a.IsCorrect {
			if !seenStrong[q.Topic] {
				seenStrong[q.Topic] = true
				summary.StrongTopics = append(summary.StrongTopics, q.Topic)
			}
		} else if !seenWeak[q.Topic] {
			seenWeak[q.Topic] = true
			summary.WeakTopics = append(summary.WeakTopics, q.Topic)
		}
	}
	return summary
}

// lastAnswerCorrect 最近一次判过分的答案对错，没有则返回 nil
func (s *QuizService) lastAnswerCorrect(attemptID uint) *bool {
	answers, err := s.AttemptRepo.ListAnswers(attemptID)
	if err != nil {
		return nil
	}
	for i := len(answers) - 1; i >= 0; i-- {
		if answers[i].Graded {
			correct := answers[i].IsCorrect
			return &correct
		}
	}
	return nil
}

var difficultyRank = map[string]int{
	model.DifficultyEasy:   0,
	model.DifficultyMedium: 1,
	model.DifficultyHard:   2,
}

// pickNextQuestion 在未作答题里选题
// lastCorrect 为 nil 时按题目顺序；答对了往更难走，答错了往更容易走
func pickNextQuestion(questions []model.Question, answered map[uint]bool, lastCorrect *bool) *model.Question {
	var remaining []model.Question
	for _, q := range questions {
		if !answered[q.ID] {
			remaining = append(remaining, q)
		}
	}
	if len(remaining) == 0 {
		return nil
	}
	if lastCorrect == nil {
		return &remaining[0]
	}

	wantOrder := []int{2, 1, 0}
	if !*lastCorrect {
		wantOrder = []int{0, 1, 2}
	}
	for _, rank := range wantOrder {
		for i := range remaining {
			if difficultyRank[remaining[i].Difficulty] == rank {
				return &remaining[i]
			}
		}
	}
	return &remaining[0]
}

// sanitizeQuestion 发给学生前抹掉正确答案和解析
func sanitizeQuestion(q *model.Question) *model.Question {
	if q == nil {
		return nil
	}
	clean := *q
	clean.Explanation = ""
	clean.Options = make([]model.QuestionOption, len(q.Options))
	for i, opt := range q.Options {
		clean.Options[i] = opt
		clean.Options[i].IsCorrect = false
	}
	return &clean
}

// gradeSelection 选项集合完全一致才算对
func gradeSelection(q *model.Question, selected []uint) bool {
	correct := make(map[uint]bool)
	for _, opt := range q.Options {
		if opt.IsCorrect {
			correct[opt.ID] = true
		}
	}
	if len(selected) != len(correct) {
		return false
	}
	seen := make(map[uint]bool, len(selected))
	for _, id := range selected {
		if seen[id] {
			return false
		}
		seen[id] = true
		if !correct[id] {
			return false
		}
	}
	return true
}
