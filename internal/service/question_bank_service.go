package service

import (
	"encoding/json"
	"errors"

	"doodle_moodle_backend/internal/model"
	"doodle_moodle_backend/internal/repository"
	"doodle_moodle_backend/internal/util"

	"gorm.io/gorm"
)

// QuestionBankService 题库：题目的独立副本，跨测验复用
type QuestionBankService struct {
	BankRepo       *repository.QuestionBankRepository
	AssessmentRepo *repository.AssessmentRepository
	Assessments    *AssessmentService
}

func NewQuestionBankService(bankRepo *repository.QuestionBankRepository, assessmentRepo *repository.AssessmentRepository, assessments *AssessmentService) *QuestionBankService {
	return &QuestionBankService{
		BankRepo:       bankRepo,
		AssessmentRepo: assessmentRepo,
		Assessments:    assessments,
	}
}

// CopyToBank 把测验题目存一份快照进题库，之后改原题不影响题库
func (s *QuestionBankService) CopyToBank(assessmentID, questionID, instructorID uint) (*model.QuestionBankItem, error) {
	assessment, err := s.Assessments.ensureOwner(assessmentID, instructorID)
	if err != nil {
		return nil, err
	}

	question, err := s.AssessmentRepo.FindQuestionByID(questionID)
	if err != nil || question.AssessmentID != assessmentID {
		return nil, util.ErrQuestionNotFound
	}

	opts := make([]model.BankOption, 0, len(question.Options))
	for _, o := range question.Options {
		opts = append(opts, model.BankOption{Content: o.Content, IsCorrect: o.IsCorrect})
	}
	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return nil, err
	}

	item := &model.QuestionBankItem{
		OwnerID:      instructorID,
		CourseID:     assessment.CourseID,
		QuestionType: question.QuestionType,
		Content:      question.Content,
		Difficulty:   question.Difficulty,
		Topic:        question.Topic,
		Subtopic:     question.Subtopic,
		Options:      optsJSON,
		Points:       question.Points,
		Explanation:  question.Explanation,
	}
	if err := s.BankRepo.Create(item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *QuestionBankService) List(ownerID uint, filter repository.BankFilter, page, limit int) ([]model.QuestionBankItem, int64, error) {
	filter.OwnerID = ownerID
	return s.BankRepo.List(filter, page, limit)
}

func (s *QuestionBankService) Delete(itemID, ownerID uint) error {
	item, err := s.BankRepo.FindByID(itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuestionNotFound
		}
		return err
	}
	if item.OwnerID != ownerID {
		return util.ErrPermissionDenied
	}
	return s.BankRepo.Delete(itemID)
}

// ImportToAssessment 从题库导入一道题到测验，同样是复制而非引用
func (s *QuestionBankService) ImportToAssessment(itemID, assessmentID, instructorID uint) (*model.Question, error) {
	item, err := s.BankRepo.FindByID(itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}
	if item.OwnerID != instructorID {
		return nil, util.ErrPermissionDenied
	}
	if _, err := s.Assessments.ensureOwner(assessmentID, instructorID); err != nil {
		return nil, err
	}

	var opts []model.BankOption
	if len(item.Options) > 0 {
		if err := json.Unmarshal(item.Options, &opts); err != nil {
			return nil, err
		}
	}

	total, err := s.AssessmentRepo.CountQuestions(assessmentID)
	if err != nil {
		return nil, err
	}

	question := &model.Question{
		AssessmentID: assessmentID,
		QuestionType: item.QuestionType,
		Content:      item.Content,
		Difficulty:   item.Difficulty,
		Topic:        item.Topic,
		Subtopic:     item.Subtopic,
		Points:       item.Points,
		Order:        int(total) + 1,
		Explanation:  item.Explanation,
	}
	for i, o := range opts {
		question.Options = append(question.Options, model.QuestionOption{
			Content:   o.Content,
			IsCorrect: o.IsCorrect,
			Order:     i + 1,
		})
	}

	if err := validateQuestion(question); err != nil {
		return nil, err
	}
	if err := s.AssessmentRepo.CreateQuestion(question); err != nil {
		return nil, err
	}
	return question, nil
}
