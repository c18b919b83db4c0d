package repository

import (
	"doodle_moodle_backend/internal/model"

	"gorm.io/gorm"
)

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

func (r *AssessmentRepository) Create(a *model.Assessment) error {
	return r.DB.Create(a).Error
}

// CreateWithQuestions 测验与 AI 生成的题目、选项同一事务落库，并写入题型汇总数
func (r *AssessmentRepository) CreateWithQuestions(a *model.Assessment, questions []model.Question) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].AssessmentID = a.ID
			switch questions[i].QuestionType {
			case model.MCQ:
				a.MCQCount++
			case model.MSQ:
				a.MSQCount++
			case model.Subjective:
				a.SubjectiveCount++
			}
			if err := tx.Create(&questions[i]).Error; err != nil {
				return err
			}
		}
		return tx.Model(a).Updates(map[string]interface{}{
			"mcq_count":        a.MCQCount,
			"msq_count":        a.MSQCount,
			"subjective_count": a.SubjectiveCount,
		}).Error
	})
}

func (r *AssessmentRepository) FindByID(id uint) (*model.Assessment, error) {
	var a model.Assessment
	err := r.DB.First(&a, id).Error
	return &a, err
}

func (r *AssessmentRepository) ListByCourse(courseID uint, page, limit int) ([]model.Assessment, int64, error) {
	var as []model.Assessment
	var total int64
	query := r.DB.Model(&model.Assessment{}).Where("course_id = ?", courseID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&as).Error
	return as, total, err
}

func (r *AssessmentRepository) ListPublishedByCourse(courseID uint) ([]model.Assessment, error) {
	var as []model.Assessment
	err := r.DB.Where("course_id = ? AND is_published = ?", courseID, true).
		Order("created_at desc").Find(&as).Error
	return as, err
}

func (r *AssessmentRepository) Update(a *model.Assessment) error {
	return r.DB.Save(a).Error
}

func (r *AssessmentRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var qIDs []uint
		if err := tx.Model(&model.Question{}).Where("assessment_id = ?", id).Pluck("id", &qIDs).Error; err != nil {
			return err
		}
		if len(qIDs) > 0 {
			if err := tx.Where("question_id IN ?", qIDs).Delete(&model.QuestionOption{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("assessment_id = ?", id).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Assessment{}, id).Error
	})
}

func (r *AssessmentRepository) CountQuestions(assessmentID uint) (int64, error) {
	var n int64
	err := r.DB.Model(&model.Question{}).Where("assessment_id = ?", assessmentID).Count(&n).Error
	return n, err
}

// Question related methods

func (r *AssessmentRepository) CreateQuestion(q *model.Question) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(q).Error; err != nil {
			return err
		}
		return adjustTypeCount(tx, q.AssessmentID, q.QuestionType, 1)
	})
}

func (r *AssessmentRepository) FindQuestionByID(id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("question_options.`order` asc")
	}).First(&q, id).Error
	return &q, err
}

func (r *AssessmentRepository) ListQuestions(assessmentID uint) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.Where("assessment_id = ?", assessmentID).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_options.`order` asc")
		}).
		Order("`order` asc, id asc").
		Find(&qs).Error
	return qs, err
}

func (r *AssessmentRepository) UpdateQuestion(q *model.Question) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("question_id = ?", q.ID).Delete(&model.QuestionOption{}).Error; err != nil {
			return err
		}
		for i := range q.Options {
			q.Options[i].ID = 0
			q.Options[i].QuestionID = q.ID
		}
		return tx.Save(q).Error
	})
}

func (r *AssessmentRepository) DeleteQuestion(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var q model.Question
		if err := tx.First(&q, id).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id = ?", id).Delete(&model.QuestionOption{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Question{}, id).Error; err != nil {
			return err
		}
		return adjustTypeCount(tx, q.AssessmentID, q.QuestionType, -1)
	})
}

func adjustTypeCount(tx *gorm.DB, assessmentID uint, qType model.QuestionType, delta int) error {
	var column string
	switch qType {
	case model.MCQ:
		column = "mcq_count"
	case model.MSQ:
		column = "msq_count"
	case model.Subjective:
		column = "subjective_count"
	default:
		return nil
	}
	return tx.Model(&model.Assessment{}).
		Where("id = ?", assessmentID).
		Update(column, gorm.Expr(column+" + ?", delta)).
		Error
}
