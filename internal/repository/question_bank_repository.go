package repository

import (
	"doodle_moodle_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionBankRepository struct {
	DB *gorm.DB
}

func NewQuestionBankRepository(db *gorm.DB) *QuestionBankRepository {
	return &QuestionBankRepository{DB: db}
}

func (r *QuestionBankRepository) Create(item *model.QuestionBankItem) error {
	return r.DB.Create(item).Error
}

func (r *QuestionBankRepository) FindByID(id uint) (*model.QuestionBankItem, error) {
	var item model.QuestionBankItem
	err := r.DB.First(&item, id).Error
	return &item, err
}

// BankFilter 题库筛选条件，全部为枚举字段，参数化拼接 WHERE
type BankFilter struct {
	OwnerID    uint
	CourseID   uint
	Type       string
	Difficulty string
	Topic      string
}

func (r *QuestionBankRepository) List(f BankFilter, page, limit int) ([]model.QuestionBankItem, int64, error) {
	var items []model.QuestionBankItem
	var total int64

	query := r.DB.Model(&model.QuestionBankItem{}).Where("owner_id = ?", f.OwnerID)
	if f.CourseID > 0 {
		query = query.Where("course_id = ?", f.CourseID)
	}
	if f.Type != "" {
		query = query.Where("question_type = ?", f.Type)
	}
	if f.Difficulty != "" {
		query = query.Where("difficulty = ?", f.Difficulty)
	}
	if f.Topic != "" {
		query = query.Where("topic = ?", f.Topic)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

func (r *QuestionBankRepository) Delete(id uint) error {
	return r.DB.Delete(&model.QuestionBankItem{}, id).Error
}
