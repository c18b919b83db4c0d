package repository

import (
	"doodle_moodle_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var c model.Course
	err := r.DB.First(&c, id).Error
	return &c, err
}

// FindByIDWithSyllabus 带主题/子主题和文件列表的完整课程
func (r *CourseRepository) FindByIDWithSyllabus(id uint) (*model.Course, error) {
	var c model.Course
	err := r.DB.
		Preload("Topics", func(db *gorm.DB) *gorm.DB {
			return db.Order("topics.`order` asc")
		}).
		Preload("Topics.Subtopics", func(db *gorm.DB) *gorm.DB {
			return db.Order("subtopics.`order` asc")
		}).
		Preload("Files").
		First(&c, id).Error
	return &c, err
}

func (r *CourseRepository) ListByInstructor(instructorID uint, page, limit int) ([]model.Course, int64, error) {
	var cs []model.Course
	var total int64
	query := r.DB.Model(&model.Course{}).Where("instructor_id = ?", instructorID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&cs).Error
	return cs, total, err
}

func (r *CourseRepository) ListPublished(page, limit int) ([]model.Course, int64, error) {
	var cs []model.Course
	var total int64
	query := r.DB.Model(&model.Course{}).Where("is_published = ?", true)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("published_at desc").Offset(offset).Limit(limit).Find(&cs).Error
	return cs, total, err
}

func (r *CourseRepository) Update(course *model.Course) error {
	return r.DB.Save(course).Error
}

func (r *CourseRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var topicIDs []uint
		if err := tx.Model(&model.Topic{}).Where("course_id = ?", id).Pluck("id", &topicIDs).Error; err != nil {
			return err
		}
		if len(topicIDs) > 0 {
			if err := tx.Where("topic_id IN ?", topicIDs).Delete(&model.Subtopic{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.Topic{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.CourseFile{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Course{}, id).Error
	})
}

func (r *CourseRepository) CountTopics(courseID uint) (int64, error) {
	var n int64
	err := r.DB.Model(&model.Topic{}).Where("course_id = ?", courseID).Count(&n).Error
	return n, err
}

// ReplaceSyllabus 在一个事务内整体替换课程大纲
func (r *CourseRepository) ReplaceSyllabus(courseID uint, topics []model.Topic) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var topicIDs []uint
		if err := tx.Model(&model.Topic{}).Where("course_id = ?", courseID).Pluck("id", &topicIDs).Error; err != nil {
			return err
		}
		if len(topicIDs) > 0 {
			if err := tx.Unscoped().Where("topic_id IN ?", topicIDs).Delete(&model.Subtopic{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Unscoped().Where("course_id = ?", courseID).Delete(&model.Topic{}).Error; err != nil {
			return err
		}
		for i := range topics {
			topics[i].ID = 0
			topics[i].CourseID = courseID
			for j := range topics[i].Subtopics {
				topics[i].Subtopics[j].ID = 0
			}
			if err := tx.Create(&topics[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *CourseRepository) CreateFile(file *model.CourseFile) error {
	return r.DB.Create(file).Error
}

func (r *CourseRepository) FindFileByID(id uint) (*model.CourseFile, error) {
	var f model.CourseFile
	err := r.DB.First(&f, id).Error
	return &f, err
}

func (r *CourseRepository) ListFiles(courseID uint) ([]model.CourseFile, error) {
	var fs []model.CourseFile
	err := r.DB.Where("course_id = ?", courseID).Order("created_at asc").Find(&fs).Error
	return fs, err
}

func (r *CourseRepository) DeleteFile(id uint) error {
	return r.DB.Delete(&model.CourseFile{}, id).Error
}
