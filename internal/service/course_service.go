package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"doodle_moodle_backend/internal/model"
	"doodle_moodle_backend/internal/repository"
	"doodle_moodle_backend/internal/util"
	"doodle_moodle_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	syllabusCacheKeyPrefix = "course:syllabus:"
	syllabusCacheTTL       = 10 * time.Minute

	// 单次提示词里资料文本的上限，超长资料截断
	materialPromptBudget = 60000
)

// 大纲生成模式
const (
	SyllabusModeReplace = "replace"
	SyllabusModeMerge   = "merge"
)

type CourseService struct {
	CourseRepo *repository.CourseRepository
	Storage    *StorageService
	Documents  *DocumentService
	AI         Completer
	Redis      *redis.Client
}

func NewCourseService(courseRepo *repository.CourseRepository, storage *StorageService, documents *DocumentService, ai Completer, rdb *redis.Client) *CourseService {
	return &CourseService{
		CourseRepo: courseRepo,
		Storage:    storage,
		Documents:  documents,
		AI:         ai,
		Redis:      rdb,
	}
}

func (s *CourseService) CreateCourse(instructorID uint, title, description string) (*model.Course, error) {
	course := &model.Course{
		InstructorID: instructorID,
		Title:        title,
		Description:  description,
	}
	if err := s.CourseRepo.Create(course); err != nil {
		return nil, err
	}
	return course, nil
}

// GetCourse 学生只能看已发布课程，教师能看自己的全部课程
func (s *CourseService) GetCourse(id uint, viewerID uint, viewerRole model.UserRole) (*model.Course, error) {
	course, err := s.CourseRepo.FindByIDWithSyllabus(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	if !course.IsPublished {
		if viewerRole != model.Instructor || course.InstructorID != viewerID {
			return nil, util.ErrCourseNotFound
		}
	}
	return course, nil
}

func (s *CourseService) ListMyCourses(instructorID uint, page, limit int) ([]model.Course, int64, error) {
	return s.CourseRepo.ListByInstructor(instructorID, page, limit)
}

func (s *CourseService) ListPublished(page, limit int) ([]model.Course, int64, error) {
	return s.CourseRepo.ListPublished(page, limit)
}

func (s *CourseService) UpdateCourse(id, instructorID uint, title, description string) (*model.Course, error) {
	course, err := s.ensureOwner(id, instructorID)
	if err != nil {
		return nil, err
	}

	if title != "" {
		course.Title = title
	}
	course.Description = description
	if err := s.CourseRepo.Update(course); err != nil {
		return nil, err
	}
	s.invalidateSyllabusCache(id)
	return course, nil
}

func (s *CourseService) DeleteCourse(id, instructorID uint) error {
	course, err := s.ensureOwner(id, instructorID)
	if err != nil {
		return err
	}

	files, err := s.CourseRepo.ListFiles(id)
	if err == nil {
		for _, f := range files {
			if f.ObjectKey != "" {
				if err := s.Storage.Delete(context.Background(), f.ObjectKey); err != nil {
					logger.Log.Warn("删除课程文件失败",
						zap.Uint("courseId", id),
						zap.String("objectKey", f.ObjectKey),
						zap.Error(err))
				}
			}
		}
	}

	if err := s.CourseRepo.Delete(course.ID); err != nil {
		return err
	}
	s.invalidateSyllabusCache(id)
	return nil
}

// UploadMaterial 校验文件头后入库：对象存储存原文件，数据库存提取文本
func (s *CourseService) UploadMaterial(ctx context.Context, courseID, uploaderID uint, filename string, data []byte) (*model.CourseFile, error) {
	course, err := s.ensureOwner(courseID, uploaderID)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	allowed := false
	for _, e := range util.AllowedMaterialExtensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, util.ErrUnsupportedFileType
	}

	// 扩展名可以伪造，按文件头再验一次
	contentType := ""
	switch {
	case util.IsPDF(data):
		contentType = util.MimePDF
	case util.IsZip(data):
		contentType = util.MimeDOCX
	default:
		return nil, util.ErrUnsupportedFileType
	}

	text, err := s.Documents.ExtractText(filename, data)
	if err != nil {
		if errors.Is(err, util.ErrUnsupportedFileType) {
			return nil, err
		}
		return nil, fmt.Errorf("extract text: %w", err)
	}

	objectKey := fmt.Sprintf("courses/%d/%s%s", courseID, model.GenerateUUID(), ext)
	fileURL, err := s.Storage.Upload(ctx, objectKey, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return nil, fmt.Errorf("store material: %w", err)
	}

	file := &model.CourseFile{
		CourseID:      courseID,
		FileName:      filename,
		FileURL:       fileURL,
		ObjectKey:     objectKey,
		ContentType:   contentType,
		Size:          int64(len(data)),
		UploaderID:    uploaderID,
		ExtractedText: text,
	}
	if err := s.CourseRepo.CreateFile(file); err != nil {
		// 入库失败时清掉已上传对象，避免孤儿文件
		_ = s.Storage.Delete(ctx, objectKey)
		return nil, err
	}

	// 旧版单文件字段跟着最近一次上传走
	course.FileURL = fileURL
	if err := s.CourseRepo.Update(course); err != nil {
		logger.Log.Warn("更新课程文件地址失败", zap.Uint("courseId", courseID), zap.Error(err))
	}

	logger.Log.Info("课程资料上传成功",
		zap.Uint("courseId", courseID),
		zap.String("file", filename),
		zap.Int("textChars", len(text)))
	return file, nil
}

func (s *CourseService) DeleteMaterial(courseID, fileID, instructorID uint) error {
	if _, err := s.ensureOwner(courseID, instructorID); err != nil {
		return err
	}

	file, err := s.CourseRepo.FindFileByID(fileID)
	if err != nil || file.CourseID != courseID {
		return util.ErrCourseNotFound
	}

	if file.ObjectKey != "" {
		if err := s.Storage.Delete(context.Background(), file.ObjectKey); err != nil {
			logger.Log.Warn("删除存储对象失败", zap.String("objectKey", file.ObjectKey), zap.Error(err))
		}
	}
	return s.CourseRepo.DeleteFile(fileID)
}

// GenerateSyllabus 汇总课程全部资料文本，调用 AI 生成大纲
// mode 为 merge 时保留已有主题，将新内容并入
func (s *CourseService) GenerateSyllabus(courseID, instructorID uint, mode string) (*model.Course, error) {
	course, err := s.ensureOwner(courseID, instructorID)
	if err != nil {
		return nil, err
	}

	material, err := s.collectMaterial(courseID)
	if err != nil {
		return nil, err
	}

	var draft *SyllabusDraft
	if mode == SyllabusModeMerge {
		existing, err := s.CourseRepo.FindByIDWithSyllabus(courseID)
		if err != nil {
			return nil, err
		}
		if len(existing.Topics) == 0 {
			// 没有旧大纲，合并退化为全新生成
			draft, err = GenerateSyllabus(s.AI, course.Title, material)
		} else {
			draft, err = MergeSyllabus(s.AI, course.Title, topicsToDraft(existing.Topics), material)
		}
		if err != nil {
			return nil, err
		}
	} else {
		draft, err = GenerateSyllabus(s.AI, course.Title, material)
		if err != nil {
			return nil, err
		}
	}

	if err := s.CourseRepo.ReplaceSyllabus(courseID, draftToTopics(draft)); err != nil {
		return nil, err
	}
	s.invalidateSyllabusCache(courseID)

	return s.CourseRepo.FindByIDWithSyllabus(courseID)
}

// UpdateSyllabus 教师手动编辑大纲，整体替换
func (s *CourseService) UpdateSyllabus(courseID, instructorID uint, topics []model.Topic) (*model.Course, error) {
	if _, err := s.ensureOwner(courseID, instructorID); err != nil {
		return nil, err
	}

	for i := range topics {
		if topics[i].Order == 0 {
			topics[i].Order = i + 1
		}
		for j := range topics[i].Subtopics {
			if topics[i].Subtopics[j].Order == 0 {
				topics[i].Subtopics[j].Order = j + 1
			}
		}
	}

	if err := s.CourseRepo.ReplaceSyllabus(courseID, topics); err != nil {
		return nil, err
	}
	s.invalidateSyllabusCache(courseID)
	return s.CourseRepo.FindByIDWithSyllabus(courseID)
}

// GetSyllabus 已发布课程的大纲走 Redis 缓存
func (s *CourseService) GetSyllabus(courseID uint, viewerID uint, viewerRole model.UserRole) ([]model.Topic, error) {
	cacheKey := fmt.Sprintf("%s%d", syllabusCacheKeyPrefix, courseID)

	if s.Redis != nil {
		val, err := s.Redis.Get(context.Background(), cacheKey).Result()
		if err == nil {
			var topics []model.Topic
			if json.Unmarshal([]byte(val), &topics) == nil {
				// 缓存只存已发布课程，权限校验仍要做
				if course, err := s.CourseRepo.FindByID(courseID); err == nil && course.IsPublished {
					return topics, nil
				}
			}
		} else if err != redis.Nil {
			logger.Log.Warn("读取大纲缓存失败", zap.Error(err))
		}
	}

	course, err := s.GetCourse(courseID, viewerID, viewerRole)
	if err != nil {
		return nil, err
	}

	if s.Redis != nil && course.IsPublished {
		if data, err := json.Marshal(course.Topics); err == nil {
			s.Redis.Set(context.Background(), cacheKey, data, syllabusCacheTTL)
		}
	}
	return course.Topics, nil
}

// Publish 发布前大纲必须非空
func (s *CourseService) Publish(courseID, instructorID uint) (*model.Course, error) {
	course, err := s.ensureOwner(courseID, instructorID)
	if err != nil {
		return nil, err
	}

	n, err := s.CourseRepo.CountTopics(courseID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, util.ErrEmptySyllabus
	}

	now := time.Now()
	course.IsPublished = true
	course.PublishedAt = &now
	if err := s.CourseRepo.Update(course); err != nil {
		return nil, err
	}
	s.invalidateSyllabusCache(courseID)
	return course, nil
}

func (s *CourseService) Unpublish(courseID, instructorID uint) (*model.Course, error) {
	course, err := s.ensureOwner(courseID, instructorID)
	if err != nil {
		return nil, err
	}

	course.IsPublished = false
	course.PublishedAt = nil
	if err := s.CourseRepo.Update(course); err != nil {
		return nil, err
	}
	s.invalidateSyllabusCache(courseID)
	return course, nil
}

// collectMaterial 拼接课程全部资料的提取文本并裁剪到提示词预算
func (s *CourseService) collectMaterial(courseID uint) (string, error) {
	files, err := s.CourseRepo.ListFiles(courseID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, f := range files {
		if f.ExtractedText == "" {
			continue
		}
		fmt.Fprintf(&sb, "[%s]\n%s\n\n", f.FileName, f.ExtractedText)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: course has no material, upload a PDF or DOCX first", util.ErrInvalidInput)
	}
	return s.Documents.TruncateForPrompt(sb.String(), materialPromptBudget), nil
}

func (s *CourseService) ensureOwner(courseID, instructorID uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if course.InstructorID != instructorID {
		return nil, util.ErrPermissionDenied
	}
	return course, nil
}

func (s *CourseService) invalidateSyllabusCache(courseID uint) {
	if s.Redis == nil {
		return
	}
	s.Redis.Del(context.Background(), fmt.Sprintf("%s%d", syllabusCacheKeyPrefix, courseID))
}

func draftToTopics(draft *SyllabusDraft) []model.Topic {
	topics := make([]model.Topic, 0, len(draft.Topics))
	for i, t := range draft.Topics {
		topic := model.Topic{
			Title:          t.Title,
			CognitiveLevel: t.CognitiveLevel,
			Order:          i + 1,
		}
		for j, st := range t.Subtopics {
			topic.Subtopics = append(topic.Subtopics, model.Subtopic{
				Title:          st.Title,
				CognitiveLevel: st.CognitiveLevel,
				Order:          j + 1,
			})
		}
		topics = append(topics, topic)
	}
	return topics
}

func topicsToDraft(topics []model.Topic) *SyllabusDraft {
	draft := &SyllabusDraft{}
	for _, t := range topics {
		td := TopicDraft{
			Title:          t.Title,
			CognitiveLevel: t.CognitiveLevel,
		}
		for _, st := range t.Subtopics {
			td.Subtopics = append(td.Subtopics, SubtopicDraft{
				Title:          st.Title,
				CognitiveLevel: st.CognitiveLevel,
			})
		}
		draft.Topics = append(draft.Topics, td)
	}
	return draft
}
