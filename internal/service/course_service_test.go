package service

import (
	"context"
	"errors"
	"testing"

	"doodle_moodle_backend/internal/config"
	"doodle_moodle_backend/internal/model"
	"doodle_moodle_backend/internal/repository"
	"doodle_moodle_backend/internal/testutil"
	"doodle_moodle_backend/internal/util"

	"gorm.io/gorm"
)

func newCourseService(t *testing.T, ai Completer) (*CourseService, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)

	cfg := &config.Config{}
	cfg.Storage.Type = "local"
	cfg.Storage.LocalPath = t.TempDir()

	svc := NewCourseService(
		repository.NewCourseRepository(db),
		NewStorageService(cfg),
		NewDocumentService(),
		ai,
		nil, // 测试不接 redis
	)
	return svc, db
}

func TestPublishRequiresSyllabus(t *testing.T) {
	svc, db := newCourseService(t, &fakeAI{})
	instructor := testutil.CreateUser(t, db, model.Instructor)

	course, err := svc.CreateCourse(instructor.ID, "Biology", "intro")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Publish(course.ID, instructor.ID); !errors.Is(err, util.ErrEmptySyllabus) {
		t.Fatalf("want ErrEmptySyllabus got=%v", err)
	}

	topics := []model.Topic{{Title: "Cells", CognitiveLevel: "understand"}}
	if _, err := svc.UpdateSyllabus(course.ID, instructor.ID, topics); err != nil {
		t.Fatalf("update syllabus: %v", err)
	}

	published, err := svc.Publish(course.ID, instructor.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !published.IsPublished || published.PublishedAt == nil {
		t.Fatalf("want published course, got %+v", published)
	}
}

func TestCourseOwnerOnlyMutation(t *testing.T) {
	svc, db := newCourseService(t, &fakeAI{})
	owner := testutil.CreateUser(t, db, model.Instructor)
	other := testutil.CreateUser(t, db, model.Instructor)

	course, err := svc.CreateCourse(owner.ID, "Biology", "intro")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.UpdateCourse(course.ID, other.ID, "Hijacked", ""); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("want ErrPermissionDenied got=%v", err)
	}
	if err := svc.DeleteCourse(course.ID, other.ID); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("want ErrPermissionDenied got=%v", err)
	}
}

func TestGetCourseStudentVisibility(t *testing.T) {
	svc, db := newCourseService(t, &fakeAI{})
	instructor := testutil.CreateUser(t, db, model.Instructor)
	student := testutil.CreateUser(t, db, model.Student)

	course, err := svc.CreateCourse(instructor.ID, "Biology", "intro")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// 未发布课程学生不可见
	if _, err := svc.GetCourse(course.ID, student.ID, model.Student); !errors.Is(err, util.ErrCourseNotFound) {
		t.Fatalf("want ErrCourseNotFound got=%v", err)
	}

	// 课程属主可见
	if _, err := svc.GetCourse(course.ID, instructor.ID, model.Instructor); err != nil {
		t.Fatalf("owner get: %v", err)
	}

	testutil.CreateSyllabus(t, db, course.ID)
	if _, err := svc.Publish(course.ID, instructor.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got, err := svc.GetCourse(course.ID, student.ID, model.Student)
	if err != nil {
		t.Fatalf("student get published: %v", err)
	}
	if len(got.Topics) != 2 {
		t.Fatalf("want 2 topics got=%d", len(got.Topics))
	}
}

func TestUploadMaterialDOCX(t *testing.T) {
	svc, db := newCourseService(t, &fakeAI{})
	instructor := testutil.CreateUser(t, db, model.Instructor)
	course, _ := svc.CreateCourse(instructor.ID, "Biology", "")

	data := docxBytes(t, "Mitochondria produce ATP.")
	file, err := svc.UploadMaterial(context.Background(), course.ID, instructor.ID, "lecture.docx", data)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if file.ContentType != util.MimeDOCX {
		t.Fatalf("want docx content type got=%s", file.ContentType)
	}
	if file.ExtractedText == "" {
		t.Fatal("want extracted text stored")
	}
	if file.FileURL == "" || file.ObjectKey == "" {
		t.Fatalf("want storage refs set, got %+v", file)
	}

	files, err := svc.CourseRepo.ListFiles(course.ID)
	if err != nil || len(files) != 1 {
		t.Fatalf("want 1 stored file got=%d err=%v", len(files), err)
	}
}

func TestUploadMaterialRejectsWrongType(t *testing.T) {
	svc, db := newCourseService(t, &fakeAI{})
	instructor := testutil.CreateUser(t, db, model.Instructor)
	course, _ := svc.CreateCourse(instructor.ID, "Biology", "")

	// 扩展名不允许
	_, err := svc.UploadMaterial(context.Background(), course.ID, instructor.ID, "notes.txt", []byte("plain text"))
	if !errors.Is(err, util.ErrUnsupportedFileType) {
		t.Fatalf("want ErrUnsupportedFileType got=%v", err)
	}

	// 扩展名合法但文件头对不上
	_, err = svc.UploadMaterial(context.Background(), course.ID, instructor.ID, "fake.pdf", []byte("not a real pdf"))
	if !errors.Is(err, util.ErrUnsupportedFileType) {
		t.Fatalf("want ErrUnsupportedFileType got=%v", err)
	}
}

func TestGenerateSyllabusFromMaterial(t *testing.T) {
	ai := &fakeAI{replies: []string{`{"topics":[{"title":"Energy","cognitive_level":"understand","subtopics":[{"title":"ATP","cognitive_level":"remember"},{"title":"Respiration","cognitive_level":"apply"}]}]}`}}
	svc, db := newCourseService(t, ai)
	instructor := testutil.CreateUser(t, db, model.Instructor)
	course, _ := svc.CreateCourse(instructor.ID, "Biology", "")

	// 没有资料时拒绝生成
	if _, err := svc.GenerateSyllabus(course.ID, instructor.ID, SyllabusModeReplace); err == nil {
		t.Fatal("want error when course has no material")
	}

	data := docxBytes(t, "Mitochondria produce ATP through respiration.")
	if _, err := svc.UploadMaterial(context.Background(), course.ID, instructor.ID, "lecture.docx", data); err != nil {
		t.Fatalf("upload: %v", err)
	}

	got, err := svc.GenerateSyllabus(course.ID, instructor.ID, SyllabusModeReplace)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(got.Topics) != 1 || got.Topics[0].Title != "Energy" {
		t.Fatalf("unexpected topics: %+v", got.Topics)
	}
	if len(got.Topics[0].Subtopics) != 2 {
		t.Fatalf("want 2 subtopics got=%d", len(got.Topics[0].Subtopics))
	}
	if got.Topics[0].Order != 1 {
		t.Fatalf("want order assigned, got %d", got.Topics[0].Order)
	}
}

func TestGenerateSyllabusReplaceDropsOld(t *testing.T) {
	ai := &fakeAI{replies: []string{`{"topics":[{"title":"New Topic","cognitive_level":"apply","subtopics":[{"title":"Sub","cognitive_level":"remember"}]}]}`}}
	svc, db := newCourseService(t, ai)
	instructor := testutil.CreateUser(t, db, model.Instructor)
	course, _ := svc.CreateCourse(instructor.ID, "Biology", "")
	testutil.CreateSyllabus(t, db, course.ID)

	data := docxBytes(t, "Fresh material.")
	if _, err := svc.UploadMaterial(context.Background(), course.ID, instructor.ID, "v2.docx", data); err != nil {
		t.Fatalf("upload: %v", err)
	}

	got, err := svc.GenerateSyllabus(course.ID, instructor.ID, SyllabusModeReplace)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(got.Topics) != 1 || got.Topics[0].Title != "New Topic" {
		t.Fatalf("replace should drop old topics, got %+v", got.Topics)
	}
}
