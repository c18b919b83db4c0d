package service

import (
	"errors"
	"strings"
	"testing"

	"doodle_moodle_backend/internal/model"
	"doodle_moodle_backend/internal/repository"
	"doodle_moodle_backend/internal/testutil"
	"doodle_moodle_backend/internal/util"

	"gorm.io/gorm"
)

func newAssessmentService(t *testing.T, ai Completer) (*AssessmentService, *gorm.DB) {
	t.Helper()
	courses, db := newCourseService(t, ai)
	svc := NewAssessmentService(repository.NewAssessmentRepository(db), courses, ai)
	return svc, db
}

// 建好课程、大纲和一份已提取文本的材料，出题前置条件齐活
func setupCourseWithMaterial(t *testing.T, db *gorm.DB) (*model.Course, *model.User) {
	t.Helper()
	instructor := testutil.CreateUser(t, db, model.Instructor)
	course := testutil.CreateCourse(t, db, instructor.ID, false)
	testutil.CreateSyllabus(t, db, course.ID)

	file := &model.CourseFile{
		CourseID:      course.ID,
		FileName:      "notes.pdf",
		FileURL:       "/uploads/notes.pdf",
		ObjectKey:     "courses/notes.pdf",
		ContentType:   util.MimePDF,
		UploaderID:    instructor.ID,
		ExtractedText: "Fundamentals cover definitions and worked examples. Advanced topics cover edge cases.",
	}
	if err := db.Create(file).Error; err != nil {
		t.Fatalf("create course file: %v", err)
	}
	return course, instructor
}

const questionsJSON = `{"questions":[
  {"type":"mcq","content":"What is a definition?","difficulty":"easy","topic":"Fundamentals","subtopic":"Definitions","points":2,
   "explanation":"Definitions name concepts.",
   "options":[{"content":"A named concept","correct":true},{"content":"A random guess","correct":false}]},
  {"type":"msq","content":"Pick the worked examples.","difficulty":"medium","topic":"Fundamentals","subtopic":"Examples","points":3,
   "options":[{"content":"Example A","correct":true},{"content":"Example B","correct":true},{"content":"Not one","correct":false}]},
  {"type":"subjective","content":"Discuss an edge case.","difficulty":"hard","topic":"Advanced Topics","points":5}
]}`

func validCreateInput(courseID uint) CreateAssessmentInput {
	return CreateAssessmentInput{
		CourseID:        courseID,
		Title:           "Midterm",
		PassingScore:    60,
		MCQCount:        1,
		MSQCount:        1,
		SubjectiveCount: 1,
		AcademicLevel:   "undergraduate",
		EasyPercent:     40,
		MediumPercent:   40,
		HardPercent:     20,
		Selections: []TopicSelection{
			{Topic: "Fundamentals", Subtopics: []string{"Definitions", "Examples"}},
			{Topic: "Advanced Topics"},
		},
	}
}

func TestCreateAssessmentGeneratesQuestions(t *testing.T) {
	svc, db := newAssessmentService(t, &fakeAI{replies: []string{questionsJSON}})
	course, instructor := setupCourseWithMaterial(t, db)

	a, err := svc.CreateAssessment(instructor.ID, validCreateInput(course.ID))
	if err != nil {
		t.Fatalf("create assessment: %v", err)
	}
	if a.MCQCount != 1 || a.MSQCount != 1 || a.SubjectiveCount != 1 {
		t.Fatalf("want counts 1/1/1 got %d/%d/%d", a.MCQCount, a.MSQCount, a.SubjectiveCount)
	}

	questions, err := svc.AssessmentRepo.ListQuestions(a.ID)
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("want 3 questions got=%d", len(questions))
	}
	if questions[0].Order != 1 || questions[2].Order != 3 {
		t.Fatalf("orders must be sequential, got %d..%d", questions[0].Order, questions[2].Order)
	}
	if len(questions[1].Options) != 3 {
		t.Fatalf("msq options not persisted, got %d", len(questions[1].Options))
	}
}

func TestCreateAssessmentBadDistribution(t *testing.T) {
	svc, db := newAssessmentService(t, &fakeAI{replies: []string{questionsJSON}})
	course, instructor := setupCourseWithMaterial(t, db)

	input := validCreateInput(course.ID)
	input.HardPercent = 30 // 40+40+30
	if _, err := svc.CreateAssessment(instructor.ID, input); !errors.Is(err, util.ErrBadDistribution) {
		t.Fatalf("want ErrBadDistribution got=%v", err)
	}
}

func TestCreateAssessmentOmittedDistribution(t *testing.T) {
	svc, db := newAssessmentService(t, &fakeAI{replies: []string{questionsJSON}})
	course, instructor := setupCourseWithMaterial(t, db)

	// 三项占比全部不填时交给 AI 自行分配，不应报 ErrBadDistribution
	input := validCreateInput(course.ID)
	input.EasyPercent = 0
	input.MediumPercent = 0
	input.HardPercent = 0
	assessment, err := svc.CreateAssessment(instructor.ID, input)
	if err != nil {
		t.Fatalf("create without distribution: %v", err)
	}
	if got := assessment.MCQCount + assessment.MSQCount + assessment.SubjectiveCount; got != 3 {
		t.Fatalf("want 3 questions got=%d", got)
	}
}

func TestCreateAssessmentRejectsUnknownTopic(t *testing.T) {
	svc, db := newAssessmentService(t, &fakeAI{replies: []string{questionsJSON}})
	course, instructor := setupCourseWithMaterial(t, db)

	input := validCreateInput(course.ID)
	input.Selections = []TopicSelection{{Topic: "Quantum Chromodynamics"}}
	_, err := svc.CreateAssessment(instructor.ID, input)
	if err == nil || !strings.Contains(err.Error(), "not in the course syllabus") {
		t.Fatalf("want unknown topic error got=%v", err)
	}

	input.Selections = []TopicSelection{{Topic: "Fundamentals", Subtopics: []string{"Made Up"}}}
	_, err = svc.CreateAssessment(instructor.ID, input)
	if err == nil || !strings.Contains(err.Error(), "not under topic") {
		t.Fatalf("want unknown subtopic error got=%v", err)
	}
}

func TestCreateAssessmentOwnerOnly(t *testing.T) {
	svc, db := newAssessmentService(t, &fakeAI{replies: []string{questionsJSON}})
	course, _ := setupCourseWithMaterial(t, db)
	other := testutil.CreateUser(t, db, model.Instructor)

	if _, err := svc.CreateAssessment(other.ID, validCreateInput(course.ID)); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("want ErrPermissionDenied got=%v", err)
	}
}

func TestPublishRequiresQuestions(t *testing.T) {
	svc, db := newAssessmentService(t, &fakeAI{})
	instructor := testutil.CreateUser(t, db, model.Instructor)
	course := testutil.CreateCourse(t, db, instructor.ID, false)

	empty := &model.Assessment{CourseID: course.ID, InstructorID: instructor.ID, Title: "Empty"}
	if err := db.Create(empty).Error; err != nil {
		t.Fatalf("create assessment: %v", err)
	}

	if _, err := svc.Publish(empty.ID, instructor.ID); !errors.Is(err, util.ErrAssessmentNoQuestion) {
		t.Fatalf("want ErrAssessmentNoQuestion got=%v", err)
	}
}

func TestGetAssessmentVisibility(t *testing.T) {
	svc, db := newAssessmentService(t, &fakeAI{})
	instructor := testutil.CreateUser(t, db, model.Instructor)
	student := testutil.CreateUser(t, db, model.Student)
	course := testutil.CreateCourse(t, db, instructor.ID, true)
	draft := testutil.CreateAssessment(t, db, course.ID, instructor.ID, false)

	// 未发布的测验学生看不到
	if _, err := svc.GetAssessment(draft.ID, student.ID, model.Student); !errors.Is(err, util.ErrAssessmentNotFound) {
		t.Fatalf("want ErrAssessmentNotFound got=%v", err)
	}
	// 出题教师自己能看
	if _, err := svc.GetAssessment(draft.ID, instructor.ID, model.Instructor); err != nil {
		t.Fatalf("owner get: %v", err)
	}

	if _, err := svc.Publish(draft.ID, instructor.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := svc.GetAssessment(draft.ID, student.ID, model.Student); err != nil {
		t.Fatalf("student get published: %v", err)
	}
}

func TestListOpenRequiresPublishedCourse(t *testing.T) {
	svc, db := newAssessmentService(t, &fakeAI{})
	instructor := testutil.CreateUser(t, db, model.Instructor)
	hidden := testutil.CreateCourse(t, db, instructor.ID, false)
	testutil.CreateAssessment(t, db, hidden.ID, instructor.ID, true)

	if _, err := svc.ListOpenByCourse(hidden.ID); !errors.Is(err, util.ErrCourseNotFound) {
		t.Fatalf("want ErrCourseNotFound got=%v", err)
	}

	open := testutil.CreateCourse(t, db, instructor.ID, true)
	testutil.CreateAssessment(t, db, open.ID, instructor.ID, true)
	testutil.CreateAssessment(t, db, open.ID, instructor.ID, false)

	list, err := svc.ListOpenByCourse(open.ID)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("want only the published assessment, got %d", len(list))
	}
}

func TestNormalizeQuestionDrafts(t *testing.T) {
	drafts := []QuestionDraft{
		// 内容为空，丢弃
		{Type: "mcq", Options: []OptionDraft{{Content: "a", Correct: true}, {Content: "b"}}},
		// mcq 两个正确选项，丢弃
		{Type: "mcq", Content: "bad mcq", Options: []OptionDraft{{Content: "a", Correct: true}, {Content: "b", Correct: true}}},
		// msq 只有一个正确选项，丢弃
		{Type: "msq", Content: "bad msq", Options: []OptionDraft{{Content: "a", Correct: true}, {Content: "b"}, {Content: "c"}}},
		// 未知题型，丢弃
		{Type: "essay", Content: "unknown type"},
		// 合法 mcq，分值和难度兜底
		{Type: "mcq", Content: "ok mcq", Points: 0, Difficulty: "impossible",
			Options: []OptionDraft{{Content: "a", Correct: true}, {Content: "b"}}},
		// 主观题带了选项，选项被丢掉题保留
		{Type: "subjective", Content: "ok subjective", Points: 5, Difficulty: "hard",
			Options: []OptionDraft{{Content: "stray", Correct: true}}},
	}

	questions := normalizeQuestionDrafts(drafts)
	if len(questions) != 2 {
		t.Fatalf("want 2 usable questions got=%d", len(questions))
	}

	mcq := questions[0]
	if mcq.Points != 1 {
		t.Fatalf("zero points must default to 1, got %d", mcq.Points)
	}
	if mcq.Difficulty != model.DifficultyMedium {
		t.Fatalf("bad difficulty must default to medium, got %s", mcq.Difficulty)
	}
	if mcq.Order != 1 {
		t.Fatalf("want order 1 got=%d", mcq.Order)
	}

	subjective := questions[1]
	if len(subjective.Options) != 0 {
		t.Fatal("subjective question must not keep options")
	}
	if subjective.Order != 2 {
		t.Fatalf("want order 2 got=%d", subjective.Order)
	}
}

func TestManualQuestionValidation(t *testing.T) {
	svc, db := newAssessmentService(t, &fakeAI{})
	instructor := testutil.CreateUser(t, db, model.Instructor)
	course := testutil.CreateCourse(t, db, instructor.ID, false)
	a := testutil.CreateAssessment(t, db, course.ID, instructor.ID, false)

	bad := &model.Question{
		QuestionType: model.MCQ,
		Content:      "one option only",
		Options:      []model.QuestionOption{{Content: "alone", IsCorrect: true}},
	}
	if err := svc.AddQuestion(a.ID, instructor.ID, bad); err == nil {
		t.Fatal("mcq with one option must be rejected")
	}

	good := &model.Question{
		QuestionType: model.MSQ,
		Content:      "pick the primes",
		Difficulty:   model.DifficultyMedium,
		Points:       3,
		Order:        3,
		Options: []model.QuestionOption{
			{Content: "2", IsCorrect: true, Order: 1},
			{Content: "3", IsCorrect: true, Order: 2},
			{Content: "4", Order: 3},
		},
	}
	if err := svc.AddQuestion(a.ID, instructor.ID, good); err != nil {
		t.Fatalf("add question: %v", err)
	}

	// 题型汇总数跟着动
	reloaded, err := svc.AssessmentRepo.FindByID(a.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.MSQCount != 2 {
		t.Fatalf("want msq count 2 got=%d", reloaded.MSQCount)
	}

	if err := svc.DeleteQuestion(a.ID, good.ID, instructor.ID); err != nil {
		t.Fatalf("delete question: %v", err)
	}
	reloaded, _ = svc.AssessmentRepo.FindByID(a.ID)
	if reloaded.MSQCount != 1 {
		t.Fatalf("want msq count back to 1 got=%d", reloaded.MSQCount)
	}
}
