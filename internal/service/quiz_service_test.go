package service

import (
	"errors"
	"testing"

	"doodle_moodle_backend/internal/model"
	"doodle_moodle_backend/internal/repository"
	"doodle_moodle_backend/internal/testutil"
	"doodle_moodle_backend/internal/util"

	"gorm.io/gorm"
)

func newQuizService(t *testing.T, ai Completer) (*QuizService, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	svc := NewQuizService(
		repository.NewAttemptRepository(db),
		repository.NewAssessmentRepository(db),
		repository.NewCourseRepository(db),
		ai,
	)
	return svc, db
}

// optionIDs 按正确性筛出选项 id
func optionIDs(t *testing.T, db *gorm.DB, questionID uint, correct bool) []uint {
	t.Helper()
	var ids []uint
	err := db.Model(&model.QuestionOption{}).
		Where("question_id = ? AND is_correct = ?", questionID, correct).
		Pluck("id", &ids).Error
	if err != nil {
		t.Fatalf("pluck options: %v", err)
	}
	return ids
}

func setupQuiz(t *testing.T, svc *QuizService, db *gorm.DB) (*model.Assessment, *model.User, []model.Question) {
	t.Helper()
	instructor := testutil.CreateUser(t, db, model.Instructor)
	student := testutil.CreateUser(t, db, model.Student)
	course := testutil.CreateCourse(t, db, instructor.ID, true)
	assessment := testutil.CreateAssessment(t, db, course.ID, instructor.ID, true)

	questions, err := svc.AssessmentRepo.ListQuestions(assessment.ID)
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	return assessment, student, questions
}

func TestStartAttemptRequiresPublished(t *testing.T) {
	svc, db := newQuizService(t, &fakeAI{})
	instructor := testutil.CreateUser(t, db, model.Instructor)
	student := testutil.CreateUser(t, db, model.Student)
	course := testutil.CreateCourse(t, db, instructor.ID, true)
	assessment := testutil.CreateAssessment(t, db, course.ID, instructor.ID, false)

	if _, err := svc.StartAttempt(assessment.ID, student.ID); !errors.Is(err, util.ErrAssessmentNotOpen) {
		t.Fatalf("want ErrAssessmentNotOpen got=%v", err)
	}
}

func TestStartAttemptComputesMaxScore(t *testing.T) {
	svc, db := newQuizService(t, &fakeAI{})
	assessment, student, _ := setupQuiz(t, svc, db)

	attempt, err := svc.StartAttempt(assessment.ID, student.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if attempt.MaxScore != 5 {
		t.Fatalf("want maxScore=5 got=%d", attempt.MaxScore)
	}
	if attempt.Status != model.AttemptInProgress {
		t.Fatalf("want in_progress got=%s", attempt.Status)
	}
}

func TestStartAttemptResumesInProgress(t *testing.T) {
	svc, db := newQuizService(t, &fakeAI{})
	assessment, student, _ := setupQuiz(t, svc, db)

	first, err := svc.StartAttempt(assessment.ID, student.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	second, err := svc.StartAttempt(assessment.ID, student.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("want resumed attempt %d got new %d", first.ID, second.ID)
	}
}

func TestQuizFullFlow(t *testing.T) {
	svc, db := newQuizService(t, &fakeAI{replies: []string{"Good effort, revisit the even numbers."}})
	assessment, student, questions := setupQuiz(t, svc, db)

	attempt, err := svc.StartAttempt(assessment.ID, student.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// 第一题
	next, err := svc.NextQuestion(attempt.ID, student.ID)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if next.Done || next.Question == nil {
		t.Fatalf("want a question, got %+v", next)
	}
	if next.Total != 2 || next.Answered != 0 {
		t.Fatalf("want progress 0/2 got %d/%d", next.Answered, next.Total)
	}
	// 题面不能带答案
	for _, opt := range next.Question.Options {
		if opt.IsCorrect {
			t.Fatal("question leaked correct answers")
		}
	}
	if next.Question.Explanation != "" {
		t.Fatal("question leaked explanation")
	}

	// 答对单选
	mcq := questions[0]
	ans, err := svc.SubmitAnswer(attempt.ID, student.ID, SubmitAnswerInput{
		QuestionID:        mcq.ID,
		SelectedOptionIDs: optionIDs(t, db, mcq.ID, true),
	})
	if err != nil {
		t.Fatalf("submit mcq: %v", err)
	}
	if !ans.IsCorrect || ans.Points != 2 {
		t.Fatalf("want correct 2 pts got correct=%v pts=%d", ans.IsCorrect, ans.Points)
	}

	// 重复作答同一题被拒绝
	if _, err := svc.SubmitAnswer(attempt.ID, student.ID, SubmitAnswerInput{
		QuestionID:        mcq.ID,
		SelectedOptionIDs: optionIDs(t, db, mcq.ID, true),
	}); !errors.Is(err, util.ErrAlreadyAnswered) {
		t.Fatalf("want ErrAlreadyAnswered got=%v", err)
	}

	// 多选漏选一个正确项，集合不等判错
	msq := questions[1]
	correct := optionIDs(t, db, msq.ID, true)
	ans, err = svc.SubmitAnswer(attempt.ID, student.ID, SubmitAnswerInput{
		QuestionID:        msq.ID,
		SelectedOptionIDs: correct[:1],
	})
	if err != nil {
		t.Fatalf("submit msq: %v", err)
	}
	if ans.IsCorrect || ans.Points != 0 {
		t.Fatalf("partial selection must score 0, got correct=%v pts=%d", ans.IsCorrect, ans.Points)
	}

	// 全部答完自动收卷
	final, err := svc.AttemptRepo.FindByID(attempt.ID)
	if err != nil {
		t.Fatalf("reload attempt: %v", err)
	}
	if final.Status != model.AttemptCompleted {
		t.Fatalf("want completed got=%s", final.Status)
	}
	if final.Score != 2 || final.MaxScore != 5 {
		t.Fatalf("want score 2/5 got %d/%d", final.Score, final.MaxScore)
	}
	// 2/5 = 40% < 及格线 50%
	if final.Passed {
		t.Fatal("40 percent must not pass a 50 percent threshold")
	}
	if final.Feedback == "" {
		t.Fatal("want AI feedback on completion")
	}

	// 收卷后再取题，固定返回没有更多题目
	next, err = svc.NextQuestion(attempt.ID, student.ID)
	if err != nil {
		t.Fatalf("next after completion: %v", err)
	}
	if !next.Done || next.Question != nil {
		t.Fatalf("completed attempt must return done, got %+v", next)
	}
	if next.Answered != 2 || next.Total != 2 {
		t.Fatalf("want progress 2/2 got %d/%d", next.Answered, next.Total)
	}

	// 已完成后不允许重考
	if _, err := svc.StartAttempt(assessment.ID, student.ID); !errors.Is(err, util.ErrAttemptCompleted) {
		t.Fatalf("want ErrAttemptCompleted got=%v", err)
	}
}

func TestMSQSetEquality(t *testing.T) {
	svc, db := newQuizService(t, &fakeAI{})
	_, _, questions := setupQuiz(t, svc, db)
	msq := questions[1]

	correct := optionIDs(t, db, msq.ID, true)
	wrong := optionIDs(t, db, msq.ID, false)

	cases := []struct {
		name     string
		selected []uint
		want     bool
	}{
		{"exact match", correct, true},
		{"missing one", correct[:1], false},
		{"extra wrong option", append(append([]uint{}, correct...), wrong[0]), false},
		{"empty selection", nil, false},
		{"duplicate ids", []uint{correct[0], correct[0]}, false},
	}

	q, err := svc.AssessmentRepo.FindQuestionByID(msq.ID)
	if err != nil {
		t.Fatalf("find question: %v", err)
	}
	for _, c := range cases {
		if got := gradeSelection(q, c.selected); got != c.want {
			t.Fatalf("%s: want=%v got=%v", c.name, c.want, got)
		}
	}
}

func TestResultOwnership(t *testing.T) {
	svc, db := newQuizService(t, &fakeAI{})
	assessment, student, _ := setupQuiz(t, svc, db)
	stranger := testutil.CreateUser(t, db, model.Student)

	attempt, err := svc.StartAttempt(assessment.ID, student.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := svc.GetResult(attempt.ID, stranger.ID, model.Student); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("want ErrPermissionDenied got=%v", err)
	}
	if _, err := svc.GetResult(attempt.ID, student.ID, model.Student); err != nil {
		t.Fatalf("owner get result: %v", err)
	}
	// 出题教师可以看
	if _, err := svc.GetResult(attempt.ID, assessment.InstructorID, model.Instructor); err != nil {
		t.Fatalf("instructor get result: %v", err)
	}
}

func TestAdaptiveDifficulty(t *testing.T) {
	easy := model.Question{QuestionType: model.MCQ, Content: "e", Difficulty: model.DifficultyEasy}
	easy.ID = 1
	medium := model.Question{QuestionType: model.MCQ, Content: "m", Difficulty: model.DifficultyMedium}
	medium.ID = 2
	hard := model.Question{QuestionType: model.MCQ, Content: "h", Difficulty: model.DifficultyHard}
	hard.ID = 3
	questions := []model.Question{easy, medium, hard}

	// 首题按顺序
	if got := pickNextQuestion(questions, map[uint]bool{}, nil); got.ID != 1 {
		t.Fatalf("first question: want id=1 got=%d", got.ID)
	}

	right := true
	wrongAns := false

	// 答对往难走
	if got := pickNextQuestion(questions, map[uint]bool{1: true}, &right); got.ID != 3 {
		t.Fatalf("after correct: want hard (3) got=%d", got.ID)
	}
	// 答错往易走
	if got := pickNextQuestion(questions, map[uint]bool{2: true}, &wrongAns); got.ID != 1 {
		t.Fatalf("after wrong: want easy (1) got=%d", got.ID)
	}
	// 只剩一题就给那一题
	if got := pickNextQuestion(questions, map[uint]bool{1: true, 3: true}, &right); got.ID != 2 {
		t.Fatalf("single remaining: want 2 got=%d", got.ID)
	}
	// 全答完
	if got := pickNextQuestion(questions, map[uint]bool{1: true, 2: true, 3: true}, &right); got != nil {
		t.Fatalf("want nil when all answered, got %+v", got)
	}
}

func TestSubjectiveGradingFlow(t *testing.T) {
	svc, db := newQuizService(t, &fakeAI{})
	assessment, student, _ := setupQuiz(t, svc, db)

	subjective := model.Question{
		AssessmentID: assessment.ID,
		QuestionType: model.Subjective,
		Content:      "Explain photosynthesis.",
		Difficulty:   model.DifficultyHard,
		Points:       5,
		Order:        3,
	}
	if err := db.Create(&subjective).Error; err != nil {
		t.Fatalf("create subjective: %v", err)
	}

	attempt, err := svc.StartAttempt(assessment.ID, student.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	ans, err := svc.SubmitAnswer(attempt.ID, student.ID, SubmitAnswerInput{
		QuestionID: subjective.ID,
		AnswerText: "Plants convert light into chemical energy.",
	})
	if err != nil {
		t.Fatalf("submit subjective: %v", err)
	}
	if ans.Graded {
		t.Fatal("subjective answer must not be auto graded")
	}

	reloaded, _ := svc.AttemptRepo.FindByID(attempt.ID)
	if !reloaded.PendingReview {
		t.Fatal("attempt must be flagged pending review")
	}

	// 教师评阅，分数封顶到题目分值
	if err := svc.GradeSubjective(attempt.ID, subjective.ID, assessment.InstructorID, 99); err != nil {
		t.Fatalf("grade: %v", err)
	}
	graded, err := svc.AttemptRepo.FindAnswer(attempt.ID, subjective.ID)
	if err != nil {
		t.Fatalf("find answer: %v", err)
	}
	if graded.Points != 5 || !graded.Graded {
		t.Fatalf("want capped 5 pts graded, got pts=%d graded=%v", graded.Points, graded.Graded)
	}

	reloaded, _ = svc.AttemptRepo.FindByID(attempt.ID)
	if reloaded.PendingReview {
		t.Fatal("pending review must clear after all subjective answers are graded")
	}
}
