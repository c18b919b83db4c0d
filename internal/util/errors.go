package util

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailRegistered      = errors.New("email already registered")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrCourseNotFound       = errors.New("course not found")
	ErrEmptySyllabus        = errors.New("course has no syllabus, generate or edit one before publishing")
	ErrAssessmentNotFound   = errors.New("assessment not found")
	ErrAssessmentNoQuestion = errors.New("assessment has no questions, add at least one before publishing")
	ErrAssessmentNotOpen    = errors.New("assessment not published or not accessible")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrAttemptCompleted     = errors.New("attempt already completed")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrAlreadyAnswered      = errors.New("question already answered in this attempt")
	ErrUnsupportedFileType  = errors.New("unsupported file type, only PDF and DOCX are accepted")
	ErrBadDistribution      = errors.New("difficulty distribution percentages must sum to 100")

	// ErrInvalidInput 业务校验错误的包装哨兵，具体原因用 %w 拼在后面
	ErrInvalidInput = errors.New("invalid input")
)
