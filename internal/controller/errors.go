package controller

import (
	"errors"
	"net/http"
	"strconv"

	"doodle_moodle_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// fail 统一把业务错误映射为 HTTP 状态码
func fail(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrCourseNotFound),
		errors.Is(err, util.ErrAssessmentNotFound),
		errors.Is(err, util.ErrAttemptNotFound),
		errors.Is(err, util.ErrQuestionNotFound),
		errors.Is(err, util.ErrUserNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrEmailRegistered),
		errors.Is(err, util.ErrAlreadyAnswered),
		errors.Is(err, util.ErrAttemptCompleted):
		util.Error(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, util.ErrEmptySyllabus),
		errors.Is(err, util.ErrAssessmentNoQuestion),
		errors.Is(err, util.ErrAssessmentNotOpen),
		errors.Is(err, util.ErrBadDistribution),
		errors.Is(err, util.ErrUnsupportedFileType),
		errors.Is(err, util.ErrInvalidInput):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// paging 解析分页参数，page 从 1 开始，limit 上限 100
func paging(ctx *gin.Context) (int, int) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
