package controller

import (
	"doodle_moodle_backend/internal/service"
	"doodle_moodle_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// Start godoc
// @Summary 开始作答
// @Description 已有未完成作答时恢复进度，已完成则返回 409
// @Tags 作答
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=model.StudentAttempt} "成功"
// @Failure 400 {object} util.Response "测验未开放"
// @Failure 409 {object} util.Response "已完成作答"
// @Router /api/student/assessments/{id}/start [post]
func (c *QuizController) Start(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	attempt, err := c.QuizService.StartAttempt(util.MustParseUint(ctx.Param("id")), claims.UserID)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// Next godoc
// @Summary 下一道题
// @Description 一次只给一题，题面不含正确答案；全部答完或已收卷后 done=true
// @Tags 作答
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "作答ID"
// @Success 200 {object} util.Response{data=service.NextQuestionResult} "成功"
// @Router /api/student/attempts/{id}/next [get]
func (c *QuizController) Next(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	result, err := c.QuizService.NextQuestion(util.MustParseUint(ctx.Param("id")), claims.UserID)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Submit godoc
// @Summary 提交单题答案
// @Description 选择题立即判分，主观题留待教师评阅
// @Tags 作答
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "作答ID"
// @Param   body body service.SubmitAnswerInput true "答案"
// @Success 200 {object} util.Response{data=model.StudentAnswer} "成功"
// @Failure 409 {object} util.Response "该题已作答"
// @Router /api/student/attempts/{id}/answer [post]
func (c *QuizController) Submit(ctx *gin.Context) {
	var input service.SubmitAnswerInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	answer, err := c.QuizService.SubmitAnswer(util.MustParseUint(ctx.Param("id")), claims.UserID, input)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, answer)
}

// Result godoc
// @Summary 作答结果
// @Description 学生只能看自己的成绩单，教师能看自己测验下的
// @Tags 作答
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "作答ID"
// @Success 200 {object} util.Response{data=service.AttemptResult} "成功"
// @Failure 403 {object} util.Response "无权查看"
// @Router /api/student/attempts/{id}/result [get]
func (c *QuizController) Result(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	result, err := c.QuizService.GetResult(util.MustParseUint(ctx.Param("id")), claims.UserID, claims.Role)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// ListAttempts godoc
// @Summary 测验的作答列表（教师）
// @Tags 作答
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/assessments/{id}/attempts/list [get]
func (c *QuizController) ListAttempts(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	page, limit := paging(ctx)
	attempts, total, err := c.QuizService.ListAttempts(util.MustParseUint(ctx.Param("id")), claims.UserID, page, limit)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: attempts, Total: total, Page: page, Limit: limit})
}

type GradeRequest struct {
	QuestionID uint `json:"questionId" binding:"required"`
	Points     int  `json:"points"`
}

// Grade godoc
// @Summary 评阅主观题（教师）
// @Description 全部主观题评完后自动重算总分
// @Tags 作答
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "作答ID"
// @Param   body body GradeRequest true "评分"
// @Success 200 {object} util.Response "成功"
// @Router /api/attempts/{id}/grade [post]
func (c *QuizController) Grade(ctx *gin.Context) {
	var req GradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	err := c.QuizService.GradeSubjective(
		util.MustParseUint(ctx.Param("id")), req.QuestionID, claims.UserID, req.Points)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
