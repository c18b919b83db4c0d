package controller

import (
	"doodle_moodle_backend/internal/repository"
	"doodle_moodle_backend/internal/service"
	"doodle_moodle_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuestionBankController struct {
	BankService *service.QuestionBankService
}

func NewQuestionBankController(bankService *service.QuestionBankService) *QuestionBankController {
	return &QuestionBankController{BankService: bankService}
}

type CopyToBankRequest struct {
	AssessmentID uint `json:"assessmentId" binding:"required"`
	QuestionID   uint `json:"questionId" binding:"required"`
}

// Copy godoc
// @Summary 收藏题目到题库
// @Description 存独立副本，之后修改原题不影响题库
// @Tags 题库
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body CopyToBankRequest true "来源题目"
// @Success 201 {object} util.Response{data=model.QuestionBankItem} "成功"
// @Router /api/question-bank [post]
func (c *QuestionBankController) Copy(ctx *gin.Context) {
	var req CopyToBankRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	item, err := c.BankService.CopyToBank(req.AssessmentID, req.QuestionID, claims.UserID)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Created(ctx, item)
}

// List godoc
// @Summary 题库列表
// @Description 支持按课程、题型、难度、主题筛选
// @Tags 题库
// @Produce  json
// @Security BearerAuth
// @Param   courseId query int false "课程ID"
// @Param   type query string false "题型" Enums(mcq, msq, subjective)
// @Param   difficulty query string false "难度" Enums(easy, medium, hard)
// @Param   topic query string false "主题"
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/question-bank [get]
func (c *QuestionBankController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	page, limit := paging(ctx)

	filter := repository.BankFilter{
		CourseID:   util.MustParseUint(ctx.Query("courseId")),
		Type:       ctx.Query("type"),
		Difficulty: ctx.Query("difficulty"),
		Topic:      ctx.Query("topic"),
	}

	items, total, err := c.BankService.List(claims.UserID, filter, page, limit)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: items, Total: total, Page: page, Limit: limit})
}

// Delete godoc
// @Summary 从题库移除题目
// @Tags 题库
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "题库条目ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/question-bank/{id} [delete]
func (c *QuestionBankController) Delete(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if err := c.BankService.Delete(util.MustParseUint(ctx.Param("id")), claims.UserID); err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

type ImportRequest struct {
	AssessmentID uint `json:"assessmentId" binding:"required"`
}

// Import godoc
// @Summary 从题库导入题目到测验
// @Tags 题库
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "题库条目ID"
// @Param   body body ImportRequest true "目标测验"
// @Success 201 {object} util.Response{data=model.Question} "成功"
// @Router /api/question-bank/{id}/import [post]
func (c *QuestionBankController) Import(ctx *gin.Context) {
	var req ImportRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	question, err := c.BankService.ImportToAssessment(
		util.MustParseUint(ctx.Param("id")), req.AssessmentID, claims.UserID)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Created(ctx, question)
}
