package controller

import (
	"doodle_moodle_backend/internal/model"
	"doodle_moodle_backend/internal/service"
	"doodle_moodle_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssessmentController struct {
	AssessmentService *service.AssessmentService
}

func NewAssessmentController(assessmentService *service.AssessmentService) *AssessmentController {
	return &AssessmentController{AssessmentService: assessmentService}
}

// Create godoc
// @Summary 创建测验
// @Description 按大纲范围和难度分布由 AI 一次性生成整套题目
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.CreateAssessmentInput true "测验配置"
// @Success 201 {object} util.Response{data=model.Assessment} "创建成功"
// @Failure 400 {object} util.Response "难度分布不合法或范围为空"
// @Router /api/assessments [post]
func (c *AssessmentController) Create(ctx *gin.Context) {
	var input service.CreateAssessmentInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	assessment, err := c.AssessmentService.CreateAssessment(claims.UserID, input)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Created(ctx, assessment)
}

// Get godoc
// @Summary 测验详情
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=model.Assessment} "成功"
// @Failure 404 {object} util.Response "测验不存在"
// @Router /api/assessments/{id} [get]
func (c *AssessmentController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	assessment, err := c.AssessmentService.GetAssessment(util.MustParseUint(ctx.Param("id")), claims.UserID, claims.Role)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, assessment)
}

// ListByCourse godoc
// @Summary 课程下的测验（教师）
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/courses/{id}/assessments [get]
func (c *AssessmentController) ListByCourse(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	page, limit := paging(ctx)
	assessments, total, err := c.AssessmentService.ListByCourse(
		util.MustParseUint(ctx.Param("id")), claims.UserID, page, limit)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: assessments, Total: total, Page: page, Limit: limit})
}

// ListOpen godoc
// @Summary 课程下开放作答的测验（学生）
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.Assessment} "成功"
// @Router /api/courses/{id}/assessments/open [get]
func (c *AssessmentController) ListOpen(ctx *gin.Context) {
	assessments, err := c.AssessmentService.ListOpenByCourse(util.MustParseUint(ctx.Param("id")))
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, assessments)
}

type UpdateAssessmentRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	TimeLimit    int    `json:"timeLimit"`
	PassingScore int    `json:"passingScore"`
}

// Update godoc
// @Summary 更新测验信息
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Param   body body UpdateAssessmentRequest true "测验信息"
// @Success 200 {object} util.Response{data=model.Assessment} "成功"
// @Router /api/assessments/{id} [put]
func (c *AssessmentController) Update(ctx *gin.Context) {
	var req UpdateAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	assessment, err := c.AssessmentService.UpdateAssessment(
		util.MustParseUint(ctx.Param("id")), claims.UserID,
		req.Title, req.Description, req.TimeLimit, req.PassingScore)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, assessment)
}

// Delete godoc
// @Summary 删除测验
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/assessments/{id} [delete]
func (c *AssessmentController) Delete(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if err := c.AssessmentService.DeleteAssessment(util.MustParseUint(ctx.Param("id")), claims.UserID); err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Publish godoc
// @Summary 发布测验
// @Description 没有题目时拒绝发布
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=model.Assessment} "成功"
// @Failure 400 {object} util.Response "测验没有题目"
// @Router /api/assessments/{id}/publish [post]
func (c *AssessmentController) Publish(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	assessment, err := c.AssessmentService.Publish(util.MustParseUint(ctx.Param("id")), claims.UserID)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, assessment)
}

// Unpublish godoc
// @Summary 取消发布测验
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=model.Assessment} "成功"
// @Router /api/assessments/{id}/unpublish [post]
func (c *AssessmentController) Unpublish(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	assessment, err := c.AssessmentService.Unpublish(util.MustParseUint(ctx.Param("id")), claims.UserID)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, assessment)
}

// ListQuestions godoc
// @Summary 测验题目列表（教师）
// @Description 含正确答案和解析
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=[]model.Question} "成功"
// @Router /api/assessments/{id}/questions [get]
func (c *AssessmentController) ListQuestions(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	questions, err := c.AssessmentService.ListQuestions(util.MustParseUint(ctx.Param("id")), claims.UserID)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, questions)
}

// AddQuestion godoc
// @Summary 手动添加题目
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Param   body body model.Question true "题目"
// @Success 201 {object} util.Response{data=model.Question} "创建成功"
// @Router /api/assessments/{id}/questions [post]
func (c *AssessmentController) AddQuestion(ctx *gin.Context) {
	var q model.Question
	if err := ctx.ShouldBindJSON(&q); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	if err := c.AssessmentService.AddQuestion(util.MustParseUint(ctx.Param("id")), claims.UserID, &q); err != nil {
		fail(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// UpdateQuestion godoc
// @Summary 更新题目
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Param   questionId path int true "题目ID"
// @Param   body body model.Question true "题目"
// @Success 200 {object} util.Response{data=model.Question} "成功"
// @Router /api/assessments/{id}/questions/{questionId} [put]
func (c *AssessmentController) UpdateQuestion(ctx *gin.Context) {
	var q model.Question
	if err := ctx.ShouldBindJSON(&q); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	err := c.AssessmentService.UpdateQuestion(
		util.MustParseUint(ctx.Param("id")),
		util.MustParseUint(ctx.Param("questionId")),
		claims.UserID, &q)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// DeleteQuestion godoc
// @Summary 删除题目
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Param   questionId path int true "题目ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/assessments/{id}/questions/{questionId} [delete]
func (c *AssessmentController) DeleteQuestion(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	err := c.AssessmentService.DeleteQuestion(
		util.MustParseUint(ctx.Param("id")),
		util.MustParseUint(ctx.Param("questionId")),
		claims.UserID)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
