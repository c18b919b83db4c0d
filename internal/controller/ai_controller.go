package controller

import (
	"doodle_moodle_backend/internal/service"
	"doodle_moodle_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AIController struct {
	AI service.Completer
}

func NewAIController(ai service.Completer) *AIController {
	return &AIController{AI: ai}
}

type AIChatRequest struct {
	Prompt  string `json:"prompt" binding:"required"`
	Context string `json:"context"`
}

// Chat godoc
// @Summary AI 助教问答
// @Description 面向学生的同步问答接口
// @Tags AI
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body AIChatRequest true "问题"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 500 {object} util.Response "AI 服务不可用"
// @Router /api/ai/chat [post]
func (c *AIController) Chat(ctx *gin.Context) {
	var req AIChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	reply, err := c.AI.Chat(req.Prompt, req.Context)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"reply": reply})
}

type AISyllabusRequest struct {
	CourseTitle string `json:"courseTitle" binding:"required"`
	Text        string `json:"text" binding:"required"`
}

// Syllabus godoc
// @Summary 从文本生成大纲
// @Description 不落库，直接返回 AI 生成的大纲草稿，供前端预览或重新生成
// @Tags AI
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body AISyllabusRequest true "课程名与原始文本"
// @Success 200 {object} util.Response{data=service.SyllabusDraft} "成功"
// @Failure 500 {object} util.Response "AI 服务不可用"
// @Router /api/ai/syllabus [post]
func (c *AIController) Syllabus(ctx *gin.Context) {
	var req AISyllabusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	draft, err := service.GenerateSyllabus(c.AI, req.CourseTitle, req.Text)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, draft)
}

// Feedback godoc
// @Summary 根据答题概要生成反馈
// @Tags AI
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.AttemptSummary true "答题概要"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 500 {object} util.Response "AI 服务不可用"
// @Router /api/ai/feedback [post]
func (c *AIController) Feedback(ctx *gin.Context) {
	var summary service.AttemptSummary
	if err := ctx.ShouldBindJSON(&summary); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	feedback, err := service.GenerateFeedback(c.AI, summary)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"feedback": feedback})
}
