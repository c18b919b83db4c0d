package controller

import (
	"io"

	"doodle_moodle_backend/internal/model"
	"doodle_moodle_backend/internal/service"
	"doodle_moodle_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// 单个课程资料文件上限 20MB
const maxMaterialSize = 20 << 20

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

type CourseRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// Create godoc
// @Summary 创建课程
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body CourseRequest true "课程信息"
// @Success 201 {object} util.Response{data=model.Course} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/courses [post]
func (c *CourseController) Create(ctx *gin.Context) {
	var req CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	course, err := c.CourseService.CreateCourse(claims.UserID, req.Title, req.Description)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// Get godoc
// @Summary 课程详情
// @Description 含大纲和资料文件列表，学生只能查看已发布课程
// @Tags 课程
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id} [get]
func (c *CourseController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	course, err := c.CourseService.GetCourse(util.MustParseUint(ctx.Param("id")), claims.UserID, claims.Role)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// ListMine godoc
// @Summary 我创建的课程
// @Tags 课程
// @Produce  json
// @Security BearerAuth
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/courses/mine [get]
func (c *CourseController) ListMine(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	page, limit := paging(ctx)
	courses, total, err := c.CourseService.ListMyCourses(claims.UserID, page, limit)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: courses, Total: total, Page: page, Limit: limit})
}

// ListPublished godoc
// @Summary 已发布课程列表
// @Tags 课程
// @Produce  json
// @Security BearerAuth
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/courses [get]
func (c *CourseController) ListPublished(ctx *gin.Context) {
	page, limit := paging(ctx)
	courses, total, err := c.CourseService.ListPublished(page, limit)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: courses, Total: total, Page: page, Limit: limit})
}

// Update godoc
// @Summary 更新课程信息
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Param   body body CourseRequest true "课程信息"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 403 {object} util.Response "无权操作"
// @Router /api/courses/{id} [put]
func (c *CourseController) Update(ctx *gin.Context) {
	var req CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	course, err := c.CourseService.UpdateCourse(util.MustParseUint(ctx.Param("id")), claims.UserID, req.Title, req.Description)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// Delete godoc
// @Summary 删除课程
// @Description 级联删除大纲、资料文件及存储对象
// @Tags 课程
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response "成功"
// @Failure 403 {object} util.Response "无权操作"
// @Router /api/courses/{id} [delete]
func (c *CourseController) Delete(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if err := c.CourseService.DeleteCourse(util.MustParseUint(ctx.Param("id")), claims.UserID); err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// UploadMaterial godoc
// @Summary 上传课程资料
// @Description 仅接受 PDF / DOCX，按文件头校验真实类型
// @Tags 课程
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Param   file formData file true "资料文件"
// @Success 201 {object} util.Response{data=model.CourseFile} "上传成功"
// @Failure 400 {object} util.Response "文件类型不支持"
// @Router /api/courses/{id}/materials [post]
func (c *CourseController) UploadMaterial(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	if fileHeader.Size > maxMaterialSize {
		util.BadRequest(ctx, "file too large, limit is 20MB")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	claims := util.GetUserFromContext(ctx)
	file, err := c.CourseService.UploadMaterial(ctx.Request.Context(),
		util.MustParseUint(ctx.Param("id")), claims.UserID, fileHeader.Filename, data)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Created(ctx, file)
}

// DeleteMaterial godoc
// @Summary 删除课程资料
// @Tags 课程
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Param   fileId path int true "文件ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/courses/{id}/materials/{fileId} [delete]
func (c *CourseController) DeleteMaterial(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	err := c.CourseService.DeleteMaterial(
		util.MustParseUint(ctx.Param("id")),
		util.MustParseUint(ctx.Param("fileId")),
		claims.UserID)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

type GenerateSyllabusRequest struct {
	Mode string `json:"mode" binding:"omitempty,oneof=replace merge"`
}

// GenerateSyllabus godoc
// @Summary AI 生成课程大纲
// @Description 根据已上传资料生成嵌套大纲；mode=merge 时并入已有大纲
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Param   body body GenerateSyllabusRequest false "生成模式"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 400 {object} util.Response "课程没有资料"
// @Router /api/courses/{id}/syllabus/generate [post]
func (c *CourseController) GenerateSyllabus(ctx *gin.Context) {
	var req GenerateSyllabusRequest
	_ = ctx.ShouldBindJSON(&req)
	if req.Mode == "" {
		req.Mode = service.SyllabusModeReplace
	}

	claims := util.GetUserFromContext(ctx)
	course, err := c.CourseService.GenerateSyllabus(util.MustParseUint(ctx.Param("id")), claims.UserID, req.Mode)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, course)
}

type UpdateSyllabusRequest struct {
	Topics []model.Topic `json:"topics" binding:"required"`
}

// UpdateSyllabus godoc
// @Summary 手动编辑课程大纲
// @Description 整体替换课程大纲
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Param   body body UpdateSyllabusRequest true "大纲"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Router /api/courses/{id}/syllabus [put]
func (c *CourseController) UpdateSyllabus(ctx *gin.Context) {
	var req UpdateSyllabusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	course, err := c.CourseService.UpdateSyllabus(util.MustParseUint(ctx.Param("id")), claims.UserID, req.Topics)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// GetSyllabus godoc
// @Summary 课程大纲
// @Description 已发布课程走 Redis 缓存
// @Tags 课程
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.Topic} "成功"
// @Router /api/courses/{id}/syllabus [get]
func (c *CourseController) GetSyllabus(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	topics, err := c.CourseService.GetSyllabus(util.MustParseUint(ctx.Param("id")), claims.UserID, claims.Role)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, topics)
}

// Publish godoc
// @Summary 发布课程
// @Description 大纲为空时拒绝发布
// @Tags 课程
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 400 {object} util.Response "大纲为空"
// @Router /api/courses/{id}/publish [post]
func (c *CourseController) Publish(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	course, err := c.CourseService.Publish(util.MustParseUint(ctx.Param("id")), claims.UserID)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// Unpublish godoc
// @Summary 取消发布课程
// @Tags 课程
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Router /api/courses/{id}/unpublish [post]
func (c *CourseController) Unpublish(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	course, err := c.CourseService.Unpublish(util.MustParseUint(ctx.Param("id")), claims.UserID)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, course)
}
