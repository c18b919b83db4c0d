package controller

import (
	"doodle_moodle_backend/internal/service"
	"doodle_moodle_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	AnalyticsService *service.AnalyticsService
}

func NewAnalyticsController(analyticsService *service.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{AnalyticsService: analyticsService}
}

// CourseStats godoc
// @Summary 课程统计
// @Description 占位接口，聚合指标待后续版本接入
// @Tags 统计
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseAnalytics} "成功"
// @Router /api/analytics/courses/{id} [get]
func (c *AnalyticsController) CourseStats(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	stats, err := c.AnalyticsService.CourseStats(util.MustParseUint(ctx.Param("id")), claims.UserID)
	if err != nil {
		fail(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// Overview godoc
// @Summary 平台概览
// @Description 占位接口，聚合指标待后续版本接入
// @Tags 统计
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.PlatformOverview} "成功"
// @Router /api/analytics/overview [get]
func (c *AnalyticsController) Overview(ctx *gin.Context) {
	util.Success(ctx, c.AnalyticsService.Overview())
}
