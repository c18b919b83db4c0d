package app

import (
	"doodle_moodle_backend/docs"
	"doodle_moodle_backend/internal/config"
	"doodle_moodle_backend/internal/middleware"
	"doodle_moodle_backend/internal/model"
	"doodle_moodle_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)
	}

	// 需要登录的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/auth/profile", c.auth.Profile)
		authGroup.POST("/ai/chat", c.ai.Chat)
		authGroup.POST("/ai/syllabus", c.ai.Syllabus)
		authGroup.POST("/ai/feedback", c.ai.Feedback)

		// 课程浏览：学生和教师都可以
		authGroup.GET("/courses", c.course.ListPublished)
		authGroup.GET("/courses/:id", c.course.Get)
		authGroup.GET("/courses/:id/syllabus", c.course.GetSyllabus)
		authGroup.GET("/courses/:id/assessments/open", c.assessment.ListOpen)
		authGroup.GET("/assessments/:id", c.assessment.Get)

		a.registerStudentRoutes(authGroup, c)
		a.registerInstructorRoutes(authGroup, c)
	}
}

// registerStudentRoutes 作答流程，仅学生
func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	student := rg.Group("/student")
	student.Use(middleware.RoleMiddleware(model.Student))
	{
		student.POST("/assessments/:id/start", c.quiz.Start)
		student.GET("/attempts/:id/next", c.quiz.Next)
		student.POST("/attempts/:id/answer", c.quiz.Submit)
	}

	// 成绩单学生和教师都可能查（服务层再做属主校验）
	rg.GET("/student/attempts/:id/result", c.quiz.Result)
}

// registerInstructorRoutes 课程和测验管理，仅教师
func (a *App) registerInstructorRoutes(rg *gin.RouterGroup, c *controllers) {
	instructor := rg.Group("/")
	instructor.Use(middleware.RoleMiddleware(model.Instructor))
	{
		// 课程管理
		instructor.POST("/courses", c.course.Create)
		instructor.GET("/courses/mine", c.course.ListMine)
		instructor.PUT("/courses/:id", c.course.Update)
		instructor.DELETE("/courses/:id", c.course.Delete)
		instructor.POST("/courses/:id/materials", c.course.UploadMaterial)
		instructor.DELETE("/courses/:id/materials/:fileId", c.course.DeleteMaterial)
		instructor.POST("/courses/:id/syllabus/generate", c.course.GenerateSyllabus)
		instructor.PUT("/courses/:id/syllabus", c.course.UpdateSyllabus)
		instructor.POST("/courses/:id/publish", c.course.Publish)
		instructor.POST("/courses/:id/unpublish", c.course.Unpublish)

		// 测验管理
		instructor.POST("/assessments", c.assessment.Create)
		instructor.GET("/courses/:id/assessments", c.assessment.ListByCourse)
		instructor.PUT("/assessments/:id", c.assessment.Update)
		instructor.DELETE("/assessments/:id", c.assessment.Delete)
		instructor.POST("/assessments/:id/publish", c.assessment.Publish)
		instructor.POST("/assessments/:id/unpublish", c.assessment.Unpublish)
		instructor.GET("/assessments/:id/questions", c.assessment.ListQuestions)
		instructor.POST("/assessments/:id/questions", c.assessment.AddQuestion)
		instructor.PUT("/assessments/:id/questions/:questionId", c.assessment.UpdateQuestion)
		instructor.DELETE("/assessments/:id/questions/:questionId", c.assessment.DeleteQuestion)

		// 作答管理与评阅
		instructor.GET("/assessments/:id/attempts/list", c.quiz.ListAttempts)
		instructor.POST("/attempts/:id/grade", c.quiz.Grade)

		// 题库
		instructor.POST("/question-bank", c.bank.Copy)
		instructor.GET("/question-bank", c.bank.List)
		instructor.DELETE("/question-bank/:id", c.bank.Delete)
		instructor.POST("/question-bank/:id/import", c.bank.Import)

		// 统计
		instructor.GET("/analytics/courses/:id", c.analytics.CourseStats)
		instructor.GET("/analytics/overview", c.analytics.Overview)
	}
}
