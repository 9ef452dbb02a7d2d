package app

import (
	"quiz_bank_backend/docs"
	"quiz_bank_backend/internal/config"
	"quiz_bank_backend/internal/middleware"
	"quiz_bank_backend/pkg/monitoring"
	"quiz_bank_backend/pkg/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需令牌)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由，未启用认证时直接放行
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerQuestionRoutes(authGroup, c)
		a.registerImportRoutes(authGroup, c, cfg)
		a.registerSessionRoutes(authGroup, c)
		a.registerLibraryRoutes(authGroup, c)

		authGroup.GET("/preferences", c.preference.Get)
		authGroup.PATCH("/preferences", c.preference.Update)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/token", c.auth.IssueToken)
	}
}

func (a *App) registerQuestionRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/questions", c.question.List)
	rg.GET("/questions/:questionId", c.question.Get)
	rg.PUT("/questions/:questionId", c.question.Update)
	rg.DELETE("/questions/:questionId", c.question.Delete)

	// 笔记
	rg.GET("/questions/:questionId/note", c.library.GetNote)
	rg.PUT("/questions/:questionId/note", c.library.SaveNote)
	rg.DELETE("/questions/:questionId/note", c.library.DeleteNote)

	// AI 解析
	rg.GET("/ai/providers", c.explanation.Providers)
	rg.GET("/questions/:questionId/explanation", c.explanation.Explain)
	rg.POST("/questions/:questionId/ask", c.explanation.Ask)
	rg.GET("/questions/:questionId/analyses", c.explanation.List)

	// 来源文件
	rg.GET("/sources", c.question.ListSources)
	rg.DELETE("/sources/:fileName", c.question.DeleteSource)
}

func (a *App) registerImportRoutes(rg *gin.RouterGroup, c *controllers, cfg *config.Config) {
	upload := security.BodyLimit(int64(cfg.Import.MaxRequestMB) << 20)

	rg.POST("/imports", upload, c.imports.Import)
	rg.POST("/imports/jobs", upload, c.imports.StartJob)
	rg.GET("/imports/jobs/:id", c.imports.GetJob)
	rg.DELETE("/imports/jobs/:id", c.imports.CancelJob)

	rg.POST("/backups/import", upload, c.imports.ImportBackup)
	rg.GET("/exports/:type", c.imports.Export)
}

func (a *App) registerSessionRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.POST("/sessions", c.session.Start)
	rg.GET("/sessions/:key/questions", c.session.Questions)
	rg.POST("/sessions/:key/answers", c.session.Answer)
	rg.POST("/sessions/:key/submit", c.session.Submit)

	progress := rg.Group("/progress")
	{
		progress.GET("", c.session.ListProgress)
		progress.GET("/:key", c.session.GetProgress)
		progress.PUT("/:key", c.session.SaveProgress)
		progress.DELETE("/:key", c.session.ClearProgress)
		progress.PUT("/:key/position", c.session.Move)
		progress.PUT("/:key/questions/:questionId/note", c.session.SetNote)
		progress.PUT("/:key/questions/:questionId/analysis", c.session.SetAnalysis)
		progress.GET("/:key/watch", c.session.Watch)
	}
}

func (a *App) registerLibraryRoutes(rg *gin.RouterGroup, c *controllers) {
	// 错题本
	rg.GET("/wrong-answers", c.library.ListWrong)
	rg.DELETE("/wrong-answers", c.library.ClearWrong)
	rg.DELETE("/wrong-answers/:questionId", c.library.RemoveWrong)

	// 收藏
	rg.GET("/favorites", c.library.ListFavorites)
	rg.PUT("/favorites/:questionId", c.library.AddFavorite)
	rg.DELETE("/favorites/:questionId", c.library.RemoveFavorite)
	rg.POST("/favorites/:questionId/toggle", c.library.ToggleFavorite)

	// 历史记录
	rg.GET("/history/:kind", c.library.ListHistory)
	rg.DELETE("/history/:kind", c.library.ClearHistory)
	rg.DELETE("/history/:kind/:id", c.library.DeleteHistory)

	// 文件夹
	rg.GET("/folders", c.library.ListFolders)
	rg.POST("/folders", c.library.CreateFolder)
	rg.PUT("/folders/:id", c.library.RenameFolder)
	rg.DELETE("/folders/:id", c.library.DeleteFolder)
	rg.POST("/folders/:id/files", c.library.AssignFile)
	rg.DELETE("/folders/files/:fileName", c.library.UnassignFile)
}
