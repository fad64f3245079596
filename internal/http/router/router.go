package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/username-extractor/internal/config"
	"github.com/ignatzorin/username-extractor/internal/http/handlers"
	"github.com/ignatzorin/username-extractor/internal/http/middleware"
)

// Handlers - все хэндлеры, которые подключает роутер.
type Handlers struct {
	Files     *handlers.FileHandler
	Workspace *handlers.WorkspaceHandler
	Previews  *handlers.PreviewHandler
	Health    *handlers.HealthHandler
	WS        *handlers.WSHandler
}

func SetupRouter(cfg *config.Config, h Handlers) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	// Загрузка ограничивается в Spool, здесь только буфер multipart в памяти.
	r.MaxMultipartMemory = 32 << 20

	r.GET("/health", h.Health.Health)
	r.GET("/previews/:token", middleware.UUIDValidator("token"), h.Previews.Serve)

	api := r.Group("/api")

	files := api.Group("/files")
	{
		files.GET("", h.Files.List)
		files.POST("", h.Files.Upload)
		files.GET("/:id", middleware.UUIDValidator("id"), h.Files.Get)
		files.DELETE("/:id", middleware.UUIDValidator("id"), h.Files.Delete)
		files.POST("/:id/copy", middleware.UUIDValidator("id"), h.Files.Copy)

		// Лимит только на обращения к внешнему AI.
		scanRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
		files.POST("/:id/scan", scanRateLimit, middleware.UUIDValidator("id"), h.Files.Scan)
	}

	workspace := api.Group("/workspace")
	{
		workspace.POST("/clear", h.Workspace.RequestClear)
		workspace.POST("/clear/confirm", h.Workspace.ConfirmClear)
		workspace.POST("/clear/cancel", h.Workspace.CancelClear)
		workspace.GET("/export", h.Workspace.Export)
	}

	if h.WS != nil {
		api.GET("/ws", h.WS.Handle)
	}

	return r
}
