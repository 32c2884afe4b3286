package api

import (
	"github.com/gin-gonic/gin"
	"github.com/svchk12/agnet-que/internal/api/handler"
	"github.com/svchk12/agnet-que/internal/api/middleware"
	"github.com/svchk12/agnet-que/internal/config"
	"github.com/svchk12/agnet-que/internal/logger"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(jobHandler *handler.JobHandler, cfg *config.Config, log *logger.Logger) *gin.Engine {
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}))

	healthHandler := handler.NewHealthHandler()
	r.GET("/health", healthHandler.Health)

	r.POST("/jobs", jobHandler.CreateJob)
	r.GET("/jobs/:id", jobHandler.GetJobStatus)
	r.GET("/jobs/:id/stream", jobHandler.StreamJobStatus)

	return r
}
