package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/studyforge/quizgen-backend/internal/http/handlers"
	httpMW "github.com/studyforge/quizgen-backend/internal/http/middleware"
	"github.com/studyforge/quizgen-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	SessionHandler *httpH.SessionHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.SessionHandler != nil {
			api.GET("/session", cfg.SessionHandler.GetSession)
			api.PUT("/session/text", cfg.SessionHandler.SetText)
			api.POST("/session/files", cfg.SessionHandler.SetFiles)
			api.POST("/session/generate", cfg.SessionHandler.Generate)
			api.POST("/session/answers", cfg.SessionHandler.SelectAnswer)
			api.POST("/session/submit", cfg.SessionHandler.Submit)

			api.GET("/session/snapshots", cfg.SessionHandler.ListSnapshots)
			api.GET("/session/snapshots/:index", cfg.SessionHandler.GetSnapshot)
			api.GET("/session/sheet", cfg.SessionHandler.GetContactSheet)
		}
	}

	return r
}
