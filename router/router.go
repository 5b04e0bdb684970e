package router

import (
	"fmt"
	"net/http"

	"timetable-lookup/config"
	"timetable-lookup/handlers"
	"timetable-lookup/middleware"
	"timetable-lookup/models"
	"timetable-lookup/services"
	"timetable-lookup/web"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Setup собирает роутер. Лимит только на отправку формы,
// страницы отдаются всегда
func Setup(
	cfg *config.Config,
	timetableHandler *handlers.TimetableHandler,
	healthHandler *handlers.HealthHandler,
	sessions *services.SessionManager,
	limiter services.Limiter,
	logger *zap.Logger,
) (*gin.Engine, error) {
	templates, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	router := gin.New()
	// Без доверенных прокси ClientIP берётся из адреса сокета, и подменить
	// ключ лимитера через X-Forwarded-For нельзя
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	router.SetHTMLTemplate(templates)

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	router.Use(middleware.Session(sessions, cfg.IsProduction()))

	router.GET("/", timetableHandler.Index)
	router.GET("/tutorial", timetableHandler.Tutorial)
	router.POST("/", middleware.RateLimit(limiter, logger), timetableHandler.Submit)

	router.GET("/health", healthHandler.Health)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: "not found",
		})
	})

	return router, nil
}
