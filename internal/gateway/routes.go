package gateway

import (
	_ "invocation-adapter/docs"
	"invocation-adapter/internal/config"
	"invocation-adapter/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// NewRouter wires the local gateway. Authentication is enabled only when a
// JWT secret is configured.
func NewRouter(cfg *config.Config, registry Registry, logger logrus.FieldLogger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger(logger))
	router.Use(middleware.CORS())

	handler := NewFunctionHandler(registry, logger)
	router.GET("/health", handler.Health)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	functions := router.Group("/functions")
	if cfg.RateLimit.RequestsPerSecond > 0 {
		functions.Use(middleware.RateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger))
	}
	if cfg.Auth.JWTSecret != "" {
		auth := middleware.NewAuthService(&middleware.AuthConfig{
			JWTSecret: cfg.Auth.JWTSecret,
			Issuer:    cfg.Auth.Issuer,
		})
		functions.Use(middleware.Authentication(auth, logger))
	}
	{
		functions.GET("", handler.List)
		functions.Any("/:name", handler.Invoke)
	}

	return router
}
