// internal/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"escpos-printer/internal/config"
	"escpos-printer/internal/handler"
	"escpos-printer/internal/middleware"
	"escpos-printer/internal/service"
	"escpos-printer/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config       *config.Config
	logger       *zap.Logger
	printService *service.PrintService
}

// NewRouter creates a new router instance
func NewRouter(config *config.Config, logger *zap.Logger, printService *service.PrintService) *Router {
	return &Router{
		config:       config,
		logger:       logger,
		printService: printService,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	switch {
	case r.config.IsProduction():
		gin.SetMode(gin.ReleaseMode)
	case gin.Mode() == gin.TestMode:
	case r.config.IsDebugEnabled():
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Security))
	router.Use(middleware.BodyLimitMiddleware(r.config.Security.MaxBodyBytes()))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.printService, r.config, r.logger)
	printHandler := handler.NewPrintHandler(r.printService, r.config.Security.MaxRawBytes, r.logger)

	healthHandler.RegisterRoutes(&router.RouterGroup)

	apiV1 := router.Group("/api/v1")
	printHandler.RegisterRoutes(apiV1)

	r.logger.Info("All routes configured successfully")
}
