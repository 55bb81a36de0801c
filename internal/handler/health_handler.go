// internal/handler/health_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"escpos-printer/internal/config"
	"escpos-printer/internal/service"
	"escpos-printer/internal/utils"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	printService *service.PrintService
	config       *config.Config
	startedAt    time.Time
	logger       *utils.ServiceLogger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(printService *service.PrintService, config *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		printService: printService,
		config:       config,
		startedAt:    time.Now(),
		logger:       utils.NewServiceLogger(logger, "health-handler"),
	}
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", h.HealthCheck)
	router.GET("/ready", h.ReadinessCheck)
	router.GET("/live", h.LivenessCheck)
}

// HealthCheck reports service health. The service is healthy while the
// printer is reachable or not yet needed; the printer check is degraded
// after a failed job until the next one succeeds.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := h.printService.Status()

	health := &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   h.config.App.Name,
		Version:   h.config.App.Version,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Checks:    make(map[string]CheckResult),
	}

	printerCheck := CheckResult{
		Status:  "healthy",
		Message: "Printer session open",
		Data: map[string]interface{}{
			"transport":    status.Transport,
			"port":         status.Port,
			"connected":    status.Connected,
			"jobs_printed": status.JobsPrinted,
			"jobs_failed":  status.JobsFailed,
		},
	}
	switch {
	case status.LastError != "":
		printerCheck.Status = "degraded"
		printerCheck.Message = status.LastError
	case !status.Connected:
		printerCheck.Message = "Printer session idle"
	}
	health.Checks["printer"] = printerCheck

	c.JSON(http.StatusOK, health)
}

// ReadinessCheck reports whether a printer session is open
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if !h.printService.Ready() {
		h.logger.Debug("Readiness check failed: printer session not open")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "printer session not open",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}

// LivenessCheck reports that the process can answer requests
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult represents individual check result
type CheckResult struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
