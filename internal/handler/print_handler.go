// internal/handler/print_handler.go
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"escpos-printer/internal/service"
	"escpos-printer/internal/utils"
	"escpos-printer/pkg/printer"
)

// PrintHandler handles print job HTTP requests
type PrintHandler struct {
	printService *service.PrintService
	maxRawBytes  int
	logger       *utils.ServiceLogger
}

// NewPrintHandler creates a new print handler
func NewPrintHandler(printService *service.PrintService, maxRawBytes int, logger *zap.Logger) *PrintHandler {
	return &PrintHandler{
		printService: printService,
		maxRawBytes:  maxRawBytes,
		logger:       utils.NewServiceLogger(logger, "print-handler"),
	}
}

// RegisterRoutes registers print routes
func (h *PrintHandler) RegisterRoutes(router *gin.RouterGroup) {
	printerGroup := router.Group("/printer")
	{
		printerGroup.GET("/status", h.GetStatus)
		printerGroup.POST("/lines", h.PrintLines)
		printerGroup.POST("/receipt", h.PrintReceipt)
		printerGroup.POST("/qr", h.PrintQR)
		printerGroup.POST("/feed", h.Feed)
		printerGroup.POST("/cut", h.Cut)
		printerGroup.POST("/drawer", h.OpenDrawer)
		printerGroup.POST("/raw", h.WriteRaw)
		printerGroup.POST("/demo", h.PrintDemo)
	}
}

// GetStatus returns the printer session status
func (h *PrintHandler) GetStatus(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Printer status retrieved", h.printService.Status())
}

// PrintLines prints a list of styled lines
func (h *PrintHandler) PrintLines(c *gin.Context) {
	var req service.PrintLinesRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.printService.PrintLines(c.Request.Context(), &req)
	if err != nil {
		h.jobError(c, "Failed to print lines", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Lines printed", result)
}

// PrintReceipt prints a receipt and returns its total
func (h *PrintHandler) PrintReceipt(c *gin.Context) {
	var req service.ReceiptRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.printService.PrintReceipt(c.Request.Context(), &req)
	if err != nil {
		h.jobError(c, "Failed to print receipt", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Receipt printed", result)
}

// PrintQR prints a QR code
func (h *PrintHandler) PrintQR(c *gin.Context) {
	var req service.QRRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.printService.PrintQR(c.Request.Context(), &req)
	if err != nil {
		h.jobError(c, "Failed to print QR code", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "QR code printed", result)
}

// Feed advances the paper
func (h *PrintHandler) Feed(c *gin.Context) {
	var req service.FeedRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.printService.Feed(c.Request.Context(), &req)
	if err != nil {
		h.jobError(c, "Failed to feed paper", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Paper fed", result)
}

// Cut cuts the paper. An empty body means a full cut.
func (h *PrintHandler) Cut(c *gin.Context) {
	var req service.CutRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	result, err := h.printService.Cut(c.Request.Context(), &req)
	if err != nil {
		h.jobError(c, "Failed to cut paper", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Paper cut", result)
}

// OpenDrawer pulses the cash drawer. An empty body uses pin 2.
func (h *PrintHandler) OpenDrawer(c *gin.Context) {
	var req service.DrawerRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	result, err := h.printService.OpenDrawer(c.Request.Context(), &req)
	if err != nil {
		h.jobError(c, "Failed to open drawer", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Drawer opened", result)
}

// WriteRaw sends base64 encoded ESC/POS bytes unchanged
func (h *PrintHandler) WriteRaw(c *gin.Context) {
	var req service.RawRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.printService.WriteRaw(c.Request.Context(), &req, h.maxRawBytes)
	if err != nil {
		h.jobError(c, "Failed to write raw data", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Raw data written", result)
}

// PrintDemo prints the sample receipt
func (h *PrintHandler) PrintDemo(c *gin.Context) {
	result, err := h.printService.PrintDemo(c.Request.Context())
	if err != nil {
		h.jobError(c, "Failed to print demo", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Demo printed", result)
}

// bindJSON decodes the body into obj. Validation failures are reported
// per field.
func bindJSON(c *gin.Context, obj interface{}) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make(map[string]string, len(validationErrs))
		for _, fe := range validationErrs {
			fields[fe.Namespace()] = fe.Tag()
		}
		utils.ValidationErrorResponse(c, fields)
		return false
	}

	utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
	return false
}

func (h *PrintHandler) jobError(c *gin.Context, message string, err error) {
	statusCode := errorStatus(err)

	var jobID string
	var jobErr *service.JobError
	if errors.As(err, &jobErr) {
		jobID = jobErr.JobID
	}

	fields := []zap.Field{zap.Error(err), zap.Int("status", statusCode), zap.String("job_id", jobID)}
	if statusCode >= http.StatusInternalServerError {
		h.logger.Error(message, fields...)
	} else {
		h.logger.Warn(message, fields...)
	}
	utils.JobErrorResponse(c, statusCode, message, jobID, err)
}

// errorStatus maps printer error kinds to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, printer.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, printer.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, printer.ErrResourceExhausted):
		return http.StatusServiceUnavailable
	case errors.Is(err, printer.ErrFlushTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, printer.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
