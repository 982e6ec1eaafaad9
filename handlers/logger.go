package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cliniq/services/booking"
	"cliniq/utils"
)

// getLogger retrieves a Zap logger from the Gin context or falls back to the
// shared one.
func getLogger(c *gin.Context) *zap.Logger {
	if l, exists := c.Get("logger"); exists {
		if logger, ok := l.(*zap.Logger); ok {
			return logger
		}
	}
	return utils.GetLogger()
}

// respondError maps a booking error to an HTTP status and writes a uniform
// error body. Retryable kinds are flagged so clients know a plain retry may
// succeed.
func respondError(c *gin.Context, err error) {
	var be *booking.Error
	if !errors.As(err, &be) {
		getLogger(c).Error("unclassified error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	status := http.StatusInternalServerError
	switch be.Kind {
	case booking.KindValidation:
		status = http.StatusBadRequest
	case booking.KindConflict, booking.KindCapacityLost:
		status = http.StatusConflict
	case booking.KindTimeout:
		status = http.StatusGatewayTimeout
	case booking.KindAuth:
		status = http.StatusUnauthorized
	case booking.KindGateway:
		status = http.StatusBadGateway
	case booking.KindReconcile:
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		getLogger(c).Error("request failed", zap.String("kind", string(be.Kind)), zap.Error(err))
	}
	c.JSON(status, gin.H{
		"error":     be.Message,
		"kind":      string(be.Kind),
		"retryable": be.Retryable(),
	})
}
