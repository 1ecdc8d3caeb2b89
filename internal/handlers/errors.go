package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-bakery-orderflow/internal/errorx"
)

// writeError maps an error kind to a status code and the {"error","detail"} body.
// Unclassified errors are logged and reported without their message.
func writeError(c *gin.Context, err error) {
	var ve *errorx.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "detail": ve.Error(), "fields": ve.Fields})
	case errors.Is(err, errorx.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "detail": err.Error()})
	case errors.Is(err, errorx.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "detail": err.Error()})
	case errors.Is(err, errorx.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "detail": err.Error()})
	case errors.Is(err, errorx.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "detail": err.Error()})
	case errors.Is(err, errorx.ErrGateway):
		loggerFrom(c).Warn("payment gateway error", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment_gateway_error", "detail": err.Error()})
	case errors.Is(err, errorx.ErrConfiguration):
		loggerFrom(c).Error("service misconfigured", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service_misconfigured", "detail": err.Error()})
	default:
		loggerFrom(c).Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "detail": "internal server error"})
	}
}
