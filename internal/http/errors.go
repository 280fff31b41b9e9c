package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"auth-api/internal/apperr"
)

// respondError traduce un error de negocio a la respuesta JSON
// estructurada. Errores no reconocidos se responden como 500 genérico sin
// filtrar detalle interno.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			logger.Error("request failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
		}
		body := gin.H{
			"message": appErr.Message,
			"code":    appErr.Code,
		}
		if len(appErr.Fields) > 0 {
			body["errors"] = appErr.Fields
		}
		c.JSON(appErr.Status, gin.H{"error": body})
		return
	}

	logger.Error("unhandled error", zap.Error(err), zap.String("path", c.Request.URL.Path))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"message": "An error occurred. Please view logs for more details",
		},
	})
}

// bindingError convierte fallos de binding de gin en un error de
// validación con el detalle por campo.
func bindingError(err error) *apperr.Error {
	var fields []apperr.FieldError
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		for _, fe := range vErrs {
			fields = append(fields, apperr.FieldError{
				Message: fmt.Sprintf("field '%s' failed validation on '%s'", fe.Field(), fe.Tag()),
			})
		}
	}
	return apperr.Validation("Invalid request", fields)
}
