package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/mediguard/internal/handler"
	apperrors "github.com/jwalitptl/mediguard/pkg/errors"
)

// ErrorHandler renders the last error a handler attached with c.Error as
// the standard envelope. Validation failures carry per-field details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Interface("meta", e.Meta).
				Msg("Request error")
		}

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last().Err
		status := apperrors.HTTPStatus(lastErr)

		var verrs validator.ValidationErrors
		if errors.As(lastErr, &verrs) {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponseWithData(
				"validation failed", ValidationErrorsOf(verrs)))
			return
		}

		message := lastErr.Error()
		if status == http.StatusInternalServerError {
			message = "internal server error"
		}
		c.JSON(status, handler.NewErrorResponse(message))
	}
}
