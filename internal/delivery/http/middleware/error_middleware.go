package middleware

import (
	"errors"
	"net/http"

	"contact-relay-backend/internal/delivery/http/response"
	"contact-relay-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler renders the last error attached with c.Error. The cause of an
// AppError is included in the body only when exposeDetail is true.
func ErrorHandler(logger *zap.Logger, exposeDetail bool) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			detail := ""
			if exposeDetail {
				detail = appErr.Detail()
			}
			response.Error(c, appErr.Code, appErr.Message, detail)
			return
		}

		// Never expose internal error details to clients.
		logger.Error("unhandled request error",
			zap.String("request_id", c.GetString(response.RequestIDKey)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		detail := ""
		if exposeDetail {
			detail = err.Error()
		}
		response.Error(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.", detail)
	}
}

// Recovery turns panics into the standard 500 envelope.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.String("request_id", c.GetString(response.RequestIDKey)),
			zap.Any("panic", recovered),
		)
		response.Error(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.", "")
		c.Abort()
	})
}
