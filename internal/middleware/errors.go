package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tickerpulse/tickerpulse/internal/domain/dto"
	"github.com/tickerpulse/tickerpulse/internal/logger"
)

// ErrorHandler is a Gin middleware that converts errors collected on the
// context (via c.Error) into a standardized JSON error response.
//
// Behavior:
//   - Runs the rest of the chain first.
//   - If any handler attached errors and no response was written yet,
//     responds with 500 and the last error's message.
//
// Usage:
//
//	router.Use(middleware.ErrorHandler)
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}

	last := c.Errors.Last()
	logger.L().Error().Err(last.Err).Str("path", c.Request.URL.Path).Msg("request failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse("internal server error", last.Err))
}

// AbortWithError aborts the request with the given status code and a
// standardized error body, and records the error on the context for logging.
func AbortWithError(c *gin.Context, status int, message string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(message, err))
}
