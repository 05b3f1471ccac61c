package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/you/accountsvc/domain"
)

const genericServerMessage = "something went very wrong!"

// ErrorHandler renders the last error attached to the context. Messages
// of classified errors are returned verbatim; internal and crypto failures
// are replaced by a generic message unless detailed is set.
func ErrorHandler(logger zerolog.Logger, detailed bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr := domain.AsAppError(err)

		if appErr.IsClientFault() {
			logger.Debug().Err(err).Str("kind", string(appErr.Kind)).Str("path", c.Request.URL.Path).Msg("request rejected")
		} else {
			logger.Error().Err(err).Str("kind", string(appErr.Kind)).Str("path", c.Request.URL.Path).Msg("request failed")
		}

		body := gin.H{
			"status":  appErr.StatusText(),
			"message": appErr.Message,
		}
		switch {
		case detailed:
			body["error"] = gin.H{"kind": appErr.Kind, "detail": err.Error()}
		case appErr.Kind == domain.KindInternal || appErr.Kind == domain.KindCrypto:
			body["message"] = genericServerMessage
		}

		c.JSON(appErr.Status, body)
	}
}

// Recovery turns a panic into an internal error for ErrorHandler to render.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		abortWithError(c, domain.NewInternalError(fmt.Errorf("panic: %v", recovered)))
	})
}

// NotFound reports an unknown route.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		abortWithError(c, domain.NewRouteNotFound(c.Request.URL.Path))
	}
}
