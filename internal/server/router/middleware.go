package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/server/handlers"
	"github.com/nicefood/prodtrack/internal/service/auth"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user", handlers.CurrentSession(c).Username))
	}
}

// basicAuthMiddleware checks HTTP Basic credentials on every request and
// stores the resulting session.
func basicAuthMiddleware(authn *auth.Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="prodtrack"`)
			handlers.RespondError(c, logger, auth.ErrUserNotFound)
			return
		}

		s, err := authn.Authenticate(c.Request.Context(), username, password)
		if err != nil {
			c.Header("WWW-Authenticate", `Basic realm="prodtrack"`)
			handlers.RespondError(c, logger, err)
			return
		}
		handlers.SetSession(c, s)
		c.Next()
	}
}

func adminOnly(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := handlers.CurrentSession(c).RequireAdmin(); err != nil {
			handlers.RespondError(c, logger, err)
			return
		}
		c.Next()
	}
}

// sectionGate keeps non-admin sessions inside their own section.
func sectionGate(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := handlers.CurrentSession(c).RequireSection(c.Param("section")); err != nil {
			handlers.RespondError(c, logger, err)
			return
		}
		c.Next()
	}
}
