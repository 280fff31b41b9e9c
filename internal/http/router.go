package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"auth-api/internal/token"
)

const requestIDHeader = "X-Request-ID"

// NewRouter configura el router de Gin con middlewares y rutas de auth.
func NewRouter(logger *zap.Logger, authH *AuthHandler, tokenServ *token.Service) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: request id, logging, recovery y JSON content-type.
	r.Use(requestIDMiddleware(), zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	auth := r.Group("/api/auth")
	auth.POST("/signup", authH.Signup)
	auth.POST("/signin", authH.Signin)
	auth.GET("/verify-email", authH.VerifyEmail)
	auth.POST("/resend-verification", authH.ResendVerification)
	auth.POST("/oauth", authH.OAuthLogin)
	auth.GET("/me", BearerAuthMiddleware(tokenServ), authH.Me)

	return r
}

// requestIDMiddleware propaga o genera un id de request por respuesta.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString("request_id")),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
