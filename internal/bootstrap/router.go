package bootstrap

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	httpHandler "room-designer/internal/handler/http"
	wsHandler "room-designer/internal/handler/websocket"
	"room-designer/internal/middleware"
)

// Handlers are the HTTP entry points mounted by NewRouter.
type Handlers struct {
	Auth     *httpHandler.AuthHandler
	Designer *httpHandler.DesignerHandler
	WS       *wsHandler.WebSocketHandler
	// Limiter enables per-IP rate limiting when set.
	Limiter middleware.RateLimiter
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(cfg *Config, log *logrus.Logger, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.WithField("panic", recovered).Error("Recovered from panic")
		httpHandler.ErrorResponse(c, http.StatusInternalServerError, "Internal server error")
		c.Abort()
	}))
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware(cfg.CORSAllowedOrigin))
	if h.Limiter != nil {
		router.Use(middleware.RateLimit(h.Limiter, cfg.RateLimitMax, cfg.RateLimitWindow))
	}

	api := router.Group("/api")
	api.GET("/health", httpHandler.Health)
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", h.Auth.Register)
		authRoutes.POST("/login", h.Auth.Login)
	}
	h.Designer.Register(api.Group("/designer", middleware.Auth(cfg.JWTSecret)), middleware.AdminOnly())

	wsRoutes := router.Group("/ws", middleware.Auth(cfg.JWTSecret))
	wsRoutes.GET("/designer", h.WS.HandleConnection)

	router.NoRoute(func(c *gin.Context) {
		httpHandler.ErrorResponse(c, http.StatusNotFound, "Route not found")
	})
	return router
}

// CORSMiddleware allows the configured front-end origin.
func CORSMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggerMiddleware logs one line per request.
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" && c.Query("token") == "" {
			path = path + "?" + c.Request.URL.RawQuery
		}
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})

		switch {
		case errorMessage != "":
			entry.Error(errorMessage)
		case statusCode >= 500:
			entry.Error("Server error")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request handled")
		}
	}
}
