package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"brgykonek/internal/domain"
	"brgykonek/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	authH *AuthHandler,
	userH *UserHandler,
	deviceH *DeviceHandler,
	jwtSvc *service.JWTService,
) *gin.Engine {
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	requireAuth := JWTAuthMiddleware(jwtSvc)

	auth := r.Group("/api/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.Login)
	auth.POST("/request-otp", authH.RequestOTP)
	auth.POST("/verify-otp", authH.VerifyOTP)
	auth.POST("/reset-password", authH.ResetPassword)

	session := auth.Group("", requireAuth)
	session.GET("/me", userH.Me)
	session.PUT("/update-profile", userH.UpdateProfile)
	session.PUT("/change-password", userH.ChangePassword)
	session.POST("/logout", authH.Logout)
	session.POST("/logout-all", authH.LogoutAll)
	session.GET("/devices", deviceH.List)
	session.DELETE("/devices/:deviceId", deviceH.Revoke)

	users := r.Group("/api/users", requireAuth, RequireRole(domain.RoleStaff, domain.RoleAdmin))
	users.PUT("/:id/approve", userH.Approve)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
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
