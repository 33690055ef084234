package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kitchendiary/kitchen-diary-api/internal/container"
	handlers "github.com/kitchendiary/kitchen-diary-api/internal/interface/http"
	"github.com/kitchendiary/kitchen-diary-api/internal/interface/middleware"
	"github.com/kitchendiary/kitchen-diary-api/pkg/helpers"
)

// UserModule wires the account routes.
// Public: register, confirm, login, refresh, forgot/reset password.
// Protected: logout, profile read/update, profile photo upload.

type UserModule struct {
	Handler *handlers.UserHandler
	JWT     *helpers.JWTManager
}

func NewUserModule(h *handlers.UserHandler, jwt *helpers.JWTManager) *UserModule {
	return &UserModule{Handler: h, JWT: jwt}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	// Public endpoints with IP-based rate limits
	registerLimiter := middleware.RateLimit(container.GetRedis(), 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	loginLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIP(), nil)
	refreshLimiter := middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByIP(), nil)
	forgotLimiter := middleware.RateLimit(container.GetRedis(), 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	resetLimiter := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/register", registerLimiter, m.Handler.Register)
	rg.GET("/confirm/:code", m.Handler.VerifyAccount)
	rg.POST("/login", loginLimiter, m.Handler.Login)
	rg.POST("/refresh", refreshLimiter, m.Handler.Refresh)
	rg.POST("/forgotpassword", forgotLimiter, m.Handler.ForgotPassword)
	rg.PUT("/resetpassword/:token", resetLimiter, m.Handler.ResetPassword)

	// Protected
	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/logout", m.Handler.Logout)
		auth.GET("/me", m.Handler.GetMe)
		auth.PATCH("/me", m.Handler.UpdateMe)
		auth.PATCH("/me/photo", m.Handler.UpdatePhoto)
	}
}
