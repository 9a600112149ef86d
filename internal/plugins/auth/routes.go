package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/ledgerweb/internal/middleware"
)

// RegisterRoutes mounts the auth forms on the gated /auth group and logout
// on the root. The gate sends signed-in users away from the sign-in and
// sign-up pages; the reset pages stay reachable either way.
//
// POST endpoints are rate-limited per IP: 10 per minute for sign-in and
// code verification, 5 for sign-up and code requests.
func RegisterRoutes(e *echo.Echo, g *echo.Group, h *Handler) {
	g.GET("/login", h.LoginForm)
	g.POST("/login", h.Login, middleware.RateLimit(10, time.Minute))
	g.GET("/register", h.RegisterForm)
	g.POST("/register", h.Register, middleware.RateLimit(5, time.Minute))

	g.GET("/forgot-password", h.ForgotPasswordForm)
	g.POST("/forgot-password", h.ForgotPassword, middleware.RateLimit(5, time.Minute))
	g.GET("/verify-code", h.VerifyCodeForm)
	g.POST("/verify-code", h.VerifyCode, middleware.RateLimit(10, time.Minute))
	g.GET("/reset-password", h.ResetPasswordForm)
	g.POST("/reset-password", h.ResetPassword, middleware.RateLimit(5, time.Minute))

	e.POST("/logout", h.Logout)
}
