// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"hubauth/config"
	"hubauth/internal/delivery/api/middleware"
	"hubauth/internal/delivery/api/router/handler"
)

type RouterParams struct {
	fx.In

	AccountHandler *handler.AccountHandler
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter `optional:"true"`
	MetricsHandler http.Handler             `name:"metrics" optional:"true"`
	Config         *config.Config
	Logger         *slog.Logger
}

// router holds all the handlers that need to be registered.
type router struct {
	accountHandler *handler.AccountHandler
	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimiter
	metricsHandler http.Handler
	config         *config.Config
	logger         *slog.Logger
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		accountHandler: params.AccountHandler,
		authMiddleware: params.AuthMiddleware,
		rateLimiter:    params.RateLimiter,
		metricsHandler: params.MetricsHandler,
		config:         params.Config,
		logger:         params.Logger,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)
	if r.metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(r.metricsHandler))
	}

	authGroup := e.Group("/auth")

	// Credential endpoints reachable without a token are throttled per client.
	var throttled []echo.MiddlewareFunc
	if r.rateLimiter != nil {
		throttled = append(throttled, r.rateLimiter.Limit)
	}
	{
		authGroup.POST("/register", r.accountHandler.Register, throttled...)
		authGroup.POST("/login", r.accountHandler.Login, throttled...)
		authGroup.POST("/forgot-password", r.accountHandler.ForgotPassword, throttled...)
		authGroup.POST("/reset-password", r.accountHandler.ResetPassword, throttled...)
	}

	if r.config.Auth != nil && r.config.Auth.AllowUnverifiedReset {
		r.logger.Warn("Unverified password reset is enabled: anyone who knows an email can set its password",
			slog.String("route", "/auth/reset-password/unverified"),
		)
		authGroup.POST("/reset-password/unverified", r.accountHandler.ResetPasswordUnverified, throttled...)
	}

	// Bearer token required
	{
		authGroup.GET("/me", r.accountHandler.Me, r.authMiddleware.Authenticate)
		authGroup.POST("/change-password", r.accountHandler.ChangePassword, r.authMiddleware.Authenticate)
	}
}
