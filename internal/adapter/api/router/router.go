package router

import (
	"reviewshop/internal/adapter/api/middleware"

	"github.com/labstack/echo/v4"
)

func Setup(e *echo.Echo, identityMiddleware *middleware.IdentityMiddleware, rateLimiter *middleware.RateLimiter) {
	SetupReviewRouter(e, identityMiddleware, rateLimiter)
	SetupHealthRouter(e)
}
