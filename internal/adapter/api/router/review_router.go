package router

import (
	"reviewshop/internal/adapter/api/handler"
	"reviewshop/internal/adapter/api/middleware"

	"github.com/labstack/echo/v4"
)

func SetupReviewRouter(e *echo.Echo, identityMiddleware *middleware.IdentityMiddleware, rateLimiter *middleware.RateLimiter) {
	reviewHandler := handler.GetReviewHandler()

	// Identity is resolved on every route; the operations themselves
	// decide whether anonymous callers are allowed.
	reviews := e.Group("/v1", identityMiddleware.ResolveIdentity)

	reviews.GET("/products/:productId/reviews", reviewHandler.GetReviews)

	// Write routes are throttled per identity.
	writes := reviews.Group("", rateLimiter.RateLimitMiddleware())
	writes.POST("/products/:productId/reviews", reviewHandler.CreateReview)
	writes.PATCH("/reviews", reviewHandler.UpdateReview)
	writes.POST("/reviews/like", reviewHandler.LikeReview)
}
