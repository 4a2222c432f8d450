package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"reviewshop/internal/domain/entity"
	"reviewshop/internal/domain/service"
)

// IdentityContextKey is where the resolved identity lives in the echo
// context. Absent key means the request is anonymous.
const IdentityContextKey = "identity"

type IdentityMiddleware struct {
	resolver service.IdentityResolver
}

func NewIdentityMiddleware(resolver service.IdentityResolver) *IdentityMiddleware {
	return &IdentityMiddleware{
		resolver: resolver,
	}
}

// ResolveIdentity resolves the bearer credential on every request. It
// never rejects: a missing or bad credential just leaves the request
// anonymous, and each operation decides whether that is acceptable.
func (m *IdentityMiddleware) ResolveIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		credential := ""
		authHeader := c.Request().Header.Get("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			credential = parts[1]
		}

		identity, err := m.resolver.Resolve(c.Request().Context(), credential)
		if err == nil && identity != nil {
			c.Set(IdentityContextKey, identity)
		}

		return next(c)
	}
}

// IdentityFrom pulls the resolved identity out of the context. Nil when
// the request is anonymous.
func IdentityFrom(c echo.Context) *entity.AuthenticatedIdentity {
	identity, _ := c.Get(IdentityContextKey).(*entity.AuthenticatedIdentity)
	return identity
}
