package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskhub/task-api/internal/core/domain"
)

// RequireRole enforces a role allow-list on an already-authenticated request.
// A request with no identity on the context is rejected with 401: that only
// happens when the Auth middleware did not run first, but the check is kept
// so a misordered route can never grant access.
func RequireRole(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxRole).(string)
			if role == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required").SetInternal(domain.ErrUnauthenticated)
			}
			if _, ok := allowed[role]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role").SetInternal(domain.ErrForbidden)
			}
			return next(c)
		}
	}
}
