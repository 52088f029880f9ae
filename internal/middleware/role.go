package middleware // middleware provides shared request processing for handlers

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotel-room-reservation/internal/model"
)

// RequireRole returns a middleware function that enforces that the
// authenticated principal has one of the specified roles.  It must run
// after JWTAuth.  A missing principal is 401, a wrong role 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            p, ok := PrincipalFrom(c)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
            }
            if !allowed[p.Role] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}

// RequireAdmin is RequireRole(model.RoleAdmin).
func RequireAdmin() echo.MiddlewareFunc { return RequireRole(model.RoleAdmin) }
