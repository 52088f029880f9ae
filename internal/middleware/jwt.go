package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotel-room-reservation/internal/model"
)

// Authenticator verifies an access token and resolves the caller.
type Authenticator interface {
    Authenticate(raw string) (model.Principal, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// stores the resolved principal in the request context.  Handlers read it
// with PrincipalFrom; the subject and role are also exposed as "user_id"
// and "role" for the rate limiter and logging.
func JWTAuth(auth Authenticator) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            header := c.Request().Header.Get(echo.HeaderAuthorization)
            raw, ok := bearer(header)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            p, err := auth.Authenticate(raw)
            if err != nil || p.UserID == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            setPrincipal(c, p)
            return next(c)
        }
    }
}

// bearer extracts the token from an Authorization header.  The scheme is
// matched case-insensitively.
func bearer(header string) (string, bool) {
    const prefix = "bearer "
    if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
        return "", false
    }
    raw := strings.TrimSpace(header[len(prefix):])
    return raw, raw != ""
}
