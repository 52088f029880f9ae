package middleware

// identity.go keeps the request principal in the Echo context.  The
// principal is resolved once by JWTAuth; everything downstream reads it
// from here.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotel-room-reservation/internal/model"
)

const principalKey = "principal"

func setPrincipal(c echo.Context, p model.Principal) {
    c.Set(principalKey, p)
    c.Set("user_id", p.UserID)
    c.Set("role", p.Role)
}

// PrincipalFrom returns the authenticated caller, if any.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
    p, ok := c.Get(principalKey).(model.Principal)
    return p, ok && p.UserID != ""
}

// currentUserID returns the caller's id or "anon".
func currentUserID(c echo.Context) string {
    if p, ok := PrincipalFrom(c); ok {
        return p.UserID
    }
    return "anon"
}
