package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/hotel-room-reservation/internal/middleware"
	"github.com/iliyamo/hotel-room-reservation/internal/service"
)

const requestTimeout = 5 * time.Second

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Sessions *service.SessionService
	Log      zerolog.Logger
}

func NewAuthHandler(s *service.SessionService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{Sessions: s, Log: log.With().Str("handler", "auth").Logger()}
}

// Register: create a Client account.  The caller logs in afterwards.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return badRequest(c, "email/password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Sessions.Register(ctx, req.Email, req.Password, req.FullName)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, userResp{ID: u.ID, Email: u.Email, FullName: u.FullName, CreatedAt: u.CreatedAt})
}

// Login: verify credentials and return a token pair.  Bad credentials are 400.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return badRequest(c, "email/password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	pair, err := h.Sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toTokenResp(pair))
}

// Refresh: redeem a refresh token for a new pair (rotation).  Any invalid,
// expired, revoked or already used token is 401.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	pair, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toTokenResp(pair))
}

// Logout: revoke the given refresh token.  Unknown or already revoked
// tokens still answer 200.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Sessions.Logout(ctx, req.RefreshToken); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// LogoutAll: revoke every refresh token of the caller.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return writeError(c, h.Log, service.ErrUnauthorized)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Sessions.LogoutAll(ctx, p.UserID); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "all sessions revoked"})
}

// Me: the authenticated principal.
func (h *AuthHandler) Me(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return writeError(c, h.Log, service.ErrUnauthorized)
	}
	return c.JSON(http.StatusOK, echo.Map{"userId": p.UserID, "role": p.Role})
}
