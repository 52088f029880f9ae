package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/hotel-room-reservation/internal/metrics"
	"github.com/iliyamo/hotel-room-reservation/internal/model"
	"github.com/iliyamo/hotel-room-reservation/internal/repository"
	"github.com/iliyamo/hotel-room-reservation/internal/utils"
)

const minPasswordLen = 6

// SessionConfig holds the token parameters.
type SessionConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

// SessionDeps are the collaborators of a SessionService.
type SessionDeps struct {
	Config SessionConfig
	Users  IdentityStore
	Tokens TokenStore
	Clock  Clock
	IDs    IDGenerator
	Log    zerolog.Logger
}

// TokenPair is what a successful login or refresh hands back.  Scope is
// the role the access token is scoped to.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int
	Scope        string
	UserID       string
}

// SessionService issues, rotates and revokes credentials.
type SessionService struct {
	cfg    SessionConfig
	users  IdentityStore
	tokens TokenStore
	now    Clock
	newID  IDGenerator
	log    zerolog.Logger
}

func NewSessionService(d SessionDeps) *SessionService {
	s := &SessionService{
		cfg:    d.Config,
		users:  d.Users,
		tokens: d.Tokens,
		now:    d.Clock,
		newID:  d.IDs,
		log:    d.Log.With().Str("service", "session").Logger(),
	}
	if s.now == nil {
		s.now = SystemClock
	}
	if s.newID == nil {
		s.newID = NewUUID
	}
	if s.cfg.AccessTTL <= 0 {
		s.cfg.AccessTTL = time.Hour
	}
	if s.cfg.RefreshTTL <= 0 {
		s.cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return s
}

// IssueAccessToken signs an access token for one user and one role.
// Signing failures are returned as is; there is no weaker fallback.
func (s *SessionService) IssueAccessToken(userID, role string) (utils.AccessToken, error) {
	return utils.NewAccessToken(s.cfg.Secret, s.cfg.Issuer, userID, role, s.cfg.AccessTTL, s.now())
}

// IssueRefreshToken generates a new refresh token for userID.  It returns
// the raw value for the client and the record to persist; nothing is
// stored here.
func (s *SessionService) IssueRefreshToken(userID string) (string, model.RefreshToken, error) {
	now := s.now()
	rt, err := utils.NewRefreshToken(s.cfg.RefreshTTL, now)
	if err != nil {
		return "", model.RefreshToken{}, err
	}
	return rt.Raw, model.RefreshToken{
		ID:        s.newID(),
		UserID:    userID,
		TokenHash: utils.HashRefreshRaw(rt.Raw),
		Status:    model.TokenActive,
		CreatedAt: now,
		ExpiresAt: rt.Exp,
	}, nil
}

// Authenticate verifies an access token and resolves the caller.
func (s *SessionService) Authenticate(raw string) (model.Principal, error) {
	claims, err := utils.ParseAccessToken(s.cfg.Secret, s.cfg.Issuer, raw, s.now())
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return model.Principal{UserID: claims.Subject, Role: claims.Role}, nil
}

// Login verifies the password and issues a token pair.  The refresh token
// is stored before it is returned.
func (s *SessionService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	log := s.log.With().Str("operation", "login").Logger()

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		utils.BurnPasswordCheck(password)
		log.Info().Str("error_kind", ErrorKind(ErrInvalidCredentials)).Msg("unknown email")
		return TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		log.Error().Err(err).Msg("load user failed")
		return TokenPair{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) || !u.IsActive {
		log.Info().Str("user_id", u.ID).Str("error_kind", ErrorKind(ErrInvalidCredentials)).Msg("login rejected")
		return TokenPair{}, ErrInvalidCredentials
	}

	pair, rec, err := s.issuePair(ctx, u.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", u.ID).Msg("issue tokens failed")
		return TokenPair{}, err
	}
	if err := s.tokens.Store(ctx, rec); err != nil {
		log.Error().Err(err).Str("user_id", u.ID).Msg("store refresh token failed")
		return TokenPair{}, err
	}
	log.Info().Str("user_id", u.ID).Str("role", pair.Scope).Msg("login succeeded")
	return pair, nil
}

// Refresh redeems a refresh token: the old token is revoked and a new one
// stored in one atomic step, then a fresh access token with the user's
// current role is returned.  A token can be redeemed once; a replay, an
// expired or an unknown token yields ErrUnauthorized.
func (s *SessionService) Refresh(ctx context.Context, raw string) (TokenPair, error) {
	log := s.log.With().Str("operation", "refresh").Logger()
	pair, err := s.refresh(ctx, raw)
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrUnauthorized) {
			outcome = "rejected"
			log.Info().Str("error_kind", ErrorKind(err)).Msg("refresh rejected")
		} else {
			log.Error().Err(err).Msg("refresh failed")
		}
		metrics.RefreshOutcomes.WithLabelValues(outcome).Inc()
		return TokenPair{}, err
	}
	metrics.RefreshOutcomes.WithLabelValues("rotated").Inc()
	log.Info().Str("user_id", pair.UserID).Str("role", pair.Scope).Msg("refresh token rotated")
	return pair, nil
}

func (s *SessionService) refresh(ctx context.Context, raw string) (TokenPair, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TokenPair{}, fmt.Errorf("%w: refresh token required", ErrUnauthorized)
	}
	hash := utils.HashRefreshRaw(raw)
	now := s.now()

	old, err := s.tokens.GetByHash(ctx, hash)
	if err != nil {
		return TokenPair{}, notFound(err, fmt.Errorf("%w: unknown refresh token", ErrUnauthorized))
	}
	if st := old.State(now); st != model.TokenStateActive {
		return TokenPair{}, fmt.Errorf("%w: refresh token %s", ErrUnauthorized, strings.ToLower(string(st)))
	}
	u, err := s.users.GetByID(ctx, old.UserID)
	if err != nil {
		return TokenPair{}, notFound(err, fmt.Errorf("%w: unknown user", ErrUnauthorized))
	}
	if !u.IsActive {
		return TokenPair{}, fmt.Errorf("%w: account disabled", ErrUnauthorized)
	}

	// Sign before rotating so a signing failure leaves the old token usable.
	pair, next, err := s.issuePair(ctx, u.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.tokens.Rotate(ctx, hash, next, now); err != nil {
		if errors.Is(err, repository.ErrTokenInactive) {
			return TokenPair{}, fmt.Errorf("%w: refresh token already used", ErrUnauthorized)
		}
		return TokenPair{}, err
	}
	return pair, nil
}

// Logout revokes a refresh token.  Unknown and already revoked tokens are
// not an error.
func (s *SessionService) Logout(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if err := s.tokens.Revoke(ctx, utils.HashRefreshRaw(raw), s.now()); err != nil {
		s.log.Error().Err(err).Str("operation", "logout").Msg("revoke failed")
		return err
	}
	return nil
}

// LogoutAll revokes every active refresh token of a user.
func (s *SessionService) LogoutAll(ctx context.Context, userID string) error {
	if err := s.tokens.RevokeAllForUser(ctx, userID, s.now()); err != nil {
		s.log.Error().Err(err).Str("operation", "logout_all").Str("user_id", userID).Msg("revoke failed")
		return err
	}
	s.log.Info().Str("operation", "logout_all").Str("user_id", userID).Msg("all sessions revoked")
	return nil
}

// Register creates an active Client account.
func (s *SessionService) Register(ctx context.Context, email, password, fullName string) (model.User, error) {
	return s.createUser(ctx, email, password, fullName, []string{model.RoleClient})
}

// SeedAdmin creates an administrator unless the email is already taken.
func (s *SessionService) SeedAdmin(ctx context.Context, email, password string) error {
	_, err := s.createUser(ctx, email, password, "Administrator", []string{model.RoleAdmin})
	if errors.Is(err, ErrEmailTaken) {
		s.log.Debug().Str("email", email).Msg("admin already present")
		return nil
	}
	return err
}

func (s *SessionService) createUser(ctx context.Context, email, password, fullName string, roles []string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return model.User{}, fmt.Errorf("%w: email", ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return model.User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{
		ID:           s.newID(),
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, u, roles); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, fmt.Errorf("%w: %s", ErrEmailTaken, email)
		}
		s.log.Error().Err(err).Str("operation", "create_user").Msg("create user failed")
		return model.User{}, err
	}
	s.log.Info().Str("operation", "create_user").Str("user_id", u.ID).Strs("roles", roles).Msg("user created")
	return u, nil
}

// issuePair reads the user's current roles and builds both tokens.
func (s *SessionService) issuePair(ctx context.Context, userID string) (TokenPair, model.RefreshToken, error) {
	roles, err := s.users.GetRoles(ctx, userID)
	if err != nil {
		return TokenPair{}, model.RefreshToken{}, err
	}
	role := model.PrimaryRole(roles)
	access, err := s.IssueAccessToken(userID, role)
	if err != nil {
		return TokenPair{}, model.RefreshToken{}, err
	}
	raw, rec, err := s.IssueRefreshToken(userID)
	if err != nil {
		return TokenPair{}, model.RefreshToken{}, err
	}
	return TokenPair{
		AccessToken:  access.Token,
		RefreshToken: raw,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.cfg.AccessTTL / time.Second),
		Scope:        role,
		UserID:       userID,
	}, rec, nil
}
