package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"auth-service/internal/config"
	"auth-service/internal/event"
	"auth-service/internal/model"
	"auth-service/internal/security"
	"auth-service/pkg/apierror"
)

// UserStore is the credential store contract. Email uniqueness is enforced
// by the store across both roles; RecordLogin must be a single atomic update.
type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string, role model.Role) (model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u model.User) error
	RecordLogin(ctx context.Context, id string, at time.Time) (model.User, error)
	Update(ctx context.Context, id string, update model.UserUpdate, at time.Time) (model.User, error)
	SetActive(ctx context.Context, id string, active bool, at time.Time) (model.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter model.UserFilter) ([]model.User, error)
	Count(ctx context.Context, filter model.UserFilter) (int, error)
}

// RevocationStore is the token deny-list used when revocation is enabled.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, userID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	CleanExpired(ctx context.Context) (int64, error)
}

type AuthService struct {
	users       UserStore
	hasher      *security.PasswordHasher
	tokens      *security.TokenManager
	events      event.Publisher
	revocations RevocationStore
	adminSecret []byte
	now         func() time.Time
}

func NewAuthService(cfg *config.Config, users UserStore, hasher *security.PasswordHasher, tokens *security.TokenManager, events event.Publisher) *AuthService {
	if events == nil {
		events = event.Discard{}
	}

	return &AuthService{
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
		events:      events,
		adminSecret: []byte(cfg.AdminSecret),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithRevocations turns on the token deny-list for logout and session checks.
func (s *AuthService) WithRevocations(store RevocationStore) *AuthService {
	s.revocations = store
	return s
}

func (s *AuthService) SignupUser(ctx context.Context, req model.UserSignupRequest) (model.AuthResult, error) {
	return s.signup(ctx, req.Name, req.Email, req.Password, model.RoleUser)
}

// SignupAdmin compares adminSecret byte for byte before touching the store.
func (s *AuthService) SignupAdmin(ctx context.Context, req model.AdminSignupRequest) (model.AuthResult, error) {
	if subtle.ConstantTimeCompare([]byte(req.AdminSecret), s.adminSecret) != 1 {
		slog.WarnContext(ctx, "admin signup rejected", "reason", "admin secret mismatch")
		s.publish(event.TypeAdminSignupBlocked, "", event.AccountPayload{
			Email: model.NormalizeEmail(req.Email),
			Role:  model.RoleAdmin.String(),
		})
		return model.AuthResult{}, model.ErrInvalidAdminSecret
	}

	return s.signup(ctx, req.Name, req.Email, req.Password, model.RoleAdmin)
}

func (s *AuthService) signup(ctx context.Context, name string, email string, password string, role model.Role) (model.AuthResult, error) {
	email = model.NormalizeEmail(email)

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return model.AuthResult{}, s.internal(ctx, "signup", "SIGNUP_ERROR", signupFailure(role), err)
	}
	if exists {
		return model.AuthResult{}, model.ErrEmailExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return model.AuthResult{}, s.internal(ctx, "signup", "SIGNUP_ERROR", signupFailure(role), err)
	}

	now := s.now()
	user := model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrEmailExists) {
			return model.AuthResult{}, model.ErrEmailExists
		}
		return model.AuthResult{}, s.internal(ctx, "signup", "SIGNUP_ERROR", signupFailure(role), err)
	}

	token, _, err := s.tokens.Issue(user, role)
	if err != nil {
		return model.AuthResult{}, s.internal(ctx, "signup", "SIGNUP_ERROR", signupFailure(role), err)
	}

	eventType := event.TypeUserRegistered
	if role == model.RoleAdmin {
		eventType = event.TypeAdminRegistered
	}
	s.publish(eventType, user.ID, event.AccountPayload{UserID: user.ID, Email: user.Email, Role: role.String()})
	slog.InfoContext(ctx, "account registered", "user_id", user.ID, "role", role.String())

	return model.AuthResult{User: user.Public(), Token: token}, nil
}

func (s *AuthService) LoginUser(ctx context.Context, req model.LoginRequest) (model.AuthResult, error) {
	return s.login(ctx, req.Email, req.Password, model.RoleUser)
}

func (s *AuthService) LoginAdmin(ctx context.Context, req model.LoginRequest) (model.AuthResult, error) {
	return s.login(ctx, req.Email, req.Password, model.RoleAdmin)
}

// login answers "no such account" and "wrong password" identically, including
// a bcrypt comparison on the unknown-account path.
func (s *AuthService) login(ctx context.Context, email string, password string, role model.Role) (model.AuthResult, error) {
	email = model.NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email, role)
	if errors.Is(err, model.ErrUserNotFound) {
		s.hasher.Burn(password)
		return model.AuthResult{}, s.rejectLogin(ctx, email, role, "", "unknown account")
	}
	if err != nil {
		return model.AuthResult{}, s.internal(ctx, "login", "LOGIN_ERROR", "Login failed", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return model.AuthResult{}, s.internal(ctx, "login", "LOGIN_ERROR", "Login failed", err)
	}
	if !ok {
		return model.AuthResult{}, s.rejectLogin(ctx, email, role, user.ID, "password mismatch")
	}

	if !user.IsActive {
		s.publish(event.TypeLoginFailed, user.ID, event.AccountPayload{
			UserID: user.ID, Email: email, Role: role.String(), Reason: "inactive",
		})
		slog.WarnContext(ctx, "login refused for inactive account", "user_id", user.ID, "role", role.String())
		return model.AuthResult{}, model.ErrAccountInactive
	}

	user, err = s.users.RecordLogin(ctx, user.ID, s.now())
	if errors.Is(err, model.ErrUserNotFound) {
		return model.AuthResult{}, s.rejectLogin(ctx, email, role, "", "account removed during login")
	}
	if err != nil {
		return model.AuthResult{}, s.internal(ctx, "login", "LOGIN_ERROR", "Login failed", err)
	}

	token, _, err := s.tokens.Issue(user, role)
	if err != nil {
		return model.AuthResult{}, s.internal(ctx, "login", "LOGIN_ERROR", "Login failed", err)
	}

	s.publish(event.TypeLoginSucceeded, user.ID, event.AccountPayload{UserID: user.ID, Email: user.Email, Role: role.String()})
	slog.InfoContext(ctx, "account logged in", "user_id", user.ID, "role", role.String(), "login_count", user.LoginCount)

	return model.AuthResult{User: user.Public(), Token: token}, nil
}

func (s *AuthService) rejectLogin(ctx context.Context, email string, role model.Role, userID string, reason string) error {
	s.publish(event.TypeLoginFailed, userID, event.AccountPayload{UserID: userID, Email: email, Role: role.String()})
	slog.WarnContext(ctx, "login rejected", "role", role.String(), "reason", reason)
	return model.ErrInvalidCredentials
}

// ValidateSession verifies the token under whichever role key signed it and
// then re-reads the account, so deleted or deactivated accounts fail even
// while the token itself is still valid.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (model.PublicUser, error) {
	if token == "" {
		return model.PublicUser{}, model.ErrMissingToken
	}

	claims, err := s.tokens.VerifyAny(token)
	if err != nil {
		return model.PublicUser{}, err
	}

	revoked, err := s.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return model.PublicUser{}, s.internal(ctx, "validate session", "SESSION_ERROR", "Session validation failed", err)
	}
	if revoked {
		return model.PublicUser{}, model.ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.PublicUser{}, model.ErrInvalidToken
	}
	if err != nil {
		return model.PublicUser{}, s.internal(ctx, "validate session", "SESSION_ERROR", "Session validation failed", err)
	}

	if user.Role != claims.Role {
		return model.PublicUser{}, model.ErrInvalidToken
	}
	if !user.IsActive {
		return model.PublicUser{}, model.ErrUserInactive
	}

	return user.Public(), nil
}

// IsRevoked reports false whenever the deny-list is disabled.
func (s *AuthService) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if s.revocations == nil || tokenID == "" {
		return false, nil
	}
	return s.revocations.IsRevoked(ctx, tokenID)
}

// Logout never fails from the caller's point of view. Token failures are the
// expected case and are logged at info; anything else is logged as an error.
func (s *AuthService) Logout(ctx context.Context, token string) {
	if token == "" {
		slog.InfoContext(ctx, "logout without token")
		return
	}

	claims, err := s.tokens.VerifyAny(token)
	if err != nil {
		if isTokenFailure(err) {
			slog.InfoContext(ctx, "logout with unverifiable token", "reason", err.Error())
		} else {
			slog.ErrorContext(ctx, "logout token check failed", "error", err)
		}
		return
	}

	if s.revocations != nil {
		if err := s.revocations.Revoke(ctx, claims.TokenID, claims.UserID, claims.ExpiresAt); err != nil {
			slog.ErrorContext(ctx, "revoke token on logout", "user_id", claims.UserID, "error", err)
		}
	}

	s.publish(event.TypeLogout, claims.UserID, event.AccountPayload{
		UserID: claims.UserID, Email: claims.Email, Role: claims.Role.String(),
	})
	slog.InfoContext(ctx, "account logged out", "user_id", claims.UserID, "role", claims.Role.String())
}

// RunRevocationCleanup purges expired deny-list rows until ctx is done.
func (s *AuthService) RunRevocationCleanup(ctx context.Context, interval time.Duration) {
	if s.revocations == nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.revocations.CleanExpired(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "clean expired revocations", "error", err)
				continue
			}
			if removed > 0 {
				slog.InfoContext(ctx, "expired revocations removed", "count", removed)
			}
		}
	}
}

func (s *AuthService) publish(t event.Type, actorID string, payload event.AccountPayload) {
	s.events.Publish(event.Event{Type: t, ActorID: actorID, Payload: payload})
}

func (s *AuthService) internal(ctx context.Context, op string, code string, message string, err error) error {
	slog.ErrorContext(ctx, op+" failed", "code", code, "error", err)
	return apierror.Internal(code, message)
}

func signupFailure(role model.Role) string {
	if role == model.RoleAdmin {
		return "Failed to register admin"
	}
	return "Failed to register user"
}

func isTokenFailure(err error) bool {
	return errors.Is(err, model.ErrInvalidToken) ||
		errors.Is(err, model.ErrTokenExpired) ||
		errors.Is(err, model.ErrTokenVerification)
}
