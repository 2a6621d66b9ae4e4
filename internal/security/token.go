package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"auth-service/internal/model"
)

type sessionClaims struct {
	jwt.RegisteredClaims
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

// TokenManager issues and verifies session tokens. Each role has its own
// signing key, so a token is only valid under the key of the role it was
// issued for.
type TokenManager struct {
	keys map[model.Role][]byte
	ttl  time.Duration
	now  func() time.Time
}

func NewTokenManager(userSecret string, adminSecret string, ttl time.Duration) (*TokenManager, error) {
	if userSecret == "" || adminSecret == "" {
		return nil, errors.New("token signing secrets are required")
	}
	if userSecret == adminSecret {
		return nil, errors.New("user and admin signing secrets must differ")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}

	return &TokenManager{
		keys: map[model.Role][]byte{
			model.RoleUser:  []byte(userSecret),
			model.RoleAdmin: []byte(adminSecret),
		},
		ttl: ttl,
		now: time.Now,
	}, nil
}

// Issue signs a token for user under the key of role.
func (m *TokenManager) Issue(user model.User, role model.Role) (string, model.AuthClaims, error) {
	key, ok := m.keys[role]
	if !ok {
		return "", model.AuthClaims{}, fmt.Errorf("no signing key for %s", role)
	}
	if user.Role != role {
		return "", model.AuthClaims{}, fmt.Errorf("cannot issue %s token for %s account", role, user.Role)
	}

	now := m.now().UTC().Truncate(time.Second)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Email: user.Email,
		Role:  user.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", model.AuthClaims{}, fmt.Errorf("sign token: %w", err)
	}

	return signed, toAuthClaims(claims), nil
}

// Verify checks token against the key of role. It returns model.ErrTokenExpired,
// model.ErrInvalidToken or model.ErrTokenVerification on failure.
func (m *TokenManager) Verify(token string, role model.Role) (*model.AuthClaims, error) {
	key, ok := m.keys[role]
	if !ok {
		return nil, model.ErrTokenVerification
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, classify(err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.ID == "" || !claims.Role.Valid() {
		return nil, model.ErrInvalidToken
	}

	out := toAuthClaims(*claims)
	return &out, nil
}

// VerifyAny tries every role key. The key that verifies decides the role, and
// the role claim has to agree with it.
func (m *TokenManager) VerifyAny(token string) (*model.AuthClaims, error) {
	var firstErr error
	for _, role := range []model.Role{model.RoleUser, model.RoleAdmin} {
		claims, err := m.Verify(token, role)
		if err == nil {
			if claims.Role != role {
				return nil, model.ErrInvalidToken
			}
			return claims, nil
		}
		if errors.Is(err, model.ErrTokenExpired) {
			return nil, err
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return model.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidClaims),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenNotValidYet):
		return model.ErrInvalidToken
	default:
		return model.ErrTokenVerification
	}
}

func toAuthClaims(c sessionClaims) model.AuthClaims {
	out := model.AuthClaims{
		UserID:  c.Subject,
		Email:   c.Email,
		Role:    c.Role,
		TokenID: c.ID,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time.UTC()
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return out
}
