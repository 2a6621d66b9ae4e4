package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"auth-service/internal/model"
	"auth-service/pkg/apierror"
)

const bearerPrefix = "Bearer "

type tokenVerifier interface {
	Verify(token string, role model.Role) (*model.AuthClaims, error)
	VerifyAny(token string) (*model.AuthClaims, error)
}

type revocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// ErrorWriter renders a gate failure in the API envelope.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

type contextKey string

const authClaimsContextKey contextKey = "auth_claims"

// AuthMiddleware is the access-control gate. It only looks at the token (and
// the deny-list when one is configured); it never reads the credential store.
type AuthMiddleware struct {
	tokens      tokenVerifier
	revocations revocationChecker
	writeError  ErrorWriter
}

func NewAuthMiddleware(tokens tokenVerifier, revocations revocationChecker, writeError ErrorWriter) *AuthMiddleware {
	if writeError == nil {
		writeError = writeGateError
	}
	return &AuthMiddleware{tokens: tokens, revocations: revocations, writeError: writeError}
}

// Require rejects requests without a valid token. With requireAdmin the token
// may be signed by either role key, and a verified non-admin token is
// Forbidden rather than invalid. Without it only the user key is accepted.
func (m *AuthMiddleware) Require(requireAdmin bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := m.authenticate(r, requireAdmin)
			if err != nil {
				m.writeError(w, r, err)
				return
			}

			if requireAdmin && claims.Role != model.RoleAdmin {
				m.writeError(w, r, model.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return m.Require(false)(next)
}

func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.Require(true)(next)
}

// Optional attaches claims when a valid token is present and otherwise lets the
// request through unauthenticated.
func (m *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			if claims, err := m.authenticate(r, true); err == nil {
				r = r.WithContext(WithClaims(r.Context(), claims))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (m *AuthMiddleware) authenticate(r *http.Request, anyRole bool) (*model.AuthClaims, error) {
	token, err := BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}

	var claims *model.AuthClaims
	if anyRole {
		claims, err = m.tokens.VerifyAny(token)
	} else {
		claims, err = m.tokens.Verify(token, model.RoleUser)
	}
	if err != nil {
		return nil, err
	}

	if m.revocations != nil {
		revoked, err := m.revocations.IsRevoked(r.Context(), claims.TokenID)
		if err != nil {
			return nil, apierror.Internal("SESSION_ERROR", "Session validation failed")
		}
		if revoked {
			return nil, model.ErrInvalidToken
		}
	}

	return claims, nil
}

// BearerToken extracts the credential from an Authorization header. The scheme
// must be the literal "Bearer " followed by a non-empty token.
func BearerToken(header string) (string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", model.ErrMissingToken
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", model.ErrMissingToken
	}
	return token, nil
}

func WithClaims(ctx context.Context, claims *model.AuthClaims) context.Context {
	return context.WithValue(ctx, authClaimsContextKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*model.AuthClaims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(*model.AuthClaims)
	return claims, ok && claims != nil
}

// writeGateError is the fallback when no ErrorWriter is supplied.
func writeGateError(w http.ResponseWriter, _ *http.Request, err error) {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		writeEnvelopeError(w, apiErr.HTTPStatus, apiErr.Code, apiErr.Message)
		return
	}

	status, code := http.StatusUnauthorized, "UNAUTHORIZED"
	switch {
	case errors.Is(err, model.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, model.ErrMissingToken):
		code = "MISSING_TOKEN"
	case errors.Is(err, model.ErrTokenExpired):
		code = "TOKEN_EXPIRED"
	case errors.Is(err, model.ErrInvalidToken):
		code = "INVALID_TOKEN"
	case errors.Is(err, model.ErrTokenVerification):
		code = "TOKEN_VERIFICATION_ERROR"
	}

	writeEnvelopeError(w, status, code, err.Error())
}
