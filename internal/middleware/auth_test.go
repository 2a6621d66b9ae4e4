package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auth-service/internal/model"
	"auth-service/internal/security"
)

type stubRevocations struct {
	revoked map[string]bool
	err     error
}

func (s stubRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	return s.revoked[tokenID], s.err
}

func gateFixture(t *testing.T) (*security.TokenManager, string, string) {
	t.Helper()

	tokens, err := security.NewTokenManager("user-key", "admin-key", time.Hour)
	require.NoError(t, err)

	userToken, _, err := tokens.Issue(model.User{ID: "u-1", Email: "a@x.com", Role: model.RoleUser}, model.RoleUser)
	require.NoError(t, err)
	adminToken, _, err := tokens.Issue(model.User{ID: "a-1", Email: "root@x.com", Role: model.RoleAdmin}, model.RoleAdmin)
	require.NoError(t, err)

	return tokens, userToken, adminToken
}

func claimsEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(claims.UserID + "|" + claims.Role.String()))
	})
}

func serve(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.NotNil(t, body.Error)
	return body.Error.Code
}

func TestRequireUserGate(t *testing.T) {
	tokens, userToken, adminToken := gateFixture(t)
	gate := NewAuthMiddleware(tokens, nil, nil)
	h := gate.RequireUser(claimsEcho())

	rec := serve(h, "Bearer "+userToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "u-1|user", rec.Body.String())

	for _, header := range []string{"", "Basic abc", "bearer " + userToken, "Bearer", "Bearer   ", userToken} {
		rec = serve(h, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
		assert.Equal(t, "MISSING_TOKEN", errorCode(t, rec), "header %q", header)
	}

	rec = serve(h, "Bearer "+adminToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdminGate(t *testing.T) {
	tokens, userToken, adminToken := gateFixture(t)
	gate := NewAuthMiddleware(tokens, nil, nil)
	h := gate.RequireAdmin(claimsEcho())

	rec := serve(h, "Bearer "+adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "a-1|admin", rec.Body.String())

	rec = serve(h, "Bearer "+userToken)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "FORBIDDEN", errorCode(t, rec))

	rec = serve(h, "Bearer not.a.token")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "INVALID_TOKEN", errorCode(t, rec))
}

func TestFallbackWriterKeepsTokenFailuresApart(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{model.ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{model.ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN"},
		{model.ErrTokenVerification, http.StatusUnauthorized, "TOKEN_VERIFICATION_ERROR"},
		{model.ErrMissingToken, http.StatusUnauthorized, "MISSING_TOKEN"},
		{model.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{errors.New("something else"), http.StatusUnauthorized, "UNAUTHORIZED"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeGateError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			require.Equal(t, tt.status, rec.Code)
			require.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestGateUsesErrorWriter(t *testing.T) {
	tokens, _, _ := gateFixture(t)

	var seen error
	gate := NewAuthMiddleware(tokens, nil, func(w http.ResponseWriter, _ *http.Request, err error) {
		seen = err
		w.WriteHeader(http.StatusTeapot)
	})

	rec := serve(gate.RequireUser(claimsEcho()), "Bearer garbage")
	require.Equal(t, http.StatusTeapot, rec.Code)
	require.ErrorIs(t, seen, model.ErrInvalidToken)
}

func TestGateHonorsRevocations(t *testing.T) {
	tokens, userToken, _ := gateFixture(t)
	claims, err := tokens.Verify(userToken, model.RoleUser)
	require.NoError(t, err)

	var seen error
	capture := func(w http.ResponseWriter, _ *http.Request, err error) {
		seen = err
		w.WriteHeader(http.StatusUnauthorized)
	}

	gate := NewAuthMiddleware(tokens, stubRevocations{revoked: map[string]bool{claims.TokenID: true}}, capture)
	rec := serve(gate.RequireUser(claimsEcho()), "Bearer "+userToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.ErrorIs(t, seen, model.ErrInvalidToken)

	gate = NewAuthMiddleware(tokens, stubRevocations{err: errors.New("db down")}, capture)
	serve(gate.RequireUser(claimsEcho()), "Bearer "+userToken)
	require.Error(t, seen)
	require.NotErrorIs(t, seen, model.ErrInvalidToken)
}

func TestOptionalGate(t *testing.T) {
	tokens, userToken, adminToken := gateFixture(t)
	h := NewAuthMiddleware(tokens, nil, nil).Optional(claimsEcho())

	require.Equal(t, http.StatusNoContent, serve(h, "").Code)
	require.Equal(t, http.StatusNoContent, serve(h, "Bearer junk").Code)
	require.Equal(t, http.StatusNoContent, serve(h, "Token "+userToken).Code)

	rec := serve(h, "Bearer "+userToken)
	require.Equal(t, "u-1|user", rec.Body.String())

	rec = serve(h, "Bearer "+adminToken)
	require.Equal(t, "a-1|admin", rec.Body.String())
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc.def")
	require.NoError(t, err)
	require.Equal(t, "abc.def", token)

	_, err = BearerToken("BEARER abc")
	require.ErrorIs(t, err, model.ErrMissingToken)
}

func TestClaimsFromContextEmpty(t *testing.T) {
	_, ok := ClaimsFromContext(context.Background())
	require.False(t, ok)

	_, ok = ClaimsFromContext(WithClaims(context.Background(), nil))
	require.False(t, ok)
}
