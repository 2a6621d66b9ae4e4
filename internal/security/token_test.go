package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"auth-service/internal/model"
)

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()

	m, err := NewTokenManager("user-secret", "admin-secret", 7*24*time.Hour)
	require.NoError(t, err)
	return m
}

func testUser(role model.Role) model.User {
	return model.User{ID: "u-1", Email: "a@x.com", Role: role}
}

func TestNewTokenManagerRejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := NewTokenManager("", "admin", time.Hour)
	require.Error(t, err)
	_, err = NewTokenManager("same", "same", time.Hour)
	require.Error(t, err)
	_, err = NewTokenManager("user", "admin", 0)
	require.Error(t, err)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	for _, role := range []model.Role{model.RoleUser, model.RoleAdmin} {
		t.Run(role.String(), func(t *testing.T) {
			token, issued, err := m.Issue(testUser(role), role)
			require.NoError(t, err)
			require.Equal(t, 2, strings.Count(token, "."))

			verified, err := m.Verify(token, role)
			require.NoError(t, err)
			require.Equal(t, issued, *verified)
			require.Equal(t, "u-1", verified.UserID)
			require.Equal(t, "a@x.com", verified.Email)
			require.Equal(t, role, verified.Role)
			require.NotEmpty(t, verified.TokenID)
			require.Equal(t, 7*24*time.Hour, verified.ExpiresAt.Sub(verified.IssuedAt))
		})
	}
}

func TestIssueRejectsRoleMismatch(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	_, _, err := m.Issue(testUser(model.RoleUser), model.RoleAdmin)
	require.Error(t, err)
}

func TestVerifyUnderOtherRoleKeyFails(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)

	userToken, _, err := m.Issue(testUser(model.RoleUser), model.RoleUser)
	require.NoError(t, err)
	_, err = m.Verify(userToken, model.RoleAdmin)
	require.ErrorIs(t, err, model.ErrInvalidToken)

	adminToken, _, err := m.Issue(testUser(model.RoleAdmin), model.RoleAdmin)
	require.NoError(t, err)
	_, err = m.Verify(adminToken, model.RoleUser)
	require.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestVerifyExpired(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issuedAt }

	token, _, err := m.Issue(testUser(model.RoleUser), model.RoleUser)
	require.NoError(t, err)

	m.now = func() time.Time { return issuedAt.Add(7*24*time.Hour + time.Second) }
	_, err = m.Verify(token, model.RoleUser)
	require.ErrorIs(t, err, model.ErrTokenExpired)

	_, err = m.VerifyAny(token)
	require.ErrorIs(t, err, model.ErrTokenExpired)
}

func TestVerifyTamperedAndMalformed(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	token, _, err := m.Issue(testUser(model.RoleUser), model.RoleUser)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "u-1",
		"jti":   "x",
		"email": "a@x.com",
		"role":  "admin",
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("guessed-key"))
	require.NoError(t, err)
	forgedParts := strings.Split(forged, ".")

	cases := map[string]string{
		"garbage":          "not.a.jwt",
		"empty":            "",
		"swapped payload":  parts[0] + "." + forgedParts[1] + "." + parts[2],
		"foreign key":      forged,
		"truncated sig":    token[:len(token)-4],
		"unsigned variant": parts[0] + "." + parts[1] + ".",
	}
	for name, candidate := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := m.Verify(candidate, model.RoleUser)
			require.ErrorIs(t, err, model.ErrInvalidToken)
		})
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub":  "u-1",
		"jti":  "x",
		"role": "user",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("user-secret"))
	require.NoError(t, err)

	_, err = m.Verify(token, model.RoleUser)
	require.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestVerifyAnyPicksRoleByKey(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)

	adminToken, _, err := m.Issue(testUser(model.RoleAdmin), model.RoleAdmin)
	require.NoError(t, err)
	claims, err := m.VerifyAny(adminToken)
	require.NoError(t, err)
	require.Equal(t, model.RoleAdmin, claims.Role)

	userToken, _, err := m.Issue(testUser(model.RoleUser), model.RoleUser)
	require.NoError(t, err)
	claims, err = m.VerifyAny(userToken)
	require.NoError(t, err)
	require.Equal(t, model.RoleUser, claims.Role)

	// A user-key token claiming admin must not pass as either role.
	elevated, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "u-1",
		"jti":  "x",
		"role": "admin",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("user-secret"))
	require.NoError(t, err)
	_, err = m.VerifyAny(elevated)
	require.ErrorIs(t, err, model.ErrInvalidToken)
}
