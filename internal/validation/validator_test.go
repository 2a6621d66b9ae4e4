package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"auth-service/internal/model"
)

func problemsOf(t *testing.T, err error) []string {
	t.Helper()

	var vErr *Error
	require.True(t, errors.As(err, &vErr), "expected *validation.Error, got %v", err)
	return vErr.Problems
}

func TestDecodeUserSignupNormalizesEmail(t *testing.T) {
	t.Parallel()

	v := New()
	var payload model.UserSignupRequest
	err := v.Decode(strings.NewReader(`{"name":"Ann","email":"  A@X.com ","password":"secret1"}`), &payload)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", payload.Email)
	require.Equal(t, "Ann", payload.Name)
	require.Equal(t, "secret1", payload.Password)
}

func TestDecodeAggregatesAllProblems(t *testing.T) {
	t.Parallel()

	v := New()
	var payload model.UserSignupRequest
	err := v.Decode(strings.NewReader(`{"name":"A","email":"nope","password":"123","role":"admin"}`), &payload)

	problems := problemsOf(t, err)
	require.ElementsMatch(t, []string{
		`"role" is not allowed`,
		`"name" length must be at least 2 characters long`,
		`"email" must be a valid email`,
		`"password" length must be at least 6 characters long`,
	}, problems)
	require.Contains(t, err.Error(), ", ")
}

func TestDecodeMissingFields(t *testing.T) {
	t.Parallel()

	v := New()
	var payload model.LoginRequest
	problems := problemsOf(t, v.Decode(strings.NewReader(`{}`), &payload))
	require.ElementsMatch(t, []string{`"email" is required`, `"password" is required`}, problems)
}

func TestDecodeAdminSignupRules(t *testing.T) {
	t.Parallel()

	v := New()

	var short model.AdminSignupRequest
	problems := problemsOf(t, v.Decode(strings.NewReader(`{"name":"Root","email":"root@x.com","password":"1234567"}`), &short))
	require.ElementsMatch(t, []string{
		`"password" length must be at least 8 characters long`,
		`"adminSecret" is required`,
	}, problems)

	var long model.AdminSignupRequest
	body := `{"name":"Root","email":"root@x.com","password":"` + strings.Repeat("x", 73) + `","adminSecret":"s"}`
	problems = problemsOf(t, v.Decode(strings.NewReader(body), &long))
	require.Equal(t, []string{`"password" must be at most 72 bytes`}, problems)
}

func TestDecodeWrongTypeReportedOnce(t *testing.T) {
	t.Parallel()

	v := New()
	var payload model.LoginRequest
	problems := problemsOf(t, v.Decode(strings.NewReader(`{"email":42,"password":"pw"}`), &payload))
	require.Equal(t, []string{`"email" has an invalid type`}, problems)
}

func TestDecodeRejectsNonObjects(t *testing.T) {
	t.Parallel()

	v := New()
	for _, body := range []string{``, `[]`, `"text"`, `null`, `{`} {
		var payload model.LoginRequest
		problems := problemsOf(t, v.Decode(strings.NewReader(body), &payload))
		require.Equal(t, []string{"request body must be a JSON object"}, problems, "body %q", body)
	}
}

func TestDecodeUpdateRestrictsFieldSet(t *testing.T) {
	t.Parallel()

	v := New()

	var ok model.UpdateUserRequest
	require.NoError(t, v.Decode(strings.NewReader(`{"email":"New@X.com"}`), &ok))
	require.Nil(t, ok.Name)
	require.NotNil(t, ok.Email)
	require.Equal(t, "new@x.com", *ok.Email)

	var bad model.UpdateUserRequest
	problems := problemsOf(t, v.Decode(strings.NewReader(`{"name":"","isActive":false,"password":"x"}`), &bad))
	require.ElementsMatch(t, []string{
		`"isActive" is not allowed`,
		`"password" is not allowed`,
		`"name" length must be at least 2 characters long`,
	}, problems)
}

func TestStructValidatesPopulatedPayload(t *testing.T) {
	t.Parallel()

	v := New()
	payload := &model.AdminSignupRequest{Name: "Root", Email: " ROOT@X.COM", Password: "longenough", AdminSecret: "s"}
	require.NoError(t, v.Struct(payload))
	require.Equal(t, "root@x.com", payload.Email)

	require.Error(t, v.Struct(&model.AdminSignupRequest{}))
}

func TestDecodeRejectsNonStructTarget(t *testing.T) {
	t.Parallel()

	var target map[string]any
	err := New().Decode(strings.NewReader(`{}`), &target)
	require.Error(t, err)

	var vErr *Error
	require.False(t, errors.As(err, &vErr))
}
