package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"auth-service/internal/middleware"
	"auth-service/internal/model"
	"auth-service/internal/validation"
	"auth-service/pkg/apierror"
)

// maxJSONBodyBytes bounds every JSON request body.
const maxJSONBodyBytes = 16 << 10

func decodeBody(w http.ResponseWriter, r *http.Request, v *validation.Validator, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	return v.Decode(r.Body, dst)
}

func parseIntOrDefault(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}

// parseOptionalBool returns nil for an absent value.
func parseOptionalBool(raw string, name string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apierror.BadRequest("invalid '"+name+"' filter", raw)
	}
	return &value, nil
}

func userIDParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "userId"))
}

// callerClaims is only called behind the gate; a missing value means the
// route was mounted without it.
func callerClaims(r *http.Request) (*model.AuthClaims, error) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return nil, model.ErrUnauthorized
	}
	return claims, nil
}
