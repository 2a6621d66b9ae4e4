package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"auth-service/internal/model"
	"auth-service/internal/validation"
	"auth-service/pkg/apierror"
)

type errorKind struct {
	err     error
	status  int
	code    string
	message string
}

// errorKinds is the fixed caller-facing mapping for business errors. Order
// matters only where one sentinel wraps another.
var errorKinds = []errorKind{
	{model.ErrEmailExists, http.StatusConflict, "EMAIL_EXISTS", "Email already registered"},
	{model.ErrInvalidAdminSecret, http.StatusForbidden, "INVALID_ADMIN_SECRET", "Invalid admin secret"},
	{model.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"},
	{model.ErrAccountInactive, http.StatusForbidden, "ACCOUNT_INACTIVE", "Account is inactive"},
	{model.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND", "User not found"},
	{model.ErrMissingToken, http.StatusUnauthorized, "MISSING_TOKEN", "Missing or invalid authorization header"},
	{model.ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired"},
	{model.ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token"},
	{model.ErrTokenVerification, http.StatusUnauthorized, "TOKEN_VERIFICATION_ERROR", "Token verification failed"},
	{model.ErrUserInactive, http.StatusUnauthorized, "USER_INACTIVE", "User not found or inactive"},
	{model.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required"},
	{model.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "Admin access required"},
}

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// WriteError is the single translation point from errors to the envelope.
// Unknown errors are logged and surface as a generic 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := describeError(err)
	if status == http.StatusInternalServerError && body.Code == "INTERNAL_ERROR" {
		slog.ErrorContext(r.Context(), "unhandled error", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

func describeError(err error) (int, *model.APIError) {
	var vErr *validation.Error
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, &model.APIError{Code: "VALIDATION_ERROR", Message: vErr.Error()}
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, &model.APIError{Code: "PAYLOAD_TOO_LARGE", Message: "Request body too large"}
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatus, &model.APIError{Code: apiErr.Code, Message: apiErr.Message, Details: apiErr.Details}
	}

	for _, kind := range errorKinds {
		if errors.Is(err, kind.err) {
			return kind.status, &model.APIError{Code: kind.code, Message: kind.message}
		}
	}

	return http.StatusInternalServerError, &model.APIError{Code: "INTERNAL_ERROR", Message: "Unexpected server error"}
}

func WriteNotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, apierror.New("NOT_FOUND", "Route not found", r.URL.Path, http.StatusNotFound))
}

func WriteMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, apierror.New("METHOD_NOT_ALLOWED", "Method not allowed", r.Method, http.StatusMethodNotAllowed))
}
