package handler

import (
	"context"
	"net/http"

	"auth-service/internal/middleware"
	"auth-service/internal/model"
	"auth-service/internal/service"
	"auth-service/internal/validation"
)

type AuthHandler struct {
	service   *service.AuthService
	validator *validation.Validator
}

func NewAuthHandler(service *service.AuthService, validator *validation.Validator) *AuthHandler {
	return &AuthHandler{service: service, validator: validator}
}

func (h *AuthHandler) SignupUser(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.UserSignupRequest
	if err := decodeBody(w, r, h.validator, &payload); err != nil {
		WriteError(w, r, err)
		return
	}

	result, err := h.service.SignupUser(r.Context(), payload)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, result, nil)
}

func (h *AuthHandler) SignupAdmin(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.AdminSignupRequest
	if err := decodeBody(w, r, h.validator, &payload); err != nil {
		WriteError(w, r, err)
		return
	}

	result, err := h.service.SignupAdmin(r.Context(), payload)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, result, nil)
}

func (h *AuthHandler) LoginUser(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.service.LoginUser)
}

func (h *AuthHandler) LoginAdmin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.service.LoginAdmin)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, login func(context.Context, model.LoginRequest) (model.AuthResult, error)) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := decodeBody(w, r, h.validator, &payload); err != nil {
		WriteError(w, r, err)
		return
	}

	result, err := login(r.Context(), payload)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

// Session re-validates the bearer token and returns the current account.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	token, err := middleware.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	user, err := h.service.ValidateSession(r.Context(), token)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}

// Logout always answers 200.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := middleware.BearerToken(r.Header.Get("Authorization"))
	if err == nil {
		h.service.Logout(r.Context(), token)
	}

	writeSuccess(w, http.StatusOK, map[string]bool{"logged_out": true}, nil)
}

// Status reports what the optional gate found, without ever failing.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := model.SessionStatus{}
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		status = model.SessionStatus{
			Authenticated: true,
			UserID:        claims.UserID,
			Role:          claims.Role.String(),
		}
	}

	writeSuccess(w, http.StatusOK, status, nil)
}
