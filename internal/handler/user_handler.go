package handler

import (
	"net/http"

	"auth-service/internal/model"
	"auth-service/internal/service"
	"auth-service/internal/validation"
	"auth-service/pkg/apierror"
)

// UserHandler serves the caller's own account plus read access to others.
type UserHandler struct {
	service   *service.UserService
	validator *validation.Validator
}

func NewUserHandler(service *service.UserService, validator *validation.Validator) *UserHandler {
	return &UserHandler{service: service, validator: validator}
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, err := callerClaims(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	user, err := h.service.Get(r.Context(), claims.UserID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	claims, err := callerClaims(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var payload model.UpdateUserRequest
	if err := decodeBody(w, r, h.validator, &payload); err != nil {
		WriteError(w, r, err)
		return
	}

	user, err := h.service.Update(r.Context(), claims.UserID, claims.UserID, payload.ToUpdate())
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}

func (h *UserHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	claims, err := callerClaims(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), claims.UserID, claims.UserID); err != nil {
		WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"user_id": claims.UserID}, nil)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := userIDParam(r)
	if userID == "" {
		WriteError(w, r, apierror.BadRequest("user id is required", "userId"))
		return
	}

	user, err := h.service.Get(r.Context(), userID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}
