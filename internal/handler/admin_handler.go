package handler

import (
	"context"
	"net/http"

	"auth-service/internal/model"
	"auth-service/internal/service"
	"auth-service/internal/validation"
	"auth-service/pkg/apierror"
)

// AdminHandler is user management for admins. Every route sits behind the
// admin gate.
type AdminHandler struct {
	service   *service.UserService
	validator *validation.Validator
}

func NewAdminHandler(service *service.UserService, validator *validation.Validator) *AdminHandler {
	return &AdminHandler{service: service, validator: validator}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	isActive, err := parseOptionalBool(query.Get("isActive"), "isActive")
	if err != nil {
		WriteError(w, r, err)
		return
	}

	users, meta, err := h.service.List(r.Context(), model.UserFilter{
		IsActive: isActive,
		Page:     parseIntOrDefault(query.Get("page"), 1),
		Limit:    parseIntOrDefault(query.Get("limit"), 10),
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.UserList{Users: users}, &meta)
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	user, err := h.service.Get(r.Context(), userID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	var payload model.UpdateUserRequest
	if err := decodeBody(w, r, h.validator, &payload); err != nil {
		WriteError(w, r, err)
		return
	}

	claims, err := callerClaims(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	user, err := h.service.Update(r.Context(), claims.UserID, userID, payload.ToUpdate())
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	claims, err := callerClaims(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), claims.UserID, userID); err != nil {
		WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"user_id": userID}, nil)
}

func (h *AdminHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.service.Deactivate)
}

func (h *AdminHandler) ActivateUser(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.service.Activate)
}

func (h *AdminHandler) setActive(w http.ResponseWriter, r *http.Request, apply func(context.Context, string, string) (model.PublicUser, error)) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	claims, err := callerClaims(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	user, err := apply(r.Context(), claims.UserID, userID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}

func (h *AdminHandler) requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := userIDParam(r)
	if userID == "" {
		WriteError(w, r, apierror.BadRequest("user id is required", "userId"))
		return "", false
	}
	return userID, true
}
