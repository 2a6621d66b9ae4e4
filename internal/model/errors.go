package model

import "errors"

var (
	// Account errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrInvalidAdminSecret = errors.New("invalid admin secret")

	// Token errors
	ErrMissingToken      = errors.New("missing or invalid authorization header")
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenVerification = errors.New("token verification failed")
	ErrUserInactive      = errors.New("user no longer active")

	// Access errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
