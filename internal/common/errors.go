// Package common defines shared constants and sentinel errors used across
// client and server layers of receiptvault. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Receipt store taxonomy.
	ErrorValidation   = errors.New("validation failure")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorStorage      = errors.New("storage failure")

	// Service-level errors (generic/internal flow control).
	ErrorInternal    = errors.New("internal error")
	ErrorUnsupported = errors.New("operation not supported")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
