// Package common defines shared constants and sentinel errors used across
// the server and CLI layers of FastKeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrConflict signals that a concurrent actor got there first,
	// e.g. the fast has already been ended in another session.
	ErrConflict = errors.New("conflict")

	// ErrActiveFastExists rejects starting a second fast while one is running.
	ErrActiveFastExists = errors.New("an active fast already exists")

	// ErrEmailTaken rejects registration with an email that is already in use.
	ErrEmailTaken = errors.New("email already registered")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
