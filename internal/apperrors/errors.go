package apperrors

import (
	"errors"
)

var (
	// Transport error categories
	// Use errors.Is against transport errors to find out what happened
	ErrNetwork      = errors.New("network unreachable")
	ErrUnauthorized = errors.New("authentication rejected")
	ErrValidation   = errors.New("validation failed")
	ErrServer       = errors.New("server fault")

	ErrEmptyInitData    = errors.New("telegram init data is empty")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoRefreshToken   = errors.New("refresh token not found")
	ErrRefreshFailed    = errors.New("refresh tokens failed")

	ErrSessionNotFound = errors.New("session not found")
	ErrSessionCorrupt  = errors.New("session record is corrupt")
	ErrStorageDown     = errors.New("session storage unavailable")

	// Mock backend errors
	ErrUserNotFound         = errors.New("user not found")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenIsUsed   = errors.New("refresh token is used")
	ErrRefreshTokenExpired  = errors.New("refresh token is expired")
)
