package auth

import "errors"

var (
	// ErrUserNotFound indicates no account matches the provided identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials indicates the password check failed for an existing account.
	ErrInvalidCredentials = errors.New("invalid user credentials")
	// ErrNoToken indicates no refresh token was presented at all.
	ErrNoToken = errors.New("refresh token required")
	// ErrTokenInvalid indicates a token failed signature verification or decoding.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired indicates a token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenReused indicates a refresh token that no longer matches the stored
	// value: it has been rotated away or revoked and its reuse was detected.
	ErrTokenReused = errors.New("refresh token expired or already used")
)
