// Package common defines shared constants and sentinel errors used across
// the server layers of homevault. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Lookup errors.
	ErrNotFound = errors.New("not found")
	ErrNotAFile = errors.New("not a regular file")

	// Vault errors.
	ErrForbidden   = errors.New("path escapes user root")
	ErrConflict    = errors.New("destination already exists")
	ErrInvalidName = errors.New("invalid file name")
	ErrPurgeFailed = errors.New("permanent delete failed")

	// Service-level errors.
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// Session token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Credential record errors.
	ErrMalformedHash = errors.New("malformed password hash")
)
