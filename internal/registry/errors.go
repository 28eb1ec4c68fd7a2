// Package registry enforces the invariants around room and file records.
// Everything that mutates metadata goes through here.
package registry

import "errors"

// Validation errors returned to callers. Handlers translate these into
// responses, nothing retries them automatically.
var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("access code mismatch")
	ErrExpired       = errors.New("room expired")
	ErrConflict      = errors.New("already exists")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)
