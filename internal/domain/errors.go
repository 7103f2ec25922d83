package domain

import "errors"

var (
	// ErrValidation marks malformed or oversized caller input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an unknown or already completed session.
	ErrNotFound = errors.New("conversation not found")
	// ErrExternalService marks any failure talking to the weather provider.
	ErrExternalService = errors.New("external service unavailable")
)
