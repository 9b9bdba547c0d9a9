package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrProviderFailure     = errors.New("provider failure")
	ErrProviderTimeout     = errors.New("provider timeout")
	ErrDuplicateUsername   = errors.New("username already taken")
)
