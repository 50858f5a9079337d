package model

import "errors"

// Domain errors shared across the service, auth and handler layers.
var (
	ErrDuplicateEmail         = errors.New("email already registered")
	ErrInvalidCredential      = errors.New("invalid credentials")
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrInsufficientPlan       = errors.New("operation requires a premium plan")
	ErrNotFound               = errors.New("not found")
	ErrUnsupportedOperation   = errors.New("unsupported operation")
	ErrInvalidInput           = errors.New("invalid input")
)
