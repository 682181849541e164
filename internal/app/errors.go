package app

import "errors"

// Error taxonomy shared by every component. Callers wrap these with
// fmt.Errorf("%w: ...") and the HTTP boundary matches them with errors.Is.
var (
	ErrValidation        = errors.New("missing or invalid field")
	ErrDuplicateUser     = errors.New("username already taken")
	ErrNotFound          = errors.New("not found")
	ErrInvalidCredential = errors.New("invalid password")
	ErrUnauthorized      = errors.New("unauthorized")
)
