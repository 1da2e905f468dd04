package service

import "errors"

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: email already registered")
	ErrInternalServer       = errors.New("internal server error")
	ErrInvalidViewEvent     = errors.New("invalid view event")
	ErrForbidden            = errors.New("forbidden")
)
