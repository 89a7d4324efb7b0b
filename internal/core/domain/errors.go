package domain

import "errors"

var (
	ErrInvalidTarget = errors.New("invalid trace target")
	ErrInvalidIP     = errors.New("invalid IP address")
	ErrNotRoutable   = errors.New("address is not publicly routable")
	ErrNotFound      = errors.New("not found")
	ErrUnavailable   = errors.New("backend not configured")
)
