package errors

import "errors"

var (
	ErrConnectivity = errors.New("database unreachable")
	ErrParse        = errors.New("unparseable input")
	ErrConfig       = errors.New("invalid configuration")
	ErrStore        = errors.New("store operation failed")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrRateLimit    = errors.New("rate limit exceeded")
	ErrUnavailable  = errors.New("service unavailable")
)
