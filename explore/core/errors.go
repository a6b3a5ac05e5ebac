package core

import "errors"

var (
	ErrBadArguments    = errors.New("arguments are not acceptable")
	ErrNotFound        = errors.New("resource is not found")
	ErrNilDependency   = errors.New("explore service: nil dependency")
	ErrRequestTooLarge = errors.New("request is too large")
	ErrUnavailable     = errors.New("dependency is unavailable")
)
