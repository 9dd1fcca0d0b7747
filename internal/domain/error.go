package domain

import "errors"

var (
	// Common domain errors
	ErrJobNotFound        = errors.New("job not found")
	ErrJobNotReady        = errors.New("job output is not ready")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrStorageUnavailable = errors.New("working storage unavailable")
	ErrToolTimeout        = errors.New("external tool timed out")
	ErrQueueFull          = errors.New("worker queue full")
)
