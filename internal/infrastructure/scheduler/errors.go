package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrSweepInProgress is returned when a run is requested while one is active
	ErrSweepInProgress = errors.New("quote expiry sweep already in progress")
)
