package types

import "errors"

// Domain specific errors shared by the catalog, narrative and chat layers.
var (
	ErrNotFound     = errors.New("requested item not found")
	ErrForbidden    = errors.New("action forbidden")
	ErrUnauthorized = errors.New("authentication required or invalid credentials")

	// ErrInvalidArgument covers out of range query parameters and
	// payloads rejected by struct validation.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrInvalidTimeFormat = errors.New("invalid time format, expected HH:MM or HH:MM:SS")
	ErrInvalidTimeWindow = errors.New("closing time must be after opening time")

	ErrNarrativeUnavailable = errors.New("narrative provider is not configured")
)
