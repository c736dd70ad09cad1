package apperrors

import "errors"

// Standard application errors
var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when the input provided by the client is invalid.
	ErrInvalidInput = errors.New("invalid input provided")

	// ErrExternalServiceFailure is returned when an interaction with an external service fails.
	ErrExternalServiceFailure = errors.New("external service interaction failed")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("operation timed out")

	// ErrInternal is returned for unexpected internal system errors.
	ErrInternal = errors.New("internal system error")

	// ErrConfiguration is returned when a configured value (e.g. an RPC endpoint URL) cannot be used.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrUnsupportedMediaType is returned when content of an unknown type is offered for storage.
	ErrUnsupportedMediaType = errors.New("unsupported media type")
)
