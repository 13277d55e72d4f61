package directory

import "errors"

var (
	// ErrUnknownRecipient is returned when a selector names no directory entry.
	ErrUnknownRecipient = errors.New("unknown recipient")

	// ErrNotFound is returned for operations on a missing entry.
	ErrNotFound = errors.New("directory entry not found")

	// ErrInvalidName is returned for empty or reserved entry names.
	ErrInvalidName = errors.New("invalid entry name")

	// ErrUnsupportedVersion is returned when a stored directory was written
	// by a newer format than this build understands.
	ErrUnsupportedVersion = errors.New("unsupported directory version")
)
