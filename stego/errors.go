package stego

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacityExceeded is wrapped by CapacityError.
	ErrCapacityExceeded = errors.New("payload exceeds carrier capacity")

	// ErrNoHiddenData means no end marker was found after decoding.
	ErrNoHiddenData = errors.New("This image does not contain anything, or perhaps the password is wrong")

	ErrNoCoefficients     = errors.New("no coefficients provided")
	ErrPasswordRequired   = errors.New("stego password required")
	ErrInvalidQuality     = errors.New("jpeg quality must be between 1 and 90")
	ErrNegativeIterations = errors.New("iterations must not be negative")
	ErrUnknownFormat      = errors.New("carrier is neither PNG nor JPEG")
	ErrSubsampled         = errors.New("image is chroma subsampled")
)

// CapacityError reports the bits a carrier region can hold and the bits
// the payload (with end marker) needs.
type CapacityError struct {
	Available int
	Required  int
	Secondary bool
}

func (e *CapacityError) Error() string {
	if e.Secondary {
		return fmt.Sprintf("This image can add a hidden message %d bits long. But the hidden message in the box has %d bits", e.Available, e.Required)
	}
	return fmt.Sprintf("This image can hide %d bits. But the box contains %d bits", e.Available, e.Required)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }
