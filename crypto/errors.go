package crypto

import "errors"

var (
	// ErrDecryptionFailed is returned when a secretbox fails to open. The
	// message is deliberately generic: callers must not learn which key or
	// which step was wrong.
	ErrDecryptionFailed = errors.New("decryption failed (wrong key or corrupted data)")

	// ErrInvalidKey is returned for all-zero or malformed key material.
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidPublicKey is returned when an Edwards public key is not a
	// valid curve point.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrNotKeyMode is returned by KeyDecrypt for blobs without marker 144.
	ErrNotKeyMode = errors.New("Not a valid k-mode message (marker 144 missing)")

	// ErrEmptyPassword is returned when a password-derived key is requested
	// for an empty password.
	ErrEmptyPassword = errors.New("empty password")
)
