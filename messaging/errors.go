package messaging

import "errors"

var (
	// ErrUnknownMarker is returned for envelopes whose first byte is not a
	// PassLok mode marker.
	ErrUnknownMarker = errors.New("unsupported message mode")

	// ErrTruncated is returned when an envelope is shorter than its header,
	// slots and minimum ciphertext require.
	ErrTruncated = errors.New("message is truncated")

	// ErrAuthenticationFailed covers every secretbox open failure after a
	// key was found. The text is generic on purpose.
	ErrAuthenticationFailed = errors.New("decryption failed: wrong password or corrupted data")

	// ErrNoMatchingRecipient means no candidate key produced an identity tag
	// present in the message: it was not encrypted for us.
	ErrNoMatchingRecipient = errors.New("No matching sender Lock found")

	// ErrMasterPasswordRequired is returned by signed and read-once
	// operations when no identity was supplied.
	ErrMasterPasswordRequired = errors.New("master password required")

	// ErrNoRecipients is returned when the selectors resolve to no Locks.
	ErrNoRecipients = errors.New("no valid recipient Locks selected")

	// ErrLockMissing is returned for invitations when our own Lock is unknown.
	ErrLockMissing = errors.New("your Lock is missing; open Signed mode once to initialize")

	// ErrPasswordRequired is returned when a symmetric message needs a
	// password and none was given.
	ErrPasswordRequired = errors.New("password required for symmetric message")

	// ErrCancelled is returned when the user dismissed a required prompt.
	ErrCancelled = errors.New("operation cancelled")

	// ErrConflictingModes is returned for settings asking for both anonymous
	// and read-once delivery.
	ErrConflictingModes = errors.New("anonymous and read-once modes are exclusive")

	// ErrNoDecoy is returned when the padding holds no decoy message for the
	// given key.
	ErrNoDecoy = errors.New("no hidden message found")
)
