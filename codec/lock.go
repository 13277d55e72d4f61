package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidLock indicates a string that is not a well-formed 50-character Lock.
	ErrInvalidLock = errors.New("invalid Lock")

	strictLockPattern = regexp.MustCompile(`^[0-9a-kLm-z]{50}$`)
)

// IsStrictLock reports whether s, once trimmed, is exactly a 50-character
// base36 Lock.
func IsStrictLock(s string) bool {
	return strictLockPattern.MatchString(strings.TrimSpace(s))
}

// LockFromPublicKey renders a 32-byte Ed25519 public key as a base36 Lock.
func LockFromPublicKey(pub [32]byte) string {
	b64 := base64.RawStdEncoding.EncodeToString(pub[:])
	return ChangeBase(b64, Base64, Base36, true)
}

// PublicKeyFromLock recovers the 32-byte Ed25519 public key behind a Lock.
func PublicKeyFromLock(lock string) ([32]byte, error) {
	var pub [32]byte
	lock = strings.TrimSpace(lock)
	if !IsStrictLock(lock) {
		return pub, fmt.Errorf("%w: %q", ErrInvalidLock, shorten(lock))
	}
	b64 := ChangeBase(lock, Base36, Base64, true)
	if len(b64) != LockLength64 {
		return pub, fmt.Errorf("%w: value out of range", ErrInvalidLock)
	}
	raw, err := base64.RawStdEncoding.DecodeString(b64)
	if err != nil || len(raw) != len(pub) {
		return pub, fmt.Errorf("%w: undecodable", ErrInvalidLock)
	}
	copy(pub[:], raw)
	return pub, nil
}

func shorten(s string) string {
	if len(s) > 12 {
		return s[:12] + "..."
	}
	return s
}
