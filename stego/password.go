package stego

import (
	"encoding/base64"
	"strings"

	"github.com/opd-ai/passlok/crypto"
)

// Salts that separate the primary and secondary stego keys.
const (
	SaltPrimary   = "PASSLOK_STEGO_PRIMARY"
	SaltSecondary = "PASSLOK_STEGO_SECONDARY"
)

// StretchPassword turns a user password into the PRNG seed used by Hide and
// Reveal. The stretched result is strong, so callers pass Iterations 1.
func StretchPassword(raw string, secondary bool) (string, error) {
	if raw == "" {
		return "", ErrPasswordRequired
	}
	salt := SaltPrimary
	if secondary {
		salt = SaltSecondary
	}
	key, err := crypto.WiseHash(raw, salt)
	if err != nil {
		return "", err
	}
	defer crypto.ZeroBytes(key[:])
	return base64.StdEncoding.EncodeToString(key[:]), nil
}

// FolderPassword derives the primary stego password from a folder key.
func FolderPassword(folderKey [32]byte) (string, error) {
	return StretchPassword(base64.StdEncoding.EncodeToString(folderKey[:]), false)
}

// SplitPair splits "first|second" input into trimmed halves. The second
// half is empty when no separator is present.
func SplitPair(input string) (first, second string) {
	first, second, _ = strings.Cut(strings.TrimSpace(input), "|")
	return strings.TrimSpace(first), strings.TrimSpace(second)
}
