package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveStorageKey expands secret into an independent 32-byte key for data
// kept at rest. Distinct info strings give unrelated keys.
func DeriveStorageKey(secret [32]byte, info string) ([32]byte, error) {
	logger := NewLogger("DeriveStorageKey").With("info", info)

	var key [32]byte
	r := hkdf.New(sha256.New, secret[:], nil, []byte(info))
	if _, err := io.ReadFull(r, key[:]); err != nil {
		logger.Failed(err, "hkdf").Warn("Storage key derivation failed")
		return [32]byte{}, fmt.Errorf("deriving storage key: %w", err)
	}

	logger.Done("derive", "ok").Secret("key", key[:]).Debug("Storage key derived")
	return key, nil
}
