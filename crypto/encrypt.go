package crypto

import (
	"crypto/rand"
	"fmt"

	"github.com/opd-ai/passlok/limits"
	"golang.org/x/crypto/nacl/secretbox"
)

// Nonce is a 24-byte value used for encryption.
type Nonce [24]byte

// GenerateNonce creates a cryptographically secure random nonce.
func GenerateNonce() (Nonce, error) {
	var nonce Nonce
	_, err := rand.Read(nonce[:])
	if err != nil {
		return Nonce{}, err
	}
	return nonce, nil
}

// RandomBytes returns n bytes from the system CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("reading random bytes: %w", err)
	}
	return b, nil
}

// MakeNonce24 expands a short nonce to the 24 bytes secretbox needs by
// zero padding on the right. Input longer than 24 bytes is truncated.
func MakeNonce24(short []byte) Nonce {
	var nonce Nonce
	copy(nonce[:], short)
	return nonce
}

// EncryptSymmetric seals message with XSalsa20-Poly1305 under key.
func EncryptSymmetric(message []byte, nonce Nonce, key [32]byte) ([]byte, error) {
	if err := limits.ValidateProcessingBuffer(message); err != nil {
		return nil, err
	}

	out := secretbox.Seal(nil, message, (*[24]byte)(&nonce), (*[32]byte)(&key))
	return out, nil
}
