package crypto

import (
	"fmt"

	"github.com/opd-ai/passlok/limits"
	"golang.org/x/crypto/nacl/secretbox"
)

// DecryptSymmetric opens a secretbox sealed by EncryptSymmetric.
func DecryptSymmetric(ciphertext []byte, nonce Nonce, key [32]byte) ([]byte, error) {
	if len(ciphertext) < limits.Overhead {
		return nil, fmt.Errorf("%w: ciphertext shorter than tag", ErrDecryptionFailed)
	}
	if len(ciphertext) > limits.MaxProcessingBuffer {
		return nil, limits.ValidateProcessingBuffer(ciphertext)
	}

	out, ok := secretbox.Open(nil, ciphertext, (*[24]byte)(&nonce), (*[32]byte)(&key))
	if !ok {
		return nil, ErrDecryptionFailed
	}

	return out, nil
}
