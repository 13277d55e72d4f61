package crypto

import (
	"encoding/base64"
	"fmt"
)

// KeyModeMarker opens every k-mode blob.
const KeyModeMarker = 144

// KeyEncrypt seals plaintext under key as base64([144][nonce24][secretbox]).
// Vault passwords, site notes and ratchet state are stored this way.
func KeyEncrypt(plaintext []byte, key [32]byte) (string, error) {
	nonce, err := GenerateNonce()
	if err != nil {
		return "", err
	}
	sealed, err := EncryptSymmetric(plaintext, nonce, key)
	if err != nil {
		NewLogger("KeyEncrypt").Failed(err, "seal").Warn("Sealing failed")
		return "", err
	}

	blob := make([]byte, 0, 1+len(nonce)+len(sealed))
	blob = append(blob, KeyModeMarker)
	blob = append(blob, nonce[:]...)
	blob = append(blob, sealed...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// KeyDecrypt reverses KeyEncrypt.
func KeyDecrypt(ciphertext string, key [32]byte) ([]byte, error) {
	logger := NewLogger("KeyDecrypt").With("blob_len", len(ciphertext))

	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		logger.Failed(err, "base64 decode").Debug("Not a k-mode blob")
		return nil, fmt.Errorf("%w: %v", ErrNotKeyMode, err)
	}
	if len(blob) == 0 || blob[0] != KeyModeMarker {
		return nil, ErrNotKeyMode
	}
	if len(blob) < 1+24 {
		return nil, fmt.Errorf("%w: truncated", ErrDecryptionFailed)
	}

	var nonce Nonce
	copy(nonce[:], blob[1:25])
	plain, err := DecryptSymmetric(blob[25:], nonce, key)
	if err != nil {
		logger.Failed(err, "open").Debug("k-mode blob did not open")
		return nil, err
	}
	return plain, nil
}
