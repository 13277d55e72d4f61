package crypto

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/salsa20/salsa"
)

// DeriveSharedKey computes the nacl/box precomputed key between a peer's
// Curve25519 public key and our secret: HSalsa20 over the X25519 output.
// The result equals box.Precompute for the same inputs; unlike Precompute it
// rejects low-order peer points.
func DeriveSharedKey(peerPublicKey, privateKey [32]byte) ([32]byte, error) {
	logrus.WithFields(logrus.Fields{
		"function":        "DeriveSharedKey",
		"peer_key_prefix": fmt.Sprintf("%x", peerPublicKey[:8]),
	}).Debug("Computing shared key using ECDH")

	var privateKeyCopy [32]byte
	copy(privateKeyCopy[:], privateKey[:])
	defer ZeroBytes(privateKeyCopy[:])

	sharedSecret, err := curve25519.X25519(privateKeyCopy[:], peerPublicKey[:])
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "DeriveSharedKey",
			"error":    err.Error(),
		}).Warn("X25519 computation failed")
		return [32]byte{}, fmt.Errorf("failed to compute shared secret: %w", err)
	}
	defer ZeroBytes(sharedSecret)

	var result, raw [32]byte
	var zeros [16]byte
	copy(raw[:], sharedSecret)
	salsa.HSalsa20(&result, &zeros, &raw, &salsa.Sigma)
	ZeroBytes(raw[:])

	logrus.WithFields(logrus.Fields{
		"function": "DeriveSharedKey",
	}).Debug("Shared key computed, intermediate secret wiped")

	return result, nil
}
