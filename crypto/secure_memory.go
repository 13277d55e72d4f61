package crypto

import (
	"errors"

	"github.com/awnumar/memguard"
)

// SecureWipe overwrites a byte slice holding secret material. It returns an
// error if the slice is nil.
func SecureWipe(data []byte) error {
	if data == nil {
		return errors.New("cannot wipe nil data")
	}
	memguard.WipeBytes(data)
	return nil
}

// ZeroBytes is SecureWipe without the nil check error.
func ZeroBytes(data []byte) {
	if len(data) > 0 {
		memguard.WipeBytes(data)
	}
}

// WipeKeyPair erases the private half of a KeyPair.
func WipeKeyPair(kp *KeyPair) error {
	if kp == nil {
		return errors.New("cannot wipe nil KeyPair")
	}
	return SecureWipe(kp.Private[:])
}
