package messaging

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"

	"github.com/opd-ai/passlok/codec"
	"github.com/opd-ai/passlok/crypto"
	"github.com/opd-ai/passlok/limits"
	"github.com/opd-ai/passlok/ratchet"
)

// idTag is the first IDTagSize bytes of the recipient's Ed25519 public key
// sealed under the shared key. Only the two ends of the DH can compute it,
// so it marks a slot without naming the recipient.
func idTag(recipientEdPub [32]byte, nonce crypto.Nonce, shared [32]byte) ([]byte, error) {
	sealed, err := crypto.EncryptSymmetric(recipientEdPub[:], nonce, shared)
	if err != nil {
		return nil, err
	}
	return sealed[:limits.IDTagSize], nil
}

// buildSlot returns [idTag][secretbox(msgKey)].
func buildSlot(recipientEdPub [32]byte, nonce crypto.Nonce, msgKey, shared [32]byte) ([]byte, error) {
	tag, err := idTag(recipientEdPub, nonce, shared)
	if err != nil {
		return nil, err
	}
	sealedKey, err := crypto.EncryptSymmetric(msgKey[:], nonce, shared)
	if err != nil {
		return nil, err
	}
	return codec.Concat(tag, sealedKey), nil
}

// buildReadOnceSlot appends the ratchet type and the sealed next Lock to a
// standard slot.
func buildReadOnceSlot(recipientEdPub [32]byte, nonce crypto.Nonce, msgKey [32]byte, step *ratchet.SendStep) ([]byte, error) {
	slot, err := buildSlot(recipientEdPub, nonce, msgKey, step.Shared)
	if err != nil {
		return nil, err
	}
	sealedNext, err := crypto.EncryptSymmetric(step.Next.Public[:], ratchet.NextLockNonce(nonce), step.Shared)
	if err != nil {
		return nil, err
	}
	return codec.Concat(slot, []byte{byte(step.Type)}, sealedNext), nil
}

// findSlot returns the index of the first slot starting with tag, or -1.
func findSlot(slots [][]byte, tag []byte) int {
	for i, s := range slots {
		if len(s) >= len(tag) && subtle.ConstantTimeCompare(s[:len(tag)], tag) == 1 {
			return i
		}
	}
	return -1
}

// findReadOnceSlot is findSlot restricted to slots of ratchet type t.
func findReadOnceSlot(slots [][]byte, tag []byte, t ratchet.MessageType) int {
	for i, s := range slots {
		if len(s) != limits.ReadOnceSlotSize || s[limits.SlotSize] != byte(t) {
			continue
		}
		if subtle.ConstantTimeCompare(s[:len(tag)], tag) == 1 {
			return i
		}
	}
	return -1
}

// openSlot recovers the message key from a matched slot.
func openSlot(slot []byte, nonce crypto.Nonce, shared [32]byte) ([32]byte, error) {
	var key [32]byte
	plain, err := crypto.DecryptSymmetric(slot[limits.IDTagSize:limits.SlotSize], nonce, shared)
	if err != nil {
		return key, fmt.Errorf("%w: message key", ErrAuthenticationFailed)
	}
	defer crypto.ZeroBytes(plain)
	if len(plain) != limits.KeySize {
		return key, fmt.Errorf("%w: message key is %d bytes", ErrAuthenticationFailed, len(plain))
	}
	copy(key[:], plain)
	return key, nil
}

// openNextLock recovers the sender's next ephemeral Lock from a read-once slot.
func openNextLock(slot []byte, nonce crypto.Nonce, shared [32]byte) ([32]byte, error) {
	var next [32]byte
	plain, err := crypto.DecryptSymmetric(slot[limits.SlotSize+1:], ratchet.NextLockNonce(nonce), shared)
	if err != nil || len(plain) != 32 {
		return next, fmt.Errorf("%w: next Lock", ErrAuthenticationFailed)
	}
	copy(next[:], plain)
	return next, nil
}

// shuffleSlots applies a uniform Fisher-Yates permutation so slot order
// does not reveal the order recipients were selected in.
func shuffleSlots(slots [][]byte) error {
	for i := len(slots) - 1; i > 0; i-- {
		jBig, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return err
		}
		j := int(jBig.Int64())
		slots[i], slots[j] = slots[j], slots[i]
	}
	return nil
}
