// Package limits provides the fixed sizes of the PassLok wire format and the
// size ceilings applied to untrusted input.
package limits

import (
	"errors"
	"fmt"
)

const (
	// NonceSize is the length of the short nonce carried in every envelope.
	// It is expanded to 24 bytes by zero padding before use.
	NonceSize = 15

	// PaddingSize is the fixed length of the padding region that follows the
	// nonce. It holds either random bytes or a decoy message.
	PaddingSize = 100

	// DecoyNonceSize is the short nonce at the start of a decoy padding block.
	DecoyNonceSize = 9

	// DecoyTextSize is the length a decoy message is space-padded to.
	// DecoyNonceSize + DecoyTextSize + Overhead == PaddingSize.
	DecoyTextSize = 75

	// Overhead is the Poly1305 tag added by secretbox.Seal.
	Overhead = 16

	// KeySize is the length of every symmetric and curve key.
	KeySize = 32

	// IDTagSize is the length of the identity tag that opens a recipient slot.
	IDTagSize = 8

	// SlotSize is the length of a standard recipient slot: tag plus the
	// sealed 32-byte message key.
	SlotSize = IDTagSize + KeySize + Overhead

	// ReadOnceSlotSize adds the ratchet type byte and the sealed next Lock.
	ReadOnceSlotSize = SlotSize + 1 + KeySize + Overhead

	// MaxRecipients is bounded by the one-byte recipient count.
	MaxRecipients = 255

	// MaxPlaintextMessage bounds the plaintext handed to the encryptor.
	// Documents with embedded files make this far larger than a chat message.
	MaxPlaintextMessage = 32 * 1024 * 1024

	// MaxProcessingBuffer is the absolute maximum for any untrusted input.
	MaxProcessingBuffer = 64 * 1024 * 1024
)

var (
	// ErrMessageEmpty indicates an empty message was provided
	ErrMessageEmpty = errors.New("empty message")

	// ErrMessageTooLarge indicates message exceeds maximum size
	ErrMessageTooLarge = errors.New("message too large")

	// ErrTooManyRecipients indicates the recipient list does not fit the count byte
	ErrTooManyRecipients = errors.New("too many recipients")
)

// ValidateMessageSize validates a message against the specified maximum size.
// Returns an error with context including the actual and maximum sizes.
func ValidateMessageSize(message []byte, maxSize int) error {
	if len(message) == 0 {
		return ErrMessageEmpty
	}
	if len(message) > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrMessageTooLarge, len(message), maxSize)
	}
	return nil
}

// ValidatePlaintextMessage validates a plaintext against MaxPlaintextMessage.
func ValidatePlaintextMessage(message []byte) error {
	if len(message) == 0 {
		return ErrMessageEmpty
	}
	if len(message) > MaxPlaintextMessage {
		return fmt.Errorf("%w: plaintext size %d exceeds limit %d", ErrMessageTooLarge, len(message), MaxPlaintextMessage)
	}
	return nil
}

// ValidateProcessingBuffer validates data against the absolute maximum (MaxProcessingBuffer).
// This limit should be used for all untrusted input such as received envelopes
// and carrier images.
func ValidateProcessingBuffer(data []byte) error {
	if len(data) == 0 {
		return ErrMessageEmpty
	}
	if len(data) > MaxProcessingBuffer {
		return fmt.Errorf("%w: buffer size %d exceeds limit %d", ErrMessageTooLarge, len(data), MaxProcessingBuffer)
	}
	return nil
}

// ValidateRecipientCount checks that n recipients fit the envelope count byte.
func ValidateRecipientCount(n int) error {
	if n > MaxRecipients {
		return fmt.Errorf("%w: %d recipients exceeds limit %d", ErrTooManyRecipients, n, MaxRecipients)
	}
	return nil
}
