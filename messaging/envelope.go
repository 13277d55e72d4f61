package messaging

import (
	"encoding/base64"
	"fmt"

	"github.com/opd-ai/passlok/codec"
	"github.com/opd-ai/passlok/crypto"
	"github.com/opd-ai/passlok/limits"
)

// Mode is the marker byte that opens every envelope.
type Mode byte

const (
	ModeAnonymous Mode = 0
	ModeReadOnce  Mode = 56
	ModeSigned    Mode = 72
	// ModeShared covers symmetric, invitation and folder-key messages: one
	// key, no recipient slots.
	ModeShared Mode = 128
)

// String returns the short mode name used in logs and metrics.
func (m Mode) String() string {
	switch m {
	case ModeAnonymous:
		return "anonymous"
	case ModeReadOnce:
		return "read-once"
	case ModeSigned:
		return "signed"
	case ModeShared:
		return "shared"
	}
	return fmt.Sprintf("unknown(%d)", byte(m))
}

func (m Mode) hasSlots() bool {
	return m == ModeAnonymous || m == ModeSigned || m == ModeReadOnce
}

func (m Mode) slotSize() int {
	if m == ModeReadOnce {
		return limits.ReadOnceSlotSize
	}
	return limits.SlotSize
}

// Mode labels used in armor tags.
const (
	LabelSigned     = "SIGNED"
	LabelAnonymous  = "ANONYMOUS"
	LabelSymmetric  = "SYMMETRIC"
	LabelInvitation = "INVITATION"
	LabelFolder     = "FOLDER"
	LabelReadOnce   = "READ-ONCE"
)

// Envelope is the parsed binary form of a message.
//
//	shared:    [128][nonce15][padding100][cipher]
//	anonymous: [0][count][nonce15][padding100][ephemeral32][slots][cipher]
//	signed:    [72][count][nonce15][padding100][slots][cipher]
//	read-once: [56][count][nonce15][padding100][slots][cipher]
type Envelope struct {
	Mode      Mode
	Nonce     [limits.NonceSize]byte
	Padding   []byte
	Ephemeral [32]byte
	Slots     [][]byte
	Cipher    []byte
}

// ParseEnvelope splits bin into its fields. Slices alias bin.
func ParseEnvelope(bin []byte) (*Envelope, error) {
	if err := limits.ValidateProcessingBuffer(bin); err != nil {
		return nil, err
	}

	env := &Envelope{Mode: Mode(bin[0])}
	off := 1
	count := 0
	switch {
	case env.Mode == ModeShared:
	case env.Mode.hasSlots():
		if len(bin) < 2 {
			return nil, ErrTruncated
		}
		count = int(bin[1])
		off = 2
	default:
		return nil, fmt.Errorf("%w: marker %d", ErrUnknownMarker, bin[0])
	}

	need := off + limits.NonceSize + limits.PaddingSize
	if env.Mode == ModeAnonymous {
		need += 32
	}
	need += count*env.Mode.slotSize() + limits.Overhead
	if len(bin) < need {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrTruncated, len(bin), need)
	}

	copy(env.Nonce[:], bin[off:])
	off += limits.NonceSize
	env.Padding = bin[off : off+limits.PaddingSize]
	off += limits.PaddingSize
	if env.Mode == ModeAnonymous {
		copy(env.Ephemeral[:], bin[off:])
		off += 32
	}
	size := env.Mode.slotSize()
	for i := 0; i < count; i++ {
		env.Slots = append(env.Slots, bin[off:off+size])
		off += size
	}
	env.Cipher = bin[off:]
	return env, nil
}

// Bytes serializes the envelope.
func (e *Envelope) Bytes() []byte {
	parts := [][]byte{{byte(e.Mode)}}
	if e.Mode.hasSlots() {
		parts = append(parts, []byte{byte(len(e.Slots))})
	}
	parts = append(parts, e.Nonce[:], e.Padding)
	if e.Mode == ModeAnonymous {
		parts = append(parts, e.Ephemeral[:])
	}
	parts = append(parts, e.Slots...)
	parts = append(parts, e.Cipher)
	return codec.Concat(parts...)
}

func (e *Envelope) nonce24() crypto.Nonce {
	return crypto.MakeNonce24(e.Nonce[:])
}

// nonceSalt is the salt for password-derived keys bound to this message.
func (e *Envelope) nonceSalt() string {
	return base64.StdEncoding.EncodeToString(e.Nonce[:])
}
