// Package limits provides the fixed sizes of the PassLok binary format and the
// validation helpers used on untrusted input.
//
// # Wire Format Sizes
//
// Every envelope shares the same prefix: a one-byte mode marker, a one-byte
// recipient count (absent for symmetric messages), a 15-byte nonce and a
// 100-byte padding region:
//
//   - NonceSize (15 bytes): zero padded to 24 bytes before use with secretbox.
//   - PaddingSize (100 bytes): random bytes or a decoy of DecoyNonceSize +
//     DecoyTextSize + Overhead bytes.
//   - SlotSize (56 bytes): an 8-byte identity tag plus a sealed message key.
//   - ReadOnceSlotSize (105 bytes): a standard slot plus the ratchet type byte
//     and the sealed next Lock.
//
// # Validation Functions
//
// Each validation function checks for empty input and size limit violations:
//
//	err := limits.ValidatePlaintextMessage(message)
//	if err != nil {
//	    // ErrMessageEmpty or ErrMessageTooLarge
//	}
//
// Errors wrap the package sentinels, so callers branch with errors.Is:
//
//	if errors.Is(err, limits.ErrMessageTooLarge) {
//	    // reject
//	}
package limits
