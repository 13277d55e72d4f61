// Package codec holds the text and byte encodings shared by the PassLok
// message layer: base conversion for Locks, bit packing, text armor,
// LZ-String compression and the document container.
//
// # Locks
//
// A Lock is a 32-byte Ed25519 public key written as a 50-character base36
// number. The conversion goes through the unpadded base64 form, treating both
// strings as big integers:
//
//	lock := codec.LockFromPublicKey(pub)
//	pub, err := codec.PublicKeyFromLock(lock)
//
// # Armor
//
// Envelopes travel as base64 between BEGIN/END tags, wrapped at 80 columns,
// optionally prefixed by the sender Lock and "//////". Dearmor accepts the
// tagged form as well as a bare blob pasted out of surrounding text.
package codec
