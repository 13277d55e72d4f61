// Package crypto implements the key derivation and sealing primitives of the
// PassLok toolkit.
//
// Everything rests on NaCl: XSalsa20-Poly1305 secretbox for every sealed
// field and Curve25519 Diffie-Hellman (with the HSalsa20 step nacl/box uses)
// for shared keys. Identities are Ed25519 keys derived from a password, so a
// user never stores a private key.
//
// # Identities
//
// A master password and an email address are stretched with [WiseHash] into a
// 32-byte Ed25519 seed. The Ed25519 public key, written in base 36, is the
// user's Lock. The Curve25519 key pair that does the actual key agreement is
// derived from the same seed, and a peer reaches it from the Lock alone with
// [EdwardsToCurvePublic]:
//
//	id, err := crypto.DeriveIdentity(masterPwd, "alice@example.com")
//	if err != nil {
//	    return err
//	}
//	defer id.Wipe()
//	fmt.Println("my Lock:", id.Lock)
//
// # Password stretching
//
// [WiseHash] runs scrypt (r=8, p=1, 32-byte output) with a cost exponent
// chosen by [KeyStrength] from the password's estimated entropy. Strong
// passwords get cost 2^1, weak ones up to 2^20. [EntropyCalc] credits
// character classes, gives dictionary words one draw each from the embedded
// word list, and gives blacklisted passwords nothing.
//
// # Stored secrets
//
// [KeyEncrypt] and [KeyDecrypt] produce the base64 "k-mode" blobs (marker
// 144) used for vault passwords, notes and read-once ratchet state.
// [DeriveStorageKey] expands a secret into an independent at-rest key with
// HKDF-SHA256.
//
// # Memory and time
//
// Secret buffers are erased with [SecureWipe] and [ZeroBytes]. Operations
// that measure or schedule time go through [TimeProvider], and
// [ManualClock] makes inactivity timeouts testable without sleeping.
//
// # Logging
//
// Functions log through logrus with a "function" field. Key material is
// never logged; [SecureFieldHash] gives a size and a short SHA-256
// fingerprint instead.
package crypto
