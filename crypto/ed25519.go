package crypto

import (
	"crypto/ed25519"
	"crypto/sha512"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/opd-ai/passlok/codec"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/curve25519"
)

// Identity is the key material derived from a master password and email.
// The Ed25519 public key is what gets published (as the Lock); the matching
// Curve25519 pair is what every Diffie-Hellman step uses.
type Identity struct {
	SigningPublic [32]byte
	Curve         KeyPair
	Lock          string
}

// DeriveIdentity stretches masterPwd with the email as salt and expands the
// result into an Identity. Changing either input changes the Lock.
func DeriveIdentity(masterPwd, email string) (*Identity, error) {
	if masterPwd == "" {
		return nil, ErrEmptyPassword
	}

	seed, err := WiseHash(masterPwd, email)
	if err != nil {
		return nil, fmt.Errorf("deriving identity seed: %w", err)
	}
	defer ZeroBytes(seed[:])

	id, err := IdentityFromSeed(seed)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "DeriveIdentity",
		"lock":     id.Lock[:8] + "...",
	}).Debug("Identity derived")

	return id, nil
}

// IdentityFromSeed expands a 32-byte Ed25519 seed. The Curve25519 secret is
// the clamped first half of SHA-512(seed), which is the scalar behind the
// Ed25519 public key.
func IdentityFromSeed(seed [32]byte) (*Identity, error) {
	priv := ed25519.NewKeyFromSeed(seed[:])
	defer ZeroBytes(priv)

	id := &Identity{}
	copy(id.SigningPublic[:], priv[32:])

	digest := sha512.Sum512(seed[:])
	defer ZeroBytes(digest[:])
	copy(id.Curve.Private[:], digest[:32])
	id.Curve.Private[0] &= 248
	id.Curve.Private[31] &= 127
	id.Curve.Private[31] |= 64

	pub, err := curve25519.X25519(id.Curve.Private[:], curve25519.Basepoint)
	if err != nil {
		id.Wipe()
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	copy(id.Curve.Public[:], pub)

	id.Lock = codec.LockFromPublicKey(id.SigningPublic)
	return id, nil
}

// CurveSecret returns a copy of the Curve25519 secret key.
func (id *Identity) CurveSecret() [32]byte {
	return id.Curve.Private
}

// Wipe erases the secret half of the identity.
func (id *Identity) Wipe() {
	if id == nil {
		return
	}
	_ = WipeKeyPair(&id.Curve)
}

// EdwardsToCurvePublic maps an Ed25519 public key to the Curve25519 public
// key of the same scalar (the birational map u = (1+y)/(1-y)).
func EdwardsToCurvePublic(edPub [32]byte) ([32]byte, error) {
	p, err := new(edwards25519.Point).SetBytes(edPub[:])
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}

	var out [32]byte
	copy(out[:], p.BytesMontgomery())
	return out, nil
}

// CurvePublicFromLock decodes a Lock and converts it for key agreement.
func CurvePublicFromLock(lock string) ([32]byte, error) {
	edPub, err := codec.PublicKeyFromLock(lock)
	if err != nil {
		return [32]byte{}, err
	}
	return EdwardsToCurvePublic(edPub)
}
