package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/opd-ai/passlok/limits"
	"golang.org/x/crypto/nacl/box"
)

func TestGenerateKeyPair(t *testing.T) {
	keyPair, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}

	if isZeroKey(keyPair.Public) {
		t.Error("GenerateKeyPair() returned zero public key")
	}
	if isZeroKey(keyPair.Private) {
		t.Error("GenerateKeyPair() returned zero private key")
	}

	keyPair2, _ := GenerateKeyPair()
	if bytes.Equal(keyPair.Public[:], keyPair2.Public[:]) {
		t.Error("Multiple GenerateKeyPair() calls produced identical public keys")
	}
}

func TestFromSecretKey(t *testing.T) {
	generated, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name      string
		secretKey [32]byte
		wantError bool
	}{
		{name: "Generated key", secretKey: generated.Private},
		{name: "Zero key", secretKey: [32]byte{}, wantError: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			keyPair, err := FromSecretKey(tc.secretKey)
			if tc.wantError {
				if !errors.Is(err, ErrInvalidKey) {
					t.Fatalf("FromSecretKey() error = %v, want ErrInvalidKey", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromSecretKey() unexpected error: %v", err)
			}
			if keyPair.Public != generated.Public {
				t.Error("FromSecretKey() did not rebuild the matching public key")
			}
		})
	}
}

func TestMakeNonce24(t *testing.T) {
	short := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	n := MakeNonce24(short)

	if !bytes.Equal(n[:15], short) {
		t.Errorf("prefix = %x, want %x", n[:15], short)
	}
	for i := 15; i < 24; i++ {
		if n[i] != 0 {
			t.Fatalf("byte %d = %d, want zero padding", i, n[i])
		}
	}

	if got := MakeNonce24(nil); got != (Nonce{}) {
		t.Errorf("MakeNonce24(nil) = %x, want all zeros", got)
	}
}

func TestSymmetricRoundTrip(t *testing.T) {
	var key [32]byte
	copy(key[:], "0123456789abcdef0123456789abcdef")
	nonce, err := GenerateNonce()
	if err != nil {
		t.Fatal(err)
	}

	message := []byte("read me once")
	sealed, err := EncryptSymmetric(message, nonce, key)
	if err != nil {
		t.Fatalf("EncryptSymmetric() error: %v", err)
	}
	if len(sealed) != len(message)+limits.Overhead {
		t.Errorf("sealed length = %d, want %d", len(sealed), len(message)+limits.Overhead)
	}

	opened, err := DecryptSymmetric(sealed, nonce, key)
	if err != nil {
		t.Fatalf("DecryptSymmetric() error: %v", err)
	}
	if !bytes.Equal(opened, message) {
		t.Errorf("opened = %q, want %q", opened, message)
	}

	sealed[0] ^= 1
	if _, err := DecryptSymmetric(sealed, nonce, key); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("tampered DecryptSymmetric() error = %v, want ErrDecryptionFailed", err)
	}
}

func TestSymmetricRejects(t *testing.T) {
	var key [32]byte
	var nonce Nonce

	if _, err := EncryptSymmetric(nil, nonce, key); !errors.Is(err, limits.ErrMessageEmpty) {
		t.Errorf("EncryptSymmetric(nil) error = %v, want ErrMessageEmpty", err)
	}
	if _, err := DecryptSymmetric(make([]byte, 15), nonce, key); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("short DecryptSymmetric() error = %v, want ErrDecryptionFailed", err)
	}
}

func TestDeriveSharedKeyMatchesBoxPrecompute(t *testing.T) {
	alice, _ := GenerateKeyPair()
	bob, _ := GenerateKeyPair()

	ab, err := DeriveSharedKey(bob.Public, alice.Private)
	if err != nil {
		t.Fatalf("DeriveSharedKey() error: %v", err)
	}
	ba, err := DeriveSharedKey(alice.Public, bob.Private)
	if err != nil {
		t.Fatalf("DeriveSharedKey() error: %v", err)
	}
	if ab != ba {
		t.Fatal("shared keys differ between the two parties")
	}

	var want [32]byte
	box.Precompute(&want, &bob.Public, &alice.Private)
	if ab != want {
		t.Error("DeriveSharedKey() differs from box.Precompute")
	}
}

func TestDeriveSharedKeyRejectsLowOrderPoint(t *testing.T) {
	alice, _ := GenerateKeyPair()
	if _, err := DeriveSharedKey([32]byte{}, alice.Private); err == nil {
		t.Error("DeriveSharedKey() accepted the zero point")
	}
}
