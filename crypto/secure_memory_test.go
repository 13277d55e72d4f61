package crypto

import "testing"

func TestSecureWipe(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	if err := SecureWipe(data); err != nil {
		t.Fatalf("SecureWipe() error: %v", err)
	}
	for i, b := range data {
		if b != 0 {
			t.Fatalf("byte %d not wiped", i)
		}
	}

	if err := SecureWipe(nil); err == nil {
		t.Error("SecureWipe(nil) should fail")
	}
	ZeroBytes(nil)
}

func TestWipeKeyPair(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	if err := WipeKeyPair(kp); err != nil {
		t.Fatalf("WipeKeyPair() error: %v", err)
	}
	if !isZeroKey(kp.Private) {
		t.Error("private key survived WipeKeyPair")
	}
	if isZeroKey(kp.Public) {
		t.Error("public key should be left intact")
	}
	if err := WipeKeyPair(nil); err == nil {
		t.Error("WipeKeyPair(nil) should fail")
	}
}
