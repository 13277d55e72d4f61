package crypto

import (
	"crypto/sha512"
	"strings"
)

const (
	hashiliVowels     = "aeiou"
	hashiliConsonants = "bcdfghjklmnprstvwxyz"
)

// MakeHashili returns a four-letter pronounceable checksum of s, so a user
// can tell at a glance whether a password was typed the same way as before.
// Empty (after trimming) input gives "".
func MakeHashili(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	sum := sha512.Sum512([]byte(s))
	code := (int(sum[62])<<8 + int(sum[63])) % 10000

	var b strings.Builder
	for i := 0; i < 2; i++ {
		rem := code % 100
		b.WriteByte(hashiliConsonants[rem/5])
		b.WriteByte(hashiliVowels[rem%5])
		code /= 100
	}
	return b.String()
}
