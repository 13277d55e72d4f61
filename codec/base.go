package codec

import (
	"math/big"
	"strings"
)

// Alphabets used by the Lock encoding. Base36 uses a capital L so that it
// cannot be confused with the digit 1.
const (
	Base36 = "0123456789abcdefghijkLmnopqrstuvwxyz"
	Base64 = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
)

// Padded lengths of a Lock in each alphabet.
const (
	LockLength36 = 50
	LockLength64 = 43
)

// ChangeBase re-expresses the number written in inAlpha using outAlpha.
// Characters that are not part of inAlpha (line breaks, '=' padding) are
// skipped. When isLock is set the result is left-padded with the zero digit
// of outAlpha to the Lock length of the output base.
func ChangeBase(numberIn, inAlpha, outAlpha string, isLock bool) string {
	baseIn := big.NewInt(int64(len(inAlpha)))
	baseOut := big.NewInt(int64(len(outAlpha)))

	value := new(big.Int)
	for i := 0; i < len(numberIn); i++ {
		idx := strings.IndexByte(inAlpha, numberIn[i])
		if idx < 0 {
			continue
		}
		value.Mul(value, baseIn)
		value.Add(value, big.NewInt(int64(idx)))
	}

	var digits []byte
	if value.Sign() == 0 {
		digits = []byte{outAlpha[0]}
	} else {
		rem := new(big.Int)
		for value.Sign() > 0 {
			value.DivMod(value, baseOut, rem)
			digits = append(digits, outAlpha[rem.Int64()])
		}
		reverse(digits)
	}

	if isLock {
		lockLength := LockLength64
		if len(outAlpha) == 36 {
			lockLength = LockLength36
		}
		if pad := lockLength - len(digits); pad > 0 {
			digits = append([]byte(strings.Repeat(outAlpha[:1], pad)), digits...)
		}
	}
	return string(digits)
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
