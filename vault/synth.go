package vault

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"unicode"

	"github.com/opd-ai/passlok/crypto"
	"github.com/opd-ai/passlok/directory"
	"github.com/sirupsen/logrus"
)

// DefaultCharset is used when a site sets no allowed characters.
const DefaultCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*_-+="

var charsetKeywords = map[string]string{
	"numbers":      "0123456789",
	"numeric":      "0123456789",
	"alpha":        "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ",
	"alphanumeric": "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789",
	"lowercase":    "abcdefghijklmnopqrstuvwxyz",
	"uppercase":    "ABCDEFGHIJKLMNOPQRSTUVWXYZ",
	"hex":          "0123456789abcdef",
}

var letterRuns = regexp.MustCompile(`(?i)[a-z]+|[^a-z]+`)

// BuildCharset expands a site's allowed-characters field. Runs of letters
// that spell a keyword ("alphanumeric", "hex", ...) expand to that class in
// any letter case; everything else is taken literally. Duplicates and
// whitespace are dropped and first occurrences keep their order.
func BuildCharset(input string) string {
	var expanded strings.Builder
	for _, part := range letterRuns.FindAllString(input, -1) {
		if class, ok := charsetKeywords[strings.ToLower(part)]; ok {
			expanded.WriteString(class)
		} else {
			expanded.WriteString(part)
		}
	}

	seen := make(map[rune]bool)
	var out strings.Builder
	for _, r := range expanded.String() {
		if seen[r] || unicode.IsSpace(r) {
			continue
		}
		seen[r] = true
		out.WriteRune(r)
	}
	return out.String()
}

// Synthesize derives the password for host from the master password. The
// 32-byte wiseHash of the master password salted with host and serial is
// read as a big-endian number and written in base len(charset), most
// significant digit first, then cut to the length limit. Changing the serial
// gives a new password for the same site.
func Synthesize(masterPwd, host string, settings directory.SynthSettings) (string, error) {
	masterPwd = strings.TrimSpace(masterPwd)
	if masterPwd == "" {
		return "", ErrMasterPasswordRequired
	}
	charset := []rune(DefaultCharset)
	if allowed := strings.TrimSpace(settings.AllowedChars); allowed != "" {
		charset = []rune(BuildCharset(allowed))
	}
	if len(charset) < 2 {
		return "", fmt.Errorf("%w: %q", ErrCharsetTooSmall, string(charset))
	}

	digest, err := crypto.WiseHash(masterPwd, host+strings.TrimSpace(settings.Serial))
	if err != nil {
		return "", err
	}
	n := new(big.Int).SetBytes(digest[:])
	crypto.ZeroBytes(digest[:])

	base := big.NewInt(int64(len(charset)))
	rem := new(big.Int)
	var digits []rune
	for n.Sign() > 0 {
		n.DivMod(n, base, rem)
		digits = append(digits, charset[rem.Int64()])
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}

	if settings.LengthLimit > 0 && settings.LengthLimit < len(digits) {
		digits = digits[:settings.LengthLimit]
	}

	logrus.WithFields(logrus.Fields{
		"function": "Synthesize",
		"host":     host,
		"charset":  len(charset),
		"length":   len(digits),
	}).Debug("Password synthesized")
	return string(digits), nil
}
