package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	armorWidth = 80

	// LockSeparator joins a prepended sender Lock to the armored body.
	LockSeparator = "//////"
)

var (
	// ErrNoArmoredMessage indicates that no PassLok blob could be found in the text.
	ErrNoArmoredMessage = errors.New("no PassLok message found")

	// ErrInvalidCharacter indicates base64 content that failed to decode.
	ErrInvalidCharacter = errors.New("invalid character in encoded message")

	whitespacePattern = regexp.MustCompile(`\s+`)
	dashRunPattern    = regexp.MustCompile(`-{3,}`)
	armorTagPattern   = regexp.MustCompile(`-{3,}(BEGIN|END)PASSLOK([A-Z-]*?)MESSAGE-{3,}`)
	embeddedLock      = regexp.MustCompile(`^([0-9a-km-zL]{50})//////(.*)$`)
	lockedBlobPattern = regexp.MustCompile(`[0-9a-km-zL]{50}//////[A-Za-z0-9+/]+`)
	bareBlobPattern   = regexp.MustCompile(`[ASgO][A-Za-z0-9+/]{50,}`)
)

// Armored is a PassLok message recovered from text.
type Armored struct {
	// Label is the mode label from the BEGIN tag, empty when no tag was present.
	Label string
	// Lock is the sender Lock prepended to the body, if any.
	Lock string
	// Binary is the decoded envelope.
	Binary []byte
}

// HasLock reports whether the message carried a prepended Lock.
func (a *Armored) HasLock() bool { return a.Lock != "" }

// Armor renders an envelope for text transport. When lock is not empty it is
// prepended to the base64 body followed by LockSeparator. The body carries no
// '=' padding and is wrapped at 80 columns.
func Armor(label string, binary []byte, lock string) string {
	body := base64.RawStdEncoding.EncodeToString(binary)
	if lock != "" {
		body = lock + LockSeparator + body
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "----BEGIN PASSLOK %s MESSAGE----==\n", label)
	for len(body) > armorWidth {
		sb.WriteString(body[:armorWidth])
		sb.WriteByte('\n')
		body = body[armorWidth:]
	}
	sb.WriteString(body)
	fmt.Fprintf(&sb, "\n==----END PASSLOK %s MESSAGE----", label)
	return sb.String()
}

// ExtractEmbeddedLock strips whitespace, dash runs and '=' from text and
// splits off a leading Lock when the text has the form Lock//////body.
func ExtractEmbeddedLock(text string) (lock, body string) {
	clean := whitespacePattern.ReplaceAllString(text, "")
	clean = dashRunPattern.ReplaceAllString(clean, "")
	clean = strings.ReplaceAll(clean, "=", "")
	if m := embeddedLock.FindStringSubmatch(clean); m != nil {
		return m[1], m[2]
	}
	return "", clean
}

// Dearmor locates a PassLok message inside text, with or without the
// BEGIN/END tags, and decodes it.
func Dearmor(text string) (*Armored, error) {
	clean := whitespacePattern.ReplaceAllString(text, "")

	out := &Armored{}
	if tags := armorTagPattern.FindAllStringSubmatchIndex(clean, 2); len(tags) > 0 {
		begin := tags[0]
		out.Label = strings.Trim(clean[begin[4]:begin[5]], "-")
		end := len(clean)
		if len(tags) > 1 {
			end = tags[1][0]
		}
		clean = clean[begin[1]:end]
	}

	lock, body := ExtractEmbeddedLock(clean)
	if lock == "" {
		switch {
		case lockedBlobPattern.MatchString(body):
			lock, body = ExtractEmbeddedLock(lockedBlobPattern.FindString(body))
		case bareBlobPattern.MatchString(body) && !isBase64Body(body):
			body = bareBlobPattern.FindString(body)
		}
	}
	if body == "" {
		return nil, ErrNoArmoredMessage
	}

	binary, err := base64.RawStdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCharacter, err)
	}
	out.Lock = lock
	out.Binary = binary
	return out, nil
}

// DetectCrypto reports whether text appears to contain a PassLok message.
func DetectCrypto(text string) bool {
	if strings.Contains(text, LockSeparator) {
		return true
	}
	return bareBlobPattern.MatchString(whitespacePattern.ReplaceAllString(text, ""))
}

func isBase64Body(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '+' || c == '/') {
			return false
		}
	}
	return true
}
