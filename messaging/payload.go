package messaging

import (
	"bytes"

	"github.com/opd-ai/passlok/codec"
	"github.com/sirupsen/logrus"
)

// Plaintext is an opened message.
type Plaintext struct {
	Mode      Mode
	ModeLabel string
	// SenderName is the directory name, "Me", or how the key was found
	// ("Invitation Lock", "Folder Key", "Symmetric Password").
	SenderName string
	// SenderLock is the Lock prepended to the armor, if any.
	SenderLock string

	// Exactly one of FolderKey, Document or Text describes the payload.
	FolderKey *[32]byte
	Document  *codec.Document
	Text      string

	Raw     []byte
	Padding []byte
}

// IsFolderKey reports whether the payload was a bare 32-byte key.
func (p *Plaintext) IsFolderKey() bool { return p.FolderKey != nil }

// interpret classifies raw: a 32-byte payload is a folder key, then the
// document container, then legacy LZ-String, then UTF-8. An LZ-String
// reading is kept only when compressing it again gives back raw, so plain
// text that happens to parse as a stream stays plain text.
func (p *Plaintext) interpret(raw []byte) {
	p.Raw = raw
	if len(raw) == 32 {
		var k [32]byte
		copy(k[:], raw)
		p.FolderKey = &k
		return
	}
	if codec.LooksLikeDocument(raw) {
		doc, err := codec.UnpackDocument(raw)
		if err == nil {
			p.Document = &doc
			p.Text = doc.Text
			return
		}
		logrus.WithFields(logrus.Fields{
			"function": "interpret",
			"error":    err.Error(),
		}).Debug("Container header matched but body did not parse")
	}
	if s, err := codec.LZDecompress(raw); err == nil && bytes.Equal(codec.LZCompress(s), raw) {
		p.Text = s
		return
	}
	p.Text = string(raw)
}
