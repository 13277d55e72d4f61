package messaging

import (
	"strings"

	"github.com/opd-ai/passlok/codec"
	"github.com/opd-ai/passlok/crypto"
)

// Settings selects how Encrypt seals a message.
type Settings struct {
	// Recipients are directory names, =group= names, literal Locks, comma
	// lists or "me". No recipients routes to the folder key, symmetric or
	// invitation path.
	Recipients []string

	Anonymous bool
	ReadOnce  bool

	// Identity is required for signed and read-once messages.
	Identity *crypto.Identity

	// FolderKey, when set, seals recipient-less messages directly.
	FolderKey *[32]byte

	// Password seals a recipient-less message symmetrically. When it is
	// empty and Invitation is false the Prompter is asked.
	Password   string
	Invitation bool

	// DecoyText is hidden in the padding under DecoyKey. A missing key is
	// prompted for; declining leaves the padding random.
	DecoyText string
	DecoyKey  string
}

// Validate checks for contradictory settings.
func (s Settings) Validate() error {
	if s.Anonymous && s.ReadOnce {
		return ErrConflictingModes
	}
	return nil
}

// Result is a sealed message.
type Result struct {
	Binary    []byte
	Mode      Mode
	ModeLabel string
	// Lock is our own Lock when it is known, for the optional armor prefix.
	Lock string
	// SuppressLock forbids the prefix (folder key messages).
	SuppressLock bool
}

// lockAllowed reports whether the prefix may be added on request.
func (r *Result) lockAllowed() bool {
	switch r.ModeLabel {
	case LabelSigned, LabelAnonymous, LabelSymmetric:
		return true
	}
	return false
}

// PrefixLock returns the Lock to prepend in armor: always for invitations,
// on request for signed, anonymous and symmetric messages, never otherwise.
func (r *Result) PrefixLock(includeLock bool) string {
	if r.SuppressLock || !codec.IsStrictLock(r.Lock) {
		return ""
	}
	if r.ModeLabel == LabelInvitation || (includeLock && r.lockAllowed()) {
		return r.Lock
	}
	return ""
}

// Armor renders the result for text transport.
func (r *Result) Armor(includeLock bool) string {
	return codec.Armor(r.ModeLabel, r.Binary, r.PrefixLock(includeLock))
}

func trimmed(s string) string { return strings.TrimSpace(s) }
