package messaging

import (
	"errors"
	"fmt"

	"github.com/opd-ai/passlok/codec"
	"github.com/opd-ai/passlok/crypto"
	"github.com/opd-ai/passlok/directory"
	"github.com/opd-ai/passlok/interfaces"
	"github.com/opd-ai/passlok/metrics"
	"github.com/opd-ai/passlok/ratchet"
	"github.com/sirupsen/logrus"
)

const sharedPasswordPrompt = "Enter the password for this message:"

// Sender names for keys that do not come from the directory.
const (
	SenderPrepended  = "Prepended Lock"
	SenderMe         = "Me"
	SenderInvitation = "Invitation Lock"
	SenderFolderKey  = "Folder Key"
	SenderPassword   = "Symmetric Password"
)

// Keys is what the caller knows when opening a message.
type Keys struct {
	// Identity opens anonymous, signed and read-once messages.
	Identity *crypto.Identity
	// Email is stored with our Lock in the host record.
	Email string
	// FolderKey is tried on shared-key messages before asking for a
	// password.
	FolderKey *[32]byte
	// Password opens a symmetric message without prompting.
	Password string
}

// Decryptor opens messages against the directory and host records.
type Decryptor struct {
	Repo     directory.Repository
	Hosts    interfaces.HostStore
	Host     string
	Prompter interfaces.Prompter
	Metrics  *metrics.Metrics
}

// NewDecryptor returns a Decryptor for host using the default metrics.
func NewDecryptor(repo directory.Repository, hosts interfaces.HostStore, host string, p interfaces.Prompter) *Decryptor {
	return &Decryptor{Repo: repo, Hosts: hosts, Host: host, Prompter: p, Metrics: metrics.Default}
}

func (dc *Decryptor) metrics() *metrics.Metrics {
	if dc.Metrics == nil {
		return metrics.Default
	}
	return dc.Metrics
}

// DecryptText finds a PassLok message in text, armored or bare, and opens it.
func (dc *Decryptor) DecryptText(text string, k Keys) (*Plaintext, error) {
	a, err := codec.Dearmor(text)
	if err != nil {
		return nil, err
	}
	return dc.Decrypt(a.Binary, a.Lock, k)
}

// Decrypt opens bin. senderLock is the Lock prepended to the armor, or
// empty. The candidate order is the prepended Lock, our own stored Lock,
// then every directory entry by name; the first slot that opens wins.
func (dc *Decryptor) Decrypt(bin []byte, senderLock string, k Keys) (pt *Plaintext, err error) {
	var work *Plaintext
	defer func() {
		label := "unknown"
		if work != nil && work.ModeLabel != "" {
			label = work.ModeLabel
		} else if work != nil {
			label = work.Mode.String()
		}
		dc.metrics().CountMessage("decrypt", label, err)
	}()

	env, err := ParseEnvelope(bin)
	if err != nil {
		return nil, err
	}
	if senderLock != "" && !codec.IsStrictLock(senderLock) {
		return nil, fmt.Errorf("%w: prepended Lock", codec.ErrInvalidLock)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Decrypt",
		"mode":       env.Mode.String(),
		"recipients": len(env.Slots),
		"has_lock":   senderLock != "",
	}).Debug("Opening message")

	pt = &Plaintext{Mode: env.Mode, SenderLock: senderLock, Padding: env.Padding}
	work = pt
	if env.Mode == ModeShared {
		err = dc.openShared(env, pt, k)
	} else {
		if k.Identity == nil {
			return nil, ErrMasterPasswordRequired
		}
		if ok, verr := ValidateMeLock(dc.Hosts, dc.Host, k.Email, k.Identity.Lock, dc.Prompter); verr != nil {
			return nil, verr
		} else if !ok {
			logrus.WithFields(logrus.Fields{
				"function": "Decrypt",
			}).Warn("Derived Lock differs from the stored one; check password and email")
		}

		switch env.Mode {
		case ModeAnonymous:
			pt.ModeLabel = LabelAnonymous
			err = dc.openAnonymous(env, pt, k.Identity)
		case ModeSigned:
			pt.ModeLabel = LabelSigned
			err = dc.openSigned(env, pt, k.Identity)
		case ModeReadOnce:
			pt.ModeLabel = LabelReadOnce
			err = dc.openReadOnce(env, pt, k.Identity)
		}
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Decrypt",
			"mode":     env.Mode.String(),
			"error":    err.Error(),
		}).Warn("Message did not open")
		return nil, err
	}

	if senderLock != "" && env.Mode != ModeReadOnce {
		if lerr := dc.learnSender(pt); lerr != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Decrypt",
				"error":    lerr.Error(),
			}).Warn("Could not record sender Lock")
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "Decrypt",
		"mode":     pt.ModeLabel,
		"sender":   pt.SenderName,
	}).Info("Message opened")
	return pt, nil
}

func (dc *Decryptor) openBody(env *Envelope, key [32]byte, pt *Plaintext) error {
	plain, err := crypto.DecryptSymmetric(env.Cipher, env.nonce24(), key)
	if err != nil {
		return ErrAuthenticationFailed
	}
	pt.interpret(plain)
	return nil
}

// openShared tries the prepended Lock as a key, then the folder key, then a
// password.
func (dc *Decryptor) openShared(env *Envelope, pt *Plaintext, k Keys) error {
	nonce := env.nonce24()
	try := func(key [32]byte) bool {
		_, err := crypto.DecryptSymmetric(env.Cipher, nonce, key)
		return err == nil
	}

	var key [32]byte
	defer crypto.ZeroBytes(key[:])
	found := false

	if pt.SenderLock != "" {
		if lk, err := codec.PublicKeyFromLock(pt.SenderLock); err == nil && try(lk) {
			key, found = lk, true
			pt.SenderName, pt.ModeLabel = SenderInvitation, LabelInvitation
		}
	}
	if !found && k.FolderKey != nil && try(*k.FolderKey) {
		key, found = *k.FolderKey, true
		pt.SenderName, pt.ModeLabel = SenderFolderKey, LabelFolder
	}
	if !found {
		pwd := k.Password
		if pwd == "" && dc.Prompter != nil {
			answer, ok, err := dc.Prompter.Prompt(interfaces.PromptPassword, sharedPasswordPrompt)
			if err != nil {
				return err
			}
			if ok {
				pwd = answer
			}
		}
		if pwd == "" {
			return ErrPasswordRequired
		}
		pk, err := crypto.WiseHash(pwd, env.nonceSalt())
		if err != nil {
			return err
		}
		if !try(pk) {
			crypto.ZeroBytes(pk[:])
			return ErrAuthenticationFailed
		}
		key, found = pk, true
		pt.SenderName, pt.ModeLabel = SenderPassword, LabelSymmetric
	}
	return dc.openBody(env, key, pt)
}

func (dc *Decryptor) openAnonymous(env *Envelope, pt *Plaintext, id *crypto.Identity) error {
	mySecret := id.CurveSecret()
	defer crypto.ZeroBytes(mySecret[:])

	nonce := env.nonce24()
	shared, err := crypto.DeriveSharedKey(env.Ephemeral, mySecret)
	if err != nil {
		return ErrNoMatchingRecipient
	}
	defer crypto.ZeroBytes(shared[:])

	tag, err := idTag(id.SigningPublic, nonce, shared)
	if err != nil {
		return err
	}
	i := findSlot(env.Slots, tag)
	if i < 0 {
		return ErrNoMatchingRecipient
	}
	msgKey, err := openSlot(env.Slots[i], nonce, shared)
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(msgKey[:])
	return dc.openBody(env, msgKey, pt)
}

type senderCandidate struct {
	name string
	lock string
}

// senderCandidates lists the Locks a signed message may come from, in the
// order they are tried.
func (dc *Decryptor) senderCandidates(d *directory.Directory, prepended string) []senderCandidate {
	var out []senderCandidate
	if prepended != "" {
		out = append(out, senderCandidate{name: SenderPrepended, lock: prepended})
	}
	if own := storedLock(dc.Hosts, dc.Host); own != "" {
		out = append(out, senderCandidate{name: SenderMe, lock: own})
	}
	for _, name := range d.Names() {
		e, ok := d.Get(name)
		if !ok || e.IsGroup() {
			continue
		}
		out = append(out, senderCandidate{name: name, lock: e.Lock})
	}
	return out
}

func (dc *Decryptor) openSigned(env *Envelope, pt *Plaintext, id *crypto.Identity) error {
	d, err := dc.Repo.Load()
	if err != nil {
		return err
	}
	mySecret := id.CurveSecret()
	defer crypto.ZeroBytes(mySecret[:])
	nonce := env.nonce24()

	for _, c := range dc.senderCandidates(d, pt.SenderLock) {
		curve, err := crypto.CurvePublicFromLock(c.lock)
		if err != nil {
			continue
		}
		shared, err := crypto.DeriveSharedKey(curve, mySecret)
		if err != nil {
			continue
		}
		tag, err := idTag(id.SigningPublic, nonce, shared)
		if err != nil {
			crypto.ZeroBytes(shared[:])
			return err
		}
		i := findSlot(env.Slots, tag)
		if i < 0 {
			crypto.ZeroBytes(shared[:])
			continue
		}
		msgKey, err := openSlot(env.Slots[i], nonce, shared)
		crypto.ZeroBytes(shared[:])
		if err != nil {
			continue
		}
		pt.SenderName = c.name
		err = dc.openBody(env, msgKey, pt)
		crypto.ZeroBytes(msgKey[:])
		return err
	}
	return ErrNoMatchingRecipient
}

// readOnceTypes is the order slot types are tried for each contact.
var readOnceTypes = []ratchet.MessageType{ratchet.TypeContinue, ratchet.TypeFirstUnlock, ratchet.TypeReset}

// openReadOnce searches the directory for the sender and, once the body
// opens, stores the sender's next Lock. Both happen in one transaction so a
// failed open leaves the ratchet untouched.
func (dc *Decryptor) openReadOnce(env *Envelope, pt *Plaintext, id *crypto.Identity) error {
	mgr, err := ratchet.NewManager(id)
	if err != nil {
		return err
	}
	defer mgr.Close()
	nonce := env.nonce24()

	return dc.Repo.Update(func(d *directory.Directory) error {
		var names []string
		if pt.SenderLock != "" {
			if n, ok := d.FindByLock(pt.SenderLock); ok {
				names = append(names, n)
			}
		}
		for _, n := range d.Names() {
			if len(names) > 0 && n == names[0] {
				continue
			}
			names = append(names, n)
		}

		var corruption error
		for _, name := range names {
			if e, ok := d.Get(name); !ok || e.IsGroup() {
				continue
			}
			for _, t := range readOnceTypes {
				cands, err := mgr.Receive(d, name, t)
				if errors.Is(err, ratchet.ErrStateCorruption) {
					corruption = err
					break
				}
				if err != nil {
					logrus.WithFields(logrus.Fields{
						"function": "openReadOnce",
						"contact":  name,
						"error":    err.Error(),
					}).Debug("Skipping contact")
					break
				}
				for _, c := range cands {
					done, err := dc.tryReadOnceSlot(d, mgr, env, nonce, pt, id, name, t, c.Shared)
					crypto.ZeroBytes(c.Shared[:])
					if done || err != nil {
						return err
					}
				}
			}
		}
		if corruption != nil {
			return corruption
		}
		return ErrNoMatchingRecipient
	})
}

func (dc *Decryptor) tryReadOnceSlot(d *directory.Directory, mgr *ratchet.Manager, env *Envelope, nonce crypto.Nonce,
	pt *Plaintext, id *crypto.Identity, name string, t ratchet.MessageType, shared [32]byte,
) (bool, error) {
	tag, err := idTag(id.SigningPublic, nonce, shared)
	if err != nil {
		return false, err
	}
	i := findReadOnceSlot(env.Slots, tag, t)
	if i < 0 {
		return false, nil
	}
	msgKey, err := openSlot(env.Slots[i], nonce, shared)
	if err != nil {
		return false, nil
	}
	defer crypto.ZeroBytes(msgKey[:])
	next, err := openNextLock(env.Slots[i], nonce, shared)
	if err != nil {
		return true, err
	}
	if err := dc.openBody(env, msgKey, pt); err != nil {
		return true, err
	}
	pt.SenderName = name
	return true, mgr.CommitReceive(d, name, t, next)
}
