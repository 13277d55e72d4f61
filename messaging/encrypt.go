package messaging

import (
	"fmt"

	"github.com/opd-ai/passlok/codec"
	"github.com/opd-ai/passlok/crypto"
	"github.com/opd-ai/passlok/directory"
	"github.com/opd-ai/passlok/interfaces"
	"github.com/opd-ai/passlok/limits"
	"github.com/opd-ai/passlok/metrics"
	"github.com/opd-ai/passlok/ratchet"
	"github.com/sirupsen/logrus"
)

const (
	symmetricPrompt = "Enter a password for Symmetric encryption, or leave empty for an Invitation (using your Lock):"
	decoyKeyPrompt  = "Enter the secret key to encrypt the hidden message:"
)

// Encryptor seals messages against the directory and host records.
type Encryptor struct {
	Repo     directory.Repository
	Hosts    interfaces.HostStore
	Host     string
	Prompter interfaces.Prompter
	Metrics  *metrics.Metrics
}

// NewEncryptor returns an Encryptor for host using the default metrics.
func NewEncryptor(repo directory.Repository, hosts interfaces.HostStore, host string, p interfaces.Prompter) *Encryptor {
	return &Encryptor{Repo: repo, Hosts: hosts, Host: host, Prompter: p, Metrics: metrics.Default}
}

func (e *Encryptor) metrics() *metrics.Metrics {
	if e.Metrics == nil {
		return metrics.Default
	}
	return e.Metrics
}

// Encrypt seals plaintext according to s. Any prompt happens before the
// directory is touched; read-once state is advanced in the same
// transaction that builds the message.
func (e *Encryptor) Encrypt(plaintext []byte, s Settings) (res *Result, err error) {
	label := "unknown"
	defer func() {
		if res != nil {
			label = res.ModeLabel
		}
		e.metrics().CountMessage("encrypt", label, err)
	}()

	if err := limits.ValidatePlaintextMessage(plaintext); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Encrypt",
		"recipients": len(s.Recipients),
		"anonymous":  s.Anonymous,
		"read_once":  s.ReadOnce,
		"size":       len(plaintext),
	}).Debug("Encrypting message")

	if len(s.Recipients) == 0 {
		return e.encryptShared(plaintext, s)
	}
	if !s.Anonymous && s.Identity == nil {
		return nil, ErrMasterPasswordRequired
	}

	padding, err := e.padding(s)
	if err != nil {
		return nil, err
	}
	if s.ReadOnce {
		return e.encryptReadOnce(plaintext, padding, s)
	}
	return e.encryptToRecipients(plaintext, padding, s)
}

// ownLock prefers the Lock derived this session over the stored one.
func (e *Encryptor) ownLock(s Settings) string {
	if s.Identity != nil {
		return s.Identity.Lock
	}
	return storedLock(e.Hosts, e.Host)
}

func storedLock(hosts interfaces.HostStore, host string) string {
	if hosts == nil || host == "" {
		return ""
	}
	rec, err := hosts.HostRecord(host)
	if err != nil || rec.Crypt == nil {
		return ""
	}
	return rec.Crypt.Lock
}

func (e *Encryptor) padding(s Settings) ([]byte, error) {
	if trimmed(s.DecoyText) == "" {
		return randomPadding()
	}
	key := s.DecoyKey
	if key == "" && e.Prompter != nil {
		answer, ok, err := e.Prompter.Prompt(interfaces.PromptPassword, decoyKeyPrompt)
		if err != nil {
			return nil, err
		}
		if ok {
			key = answer
		}
	}
	if key == "" {
		return randomPadding()
	}
	return EncryptDecoy(trimmed(s.DecoyText), key)
}

// encryptShared handles messages with no recipients.
func (e *Encryptor) encryptShared(plaintext []byte, s Settings) (*Result, error) {
	res := &Result{Mode: ModeShared, Lock: e.ownLock(s)}

	env := &Envelope{Mode: ModeShared}
	nonce, err := crypto.RandomBytes(limits.NonceSize)
	if err != nil {
		return nil, err
	}
	copy(env.Nonce[:], nonce)

	var key [32]byte
	defer crypto.ZeroBytes(key[:])

	switch {
	case s.FolderKey != nil:
		key = *s.FolderKey
		res.ModeLabel = LabelFolder
		res.SuppressLock = true
	default:
		pwd, invitation := s.Password, s.Invitation
		if pwd == "" && !invitation {
			if e.Prompter == nil {
				return nil, ErrPasswordRequired
			}
			answer, ok, err := e.Prompter.Prompt(interfaces.PromptPassword, symmetricPrompt)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, ErrCancelled
			}
			pwd = answer
			invitation = trimmed(answer) == ""
		}

		if invitation {
			if res.Lock == "" {
				return nil, ErrLockMissing
			}
			key, err = codec.PublicKeyFromLock(res.Lock)
			if err != nil {
				return nil, fmt.Errorf("own Lock: %w", err)
			}
			res.ModeLabel = LabelInvitation
		} else {
			key, err = crypto.WiseHash(pwd, env.nonceSalt())
			if err != nil {
				return nil, err
			}
			res.ModeLabel = LabelSymmetric
		}
	}

	env.Padding, err = e.padding(s)
	if err != nil {
		return nil, err
	}
	env.Cipher, err = crypto.EncryptSymmetric(plaintext, env.nonce24(), key)
	if err != nil {
		return nil, err
	}
	res.Binary = env.Bytes()

	logrus.WithFields(logrus.Fields{
		"function": "Encrypt",
		"mode":     res.ModeLabel,
	}).Debug("Shared-key message sealed")
	return res, nil
}

// recipientKeys holds a resolved recipient's Lock in both curve forms.
type recipientKeys struct {
	name  string
	edPub [32]byte
	curve [32]byte
}

func keysFor(rs []directory.Recipient) []recipientKeys {
	out := make([]recipientKeys, 0, len(rs))
	for _, r := range rs {
		edPub, err := codec.PublicKeyFromLock(r.Lock)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Encrypt",
				"name":     r.Name,
				"error":    err.Error(),
			}).Warn("Skipping unusable recipient Lock")
			continue
		}
		curve, err := crypto.EdwardsToCurvePublic(edPub)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Encrypt",
				"name":     r.Name,
				"error":    err.Error(),
			}).Warn("Skipping recipient Lock that is not a curve point")
			continue
		}
		out = append(out, recipientKeys{name: r.Name, edPub: edPub, curve: curve})
	}
	return out
}

// encryptToRecipients builds signed and anonymous messages.
func (e *Encryptor) encryptToRecipients(plaintext, padding []byte, s Settings) (*Result, error) {
	d, err := e.Repo.Load()
	if err != nil {
		return nil, err
	}
	resolver := &directory.Resolver{Dir: d, OwnLock: e.ownLock(s)}
	rs, err := resolver.Resolve(s.Recipients)
	if err != nil {
		return nil, err
	}
	if err := limits.ValidateRecipientCount(len(rs)); err != nil {
		return nil, err
	}
	keys := keysFor(rs)
	if len(keys) == 0 {
		return nil, ErrNoRecipients
	}

	res := &Result{Mode: ModeSigned, ModeLabel: LabelSigned, Lock: e.ownLock(s)}
	env := &Envelope{Mode: ModeSigned, Padding: padding}

	var mySecret [32]byte
	defer crypto.ZeroBytes(mySecret[:])
	if s.Anonymous {
		eph, err := crypto.GenerateKeyPair()
		if err != nil {
			return nil, err
		}
		mySecret = eph.Private
		env.Ephemeral = eph.Public
		_ = crypto.WipeKeyPair(eph)
		res.Mode, res.ModeLabel = ModeAnonymous, LabelAnonymous
		env.Mode = ModeAnonymous
	} else {
		mySecret = s.Identity.CurveSecret()
	}

	msgKey, nonce, err := e.freshKeys(env)
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroBytes(msgKey[:])

	for _, k := range keys {
		shared, err := crypto.DeriveSharedKey(k.curve, mySecret)
		if err != nil {
			return nil, err
		}
		slot, err := buildSlot(k.edPub, nonce, msgKey, shared)
		crypto.ZeroBytes(shared[:])
		if err != nil {
			return nil, err
		}
		env.Slots = append(env.Slots, slot)
	}
	if err := shuffleSlots(env.Slots); err != nil {
		return nil, err
	}

	env.Cipher, err = crypto.EncryptSymmetric(plaintext, nonce, msgKey)
	if err != nil {
		return nil, err
	}
	res.Binary = env.Bytes()

	logrus.WithFields(logrus.Fields{
		"function":   "Encrypt",
		"mode":       res.ModeLabel,
		"recipients": len(env.Slots),
	}).Info("Message sealed")
	return res, nil
}

// freshKeys draws the message key and nonce.
func (e *Encryptor) freshKeys(env *Envelope) ([32]byte, crypto.Nonce, error) {
	var msgKey [32]byte
	raw, err := crypto.RandomBytes(limits.KeySize)
	if err != nil {
		return msgKey, crypto.Nonce{}, err
	}
	copy(msgKey[:], raw)
	crypto.ZeroBytes(raw)

	n, err := crypto.RandomBytes(limits.NonceSize)
	if err != nil {
		return msgKey, crypto.Nonce{}, err
	}
	copy(env.Nonce[:], n)
	return msgKey, env.nonce24(), nil
}

// encryptReadOnce builds a read-once message and advances every
// recipient's ratchet inside one directory transaction.
func (e *Encryptor) encryptReadOnce(plaintext, padding []byte, s Settings) (*Result, error) {
	mgr, err := ratchet.NewManager(s.Identity)
	if err != nil {
		return nil, err
	}
	defer mgr.Close()

	res := &Result{Mode: ModeReadOnce, ModeLabel: LabelReadOnce, Lock: s.Identity.Lock}
	env := &Envelope{Mode: ModeReadOnce, Padding: padding}

	err = e.Repo.Update(func(d *directory.Directory) error {
		resolver := &directory.Resolver{Dir: d, ExcludeSelf: true}
		rs, err := resolver.Resolve(s.Recipients)
		if err != nil {
			return err
		}
		if err := limits.ValidateRecipientCount(len(rs)); err != nil {
			return err
		}
		for i := range rs {
			if rs[i].Name != "" {
				continue
			}
			name, ok := d.FindByLock(rs[i].Lock)
			if !ok {
				return fmt.Errorf("%w: %s...", ratchet.ErrNotInDirectory, rs[i].Lock[:8])
			}
			rs[i].Name = name
		}
		keys := keysFor(rs)
		if len(keys) == 0 {
			return ErrNoRecipients
		}

		msgKey, nonce, err := e.freshKeys(env)
		if err != nil {
			return err
		}
		defer crypto.ZeroBytes(msgKey[:])

		steps := make([]*ratchet.SendStep, 0, len(keys))
		defer func() {
			for _, st := range steps {
				st.Wipe()
			}
		}()
		for _, k := range keys {
			step, err := mgr.PrepareSend(d, k.name)
			if err != nil {
				return err
			}
			steps = append(steps, step)
			slot, err := buildReadOnceSlot(k.edPub, nonce, msgKey, step)
			if err != nil {
				return err
			}
			env.Slots = append(env.Slots, slot)
		}
		if err := shuffleSlots(env.Slots); err != nil {
			return err
		}

		env.Cipher, err = crypto.EncryptSymmetric(plaintext, nonce, msgKey)
		if err != nil {
			return err
		}
		for _, st := range steps {
			if err := mgr.Commit(d, st); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Binary = env.Bytes()

	logrus.WithFields(logrus.Fields{
		"function":   "Encrypt",
		"mode":       res.ModeLabel,
		"recipients": len(env.Slots),
	}).Info("Read-once message sealed")
	return res, nil
}
