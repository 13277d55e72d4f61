package passlok

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/opd-ai/passlok/codec"
	"github.com/opd-ai/passlok/crypto"
	"github.com/opd-ai/passlok/directory"
	"github.com/opd-ai/passlok/interfaces"
	"github.com/opd-ai/passlok/messaging"
	"github.com/opd-ai/passlok/metrics"
	"github.com/opd-ai/passlok/session"
	"github.com/opd-ai/passlok/stego"
	"github.com/opd-ai/passlok/vault"
	"github.com/sirupsen/logrus"
)

const masterPasswordPrompt = "Enter your Master Password:"

// Store is a directory repository that also keeps host records. Both
// directory stores satisfy it.
type Store interface {
	directory.Repository
	interfaces.HostStore
}

// Options configures a new PassLok instance.
type Options struct {
	// Email salts the identity derived from the master password.
	Email string
	// Host is the site messages are handled for. Our own Lock is recorded
	// under it.
	Host string
	// StorePath is a bolt database file. Empty keeps everything in memory
	// unless Store is set.
	StorePath string
	// Store overrides StorePath.
	Store Store

	SessionTimeout time.Duration
	// OnSessionExpire runs after the inactivity deadline wiped the keys.
	OnSessionExpire func()

	// Prompter is asked for missing passwords, confirmations and contact
	// names. Without one those operations fail instead of asking.
	Prompter interfaces.Prompter

	// JPEGQuality is used for JPEG stego carriers. Zero means
	// stego.DefaultQuality.
	JPEGQuality int

	TimeProvider crypto.TimeProvider
	Metrics      *metrics.Metrics
}

// NewOptions returns the defaults.
func NewOptions() *Options {
	return &Options{
		Host:           "passlok",
		SessionTimeout: session.DefaultTimeout,
		JPEGQuality:    stego.DefaultQuality,
	}
}

// PassLok ties the session, the directory and the message, stego and vault
// tools together.
type PassLok struct {
	options *Options
	store   Store
	closer  func() error
	session *session.Session
	vault   *vault.Vault
	enc     *messaging.Encryptor
	dec     *messaging.Decryptor
}

// New opens the store and returns a locked instance.
func New(options *Options) (*PassLok, error) {
	if options == nil {
		options = NewOptions()
	}
	if options.JPEGQuality != 0 && (options.JPEGQuality < 1 || options.JPEGQuality > 90) {
		return nil, stego.ErrInvalidQuality
	}

	sess, err := session.New(session.Config{
		Timeout:      options.SessionTimeout,
		Email:        options.Email,
		TimeProvider: options.TimeProvider,
		Metrics:      options.Metrics,
		OnExpire:     options.OnSessionExpire,
	})
	if err != nil {
		return nil, err
	}

	p := &PassLok{options: options, session: sess, closer: func() error { return nil }}
	switch {
	case options.Store != nil:
		p.store = options.Store
	case options.StorePath != "":
		bs, err := directory.OpenBoltStore(options.StorePath)
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		p.store, p.closer = bs, bs.Close
	default:
		p.store = directory.NewMemoryStore()
	}

	host := directory.RegisteredDomain(options.Host)
	p.vault = vault.New(p.store)
	p.enc = messaging.NewEncryptor(p.store, p.store, host, options.Prompter)
	p.dec = messaging.NewDecryptor(p.store, p.store, host, options.Prompter)
	if options.Metrics != nil {
		p.enc.Metrics = options.Metrics
		p.dec.Metrics = options.Metrics
	}

	logrus.WithFields(logrus.Fields{
		"function":   "New",
		"host":       host,
		"persistent": options.StorePath != "" || options.Store != nil,
	}).Info("PassLok initialized")
	return p, nil
}

// Close locks the session and closes the store.
func (p *PassLok) Close() error {
	p.session.Lock()
	return p.closer()
}

// Session exposes the key holder.
func (p *PassLok) Session() *session.Session { return p.session }

// Vault exposes the per-site password tools.
func (p *PassLok) Vault() *vault.Vault { return p.vault }

// Directory exposes the contact store.
func (p *PassLok) Directory() directory.Repository { return p.store }

// Host returns the site records are kept under.
func (p *PassLok) Host() string { return p.enc.Host }

// Unlock stores the master password for the session.
func (p *PassLok) Unlock(masterPwd string) error {
	return p.session.Unlock(masterPwd)
}

// Lock wipes the session keys.
func (p *PassLok) Lock() { p.session.Lock() }

// MasterPassword returns the session's master password, asking for it
// when the session is locked.
func (p *PassLok) MasterPassword() (string, error) {
	pwd, err := p.session.MasterPassword()
	if !errors.Is(err, session.ErrLocked) {
		return pwd, err
	}
	if p.options.Prompter == nil {
		return "", err
	}
	answer, ok, perr := p.options.Prompter.Prompt(interfaces.PromptPassword, masterPasswordPrompt)
	if perr != nil {
		return "", perr
	}
	if !ok || strings.TrimSpace(answer) == "" {
		return "", messaging.ErrMasterPasswordRequired
	}
	if err := p.session.Unlock(answer); err != nil {
		return "", err
	}
	return answer, nil
}

func (p *PassLok) identity() (*crypto.Identity, error) {
	if _, err := p.MasterPassword(); err != nil {
		return nil, err
	}
	return p.session.Identity()
}

// MyLock returns the Lock for the session's master password and email.
func (p *PassLok) MyLock() (string, error) {
	id, err := p.identity()
	if err != nil {
		return "", err
	}
	defer id.Wipe()
	return id.Lock, nil
}

// Hashili returns the checksum of the session's master password.
func (p *PassLok) Hashili() (string, error) {
	pwd, err := p.MasterPassword()
	if err != nil {
		return "", err
	}
	return crypto.MakeHashili(pwd), nil
}

func (p *PassLok) folderKey() *[32]byte {
	key, err := p.session.FolderKey()
	if err != nil {
		return nil
	}
	return key
}

// Encrypt seals plaintext. The session fills in what s leaves out: the
// identity for signed and read-once messages and for invitations, and the
// active folder key for recipient-less messages without a password.
func (p *PassLok) Encrypt(plaintext []byte, s messaging.Settings) (*messaging.Result, error) {
	shared := len(s.Recipients) == 0
	if shared && s.FolderKey == nil && s.Password == "" && !s.Invitation {
		if s.FolderKey = p.folderKey(); s.FolderKey != nil {
			defer crypto.ZeroBytes(s.FolderKey[:])
		}
	}
	if s.Identity == nil {
		needsID := !shared && !s.Anonymous
		if needsID || (shared && s.Invitation) {
			id, err := p.identity()
			if err != nil {
				return nil, err
			}
			s.Identity = id
		} else if p.session.Unlocked() {
			s.Identity, _ = p.session.Identity()
		}
		defer s.Identity.Wipe()
	}
	return p.enc.Encrypt(plaintext, s)
}

// EncryptText seals text and returns it armored.
func (p *PassLok) EncryptText(text string, s messaging.Settings, includeLock bool) (string, error) {
	res, err := p.Encrypt([]byte(text), s)
	if err != nil {
		return "", err
	}
	return res.Armor(includeLock), nil
}

// ShareFolderKey seals the active folder key, or a new one that becomes
// active, as the payload of a message for s.Recipients.
func (p *PassLok) ShareFolderKey(s messaging.Settings) (*messaging.Result, error) {
	key := p.folderKey()
	if key == nil {
		fresh, err := session.NewFolderKey()
		if err != nil {
			return nil, err
		}
		p.session.SetFolderKey(fresh)
		key = &fresh
	}
	defer crypto.ZeroBytes(key[:])
	return p.Encrypt(key[:], s)
}

// Decrypt opens an armored or bare message. A folder key payload becomes
// the session's active folder key.
func (p *PassLok) Decrypt(text string) (*messaging.Plaintext, error) {
	a, err := codec.Dearmor(text)
	if err != nil {
		return nil, err
	}
	return p.decryptBinary(a.Binary, a.Lock)
}

func (p *PassLok) decryptBinary(bin []byte, senderLock string) (*messaging.Plaintext, error) {
	if len(bin) == 0 {
		return nil, messaging.ErrTruncated
	}
	keys := messaging.Keys{Email: p.session.Email(), FolderKey: p.folderKey()}
	if keys.FolderKey != nil {
		defer crypto.ZeroBytes(keys.FolderKey[:])
	}

	var err error
	if messaging.Mode(bin[0]) != messaging.ModeShared {
		if keys.Identity, err = p.identity(); err != nil {
			return nil, err
		}
	} else if p.session.Unlocked() {
		keys.Identity, _ = p.session.Identity()
	}
	defer keys.Identity.Wipe()

	pt, err := p.dec.Decrypt(bin, senderLock, keys)
	if err != nil {
		return nil, err
	}
	p.session.Touch()
	if pt.IsFolderKey() {
		p.session.SetFolderKey(*pt.FolderKey)
	}
	return pt, nil
}

// DecryptDecoy opens the decoy text hidden in a message's padding.
func (p *PassLok) DecryptDecoy(pt *messaging.Plaintext, key string) (string, error) {
	return messaging.DecryptDecoy(pt.Padding, key)
}

// stegoOptions builds the hide/reveal options from "primary|secondary"
// password input. An active folder key replaces the primary password.
func (p *PassLok) stegoOptions(passwords string) (stego.Options, error) {
	first, second := stego.SplitPair(passwords)
	opts := stego.Options{Iterations: 1, Iterations2: 1, Quality: p.options.JPEGQuality, Metrics: p.options.Metrics}

	var err error
	if key := p.folderKey(); key != nil {
		opts.Password, err = stego.FolderPassword(*key)
		crypto.ZeroBytes(key[:])
	} else if first != "" {
		opts.Password, err = stego.StretchPassword(first, false)
	}
	if err != nil {
		return opts, err
	}
	if opts.Password == "" {
		return opts, stego.ErrPasswordRequired
	}
	if second != "" {
		if opts.Password2, err = stego.StretchPassword(second, true); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// Hide embeds payload in img and returns the encoded carrier. secondary is
// hidden after it when passwords carries a second password.
func (p *PassLok) Hide(img image.Image, format stego.Format, payload, secondary []byte, passwords string) ([]byte, error) {
	opts, err := p.stegoOptions(passwords)
	if err != nil {
		return nil, err
	}
	if secondary != nil && opts.Password2 == "" {
		return nil, fmt.Errorf("%w: secondary message", stego.ErrPasswordRequired)
	}
	opts.Secondary = secondary

	switch format {
	case stego.FormatPNG:
		return stego.HidePNG(img, payload, opts)
	case stego.FormatJPEG:
		return stego.HideJPEG(img, payload, opts)
	}
	return nil, fmt.Errorf("%w: %q", stego.ErrUnknownFormat, format)
}

// HideText hides text without encrypting it, behind the plain-text marker.
func (p *PassLok) HideText(img image.Image, format stego.Format, text, passwords string) ([]byte, error) {
	return p.Hide(img, format, stego.MarkText(text), nil, passwords)
}

// Reveal extracts the messages hidden in an encoded PNG or JPEG carrier.
func (p *PassLok) Reveal(carrier []byte, passwords string) (*stego.Revealed, stego.Format, error) {
	opts, err := p.stegoOptions(passwords)
	if err != nil {
		return nil, "", err
	}
	return stego.Reveal(carrier, opts)
}

// OpenRevealed interprets a revealed payload: PassLok messages are
// decrypted, marked or plain text is returned as is.
func (p *PassLok) OpenRevealed(payload []byte) (*messaging.Plaintext, error) {
	kind, body := stego.Classify(payload)
	if kind != stego.PayloadEnvelope {
		return &messaging.Plaintext{Text: string(body), Raw: body}, nil
	}
	return p.decryptBinary(body, "")
}
