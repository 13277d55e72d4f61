package vault

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opd-ai/passlok/crypto"
	"github.com/opd-ai/passlok/directory"
	"github.com/opd-ai/passlok/interfaces"
	"github.com/sirupsen/logrus"
)

var (
	// ErrMasterPasswordRequired is returned before any key is derived from
	// an empty master password.
	ErrMasterPasswordRequired = errors.New("please enter your Master Password")

	// ErrCharsetTooSmall is returned when the allowed characters leave fewer
	// than two symbols to write a password with.
	ErrCharsetTooSmall = errors.New("allowed characters must contain at least two symbols")

	// ErrEmptyValue is returned when an empty password would be stored.
	ErrEmptyValue = errors.New("password not stored: value is empty")

	// ErrWrongMasterPassword is returned when a stored blob no longer opens.
	ErrWrongMasterPassword = errors.New("decryption failed: check your Master Password")
)

// DeleteCommand typed as a vault password removes the stored one.
const DeleteCommand = "DELETE"

// OnceSeparator sits between the regular and the read-once note in
// Notes.String.
const OnceSeparator = "\n\n--- READ-ONCE NOTE ---\n\n"

// Vault keeps per-site secrets in host records. Each value is a k-mode blob
// under wiseHash(master password, host).
type Vault struct {
	Hosts interfaces.HostStore
}

// New returns a Vault backed by hosts.
func New(hosts interfaces.HostStore) *Vault {
	return &Vault{Hosts: hosts}
}

func (v *Vault) key(masterPwd, host string) ([32]byte, error) {
	if masterPwd == "" {
		return [32]byte{}, ErrMasterPasswordRequired
	}
	return crypto.WiseHash(masterPwd, host)
}

func (v *Vault) load(host string) (string, directory.HostRecord, error) {
	host = directory.RegisteredDomain(host)
	rec, err := v.Hosts.HostRecord(host)
	if err != nil {
		return host, rec, fmt.Errorf("loading host record for %s: %w", host, err)
	}
	return host, rec, nil
}

func (v *Vault) open(blob, masterPwd, host string) (string, error) {
	key, err := v.key(masterPwd, host)
	if err != nil {
		return "", err
	}
	defer crypto.ZeroBytes(key[:])
	plain, err := crypto.KeyDecrypt(blob, key)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Vault.open",
			"host":     host,
			"error":    err.Error(),
		}).Warn("Stored value did not open")
		return "", fmt.Errorf("%w: %w", ErrWrongMasterPassword, err)
	}
	return string(plain), nil
}

func (v *Vault) seal(text, masterPwd, host string) (string, error) {
	key, err := v.key(masterPwd, host)
	if err != nil {
		return "", err
	}
	defer crypto.ZeroBytes(key[:])
	return crypto.KeyEncrypt([]byte(text), key)
}

// SynthSettings returns the stored synthesizer inputs for host.
func (v *Vault) SynthSettings(host string) (directory.SynthSettings, error) {
	_, rec, err := v.load(host)
	if err != nil || rec.Synth == nil {
		return directory.SynthSettings{}, err
	}
	return *rec.Synth, nil
}

// SaveSynthSettings stores the synthesizer inputs for host.
func (v *Vault) SaveSynthSettings(host string, s directory.SynthSettings) error {
	host, rec, err := v.load(host)
	if err != nil {
		return err
	}
	s.Serial = strings.TrimSpace(s.Serial)
	s.AllowedChars = strings.TrimSpace(s.AllowedChars)
	if (s == directory.SynthSettings{}) {
		rec.Synth = nil
	} else {
		rec.Synth = &s
	}
	return v.Hosts.PutHostRecord(host, rec)
}

// Synth synthesizes the password for host with its stored settings.
func (v *Vault) Synth(masterPwd, host string) (string, error) {
	host, rec, err := v.load(host)
	if err != nil {
		return "", err
	}
	var s directory.SynthSettings
	if rec.Synth != nil {
		s = *rec.Synth
	}
	return Synthesize(masterPwd, host, s)
}

// StoredPassword opens the vault password for host. ok is false when none
// is stored.
func (v *Vault) StoredPassword(masterPwd, host string) (pwd string, ok bool, err error) {
	host, rec, err := v.load(host)
	if err != nil {
		return "", false, err
	}
	if rec.Crypt == nil || rec.Crypt.Pwd == "" {
		return "", false, nil
	}
	pwd, err = v.open(rec.Crypt.Pwd, masterPwd, host)
	if err != nil {
		return "", false, err
	}
	return pwd, true, nil
}

// StorePassword seals pwd as the vault password for host. Typing
// DeleteCommand, in upper or lower case, removes the stored password
// instead; deleted reports which happened.
func (v *Vault) StorePassword(masterPwd, host, pwd string) (deleted bool, err error) {
	if pwd == DeleteCommand || pwd == strings.ToLower(DeleteCommand) {
		return true, v.DeletePassword(host)
	}
	if strings.TrimSpace(pwd) == "" {
		return false, ErrEmptyValue
	}

	host, rec, err := v.load(host)
	if err != nil {
		return false, err
	}
	blob, err := v.seal(pwd, masterPwd, host)
	if err != nil {
		return false, err
	}
	rec.EnsureCrypt().Pwd = blob
	if err := v.Hosts.PutHostRecord(host, rec); err != nil {
		return false, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Vault.StorePassword",
		"host":     host,
	}).Info("Password stored")
	return false, nil
}

// DeletePassword removes the vault password for host.
func (v *Vault) DeletePassword(host string) error {
	host, rec, err := v.load(host)
	if err != nil {
		return err
	}
	if rec.Crypt == nil || rec.Crypt.Pwd == "" {
		return nil
	}
	rec.Crypt.Pwd = ""
	return v.Hosts.PutHostRecord(host, rec)
}
