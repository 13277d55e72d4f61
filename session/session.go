package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/awnumar/memguard"
	"github.com/opd-ai/passlok/crypto"
	"github.com/opd-ai/passlok/metrics"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout is how long key material survives without activity.
const DefaultTimeout = 5 * time.Minute

// Session lifecycle events reported to metrics and OnExpire.
const (
	EventUnlock = "unlock"
	EventLock   = "lock"
	EventExpire = "expire"
)

var (
	// ErrLocked is returned when key material is requested from a session
	// that was never unlocked, was locked or has timed out.
	ErrLocked = errors.New("session is locked: enter the master password")

	// ErrNoFolderKey is returned when no folder key is active.
	ErrNoFolderKey = errors.New("no active folder key")

	// ErrInvalidTimeout is returned by Config.Validate for negative timeouts.
	ErrInvalidTimeout = errors.New("session timeout must not be negative")

	// ErrInvalidMnemonic is returned when a backup phrase does not decode to
	// a 32-byte folder key.
	ErrInvalidMnemonic = errors.New("invalid folder key mnemonic")
)

// Config controls a Session.
type Config struct {
	// Timeout is the inactivity deadline. Zero means DefaultTimeout.
	Timeout time.Duration
	// Email salts the identity derived from the master password.
	Email string
	// TimeProvider schedules the deadline. Nil means the package default.
	TimeProvider crypto.TimeProvider
	Metrics      *metrics.Metrics
	// OnExpire runs after the deadline wiped the session.
	OnExpire func()
}

// Validate rejects impossible settings.
func (c Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.Timeout)
	}
	return nil
}

func (c Config) timeout() time.Duration {
	if c.Timeout == 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// Session keeps the master password, the identity derived from it and the
// active folder key in memguard enclaves. Everything is destroyed when the
// inactivity deadline passes; every successful access pushes the deadline
// back.
type Session struct {
	mu       sync.Mutex
	cfg      Config
	tp       crypto.TimeProvider
	master   *memguard.Enclave
	folder   *memguard.Enclave
	identity *crypto.Identity
	idEmail  string
	timer    crypto.Timer
	// gen invalidates callbacks from timers stopped too late.
	gen uint64
}

// New returns a locked Session.
func New(cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tp := cfg.TimeProvider
	if tp == nil {
		tp = crypto.GetDefaultTimeProvider()
	}
	return &Session{cfg: cfg, tp: tp}, nil
}

func (s *Session) metrics() *metrics.Metrics {
	if s.cfg.Metrics == nil {
		return metrics.Default
	}
	return s.cfg.Metrics
}

// Email returns the configured identity salt.
func (s *Session) Email() string {
	return s.cfg.Email
}

// Unlock stores the master password and starts the deadline. A previous
// password, cached identity and folder key are discarded.
func (s *Session) Unlock(masterPwd string) error {
	if masterPwd == "" {
		return crypto.ErrEmptyPassword
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.wipeLocked()
	s.master = memguard.NewEnclave([]byte(masterPwd))
	s.armLocked()

	s.metrics().CountSession(EventUnlock)
	logrus.WithFields(logrus.Fields{
		"function": "Session.Unlock",
		"timeout":  s.cfg.timeout().String(),
	}).Debug("Session unlocked")
	return nil
}

// Unlocked reports whether a master password is held.
func (s *Session) Unlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.master != nil
}

// MasterPassword returns a copy of the master password.
func (s *Session) MasterPassword() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.master == nil {
		return "", ErrLocked
	}
	buf, err := s.master.Open()
	if err != nil {
		return "", fmt.Errorf("opening master password enclave: %w", err)
	}
	defer buf.Destroy()
	s.touchLocked()
	return string(buf.Bytes()), nil
}

// Identity derives the identity for the configured email on first use and
// caches it until the session ends. Each call returns a fresh copy that the
// caller owns and should Wipe when done; locking wipes only the cached one.
func (s *Session) Identity() (*crypto.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.master == nil {
		return nil, ErrLocked
	}
	if s.identity != nil && s.idEmail == s.cfg.Email {
		s.touchLocked()
		cp := *s.identity
		return &cp, nil
	}

	buf, err := s.master.Open()
	if err != nil {
		return nil, fmt.Errorf("opening master password enclave: %w", err)
	}
	id, err := crypto.DeriveIdentity(string(buf.Bytes()), s.cfg.Email)
	buf.Destroy()
	if err != nil {
		return nil, err
	}
	s.identity.Wipe()
	s.identity, s.idEmail = id, s.cfg.Email
	s.touchLocked()
	cp := *id
	return &cp, nil
}

// SetFolderKey makes key the active folder key. It does not need the master
// password, but a held session's deadline is extended.
func (s *Session) SetFolderKey(key [32]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folder = memguard.NewEnclave(key[:])
	if s.timer == nil {
		s.armLocked()
	} else {
		s.touchLocked()
	}
	logrus.WithFields(logrus.Fields{
		"function": "Session.SetFolderKey",
	}).Info("Folder key activated")
}

// FolderKey returns a copy of the active folder key.
func (s *Session) FolderKey() (*[32]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.folder == nil {
		return nil, ErrNoFolderKey
	}
	buf, err := s.folder.Open()
	if err != nil {
		return nil, fmt.Errorf("opening folder key enclave: %w", err)
	}
	defer buf.Destroy()
	var key [32]byte
	copy(key[:], buf.Bytes())
	s.touchLocked()
	return &key, nil
}

// ClearFolderKey forgets the active folder key.
func (s *Session) ClearFolderKey() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folder = nil
}

// Touch records user activity and pushes the deadline back.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
}

// Lock wipes everything immediately.
func (s *Session) Lock() {
	s.mu.Lock()
	held := s.master != nil || s.folder != nil
	s.wipeLocked()
	s.mu.Unlock()
	if held {
		s.metrics().CountSession(EventLock)
	}
}

func (s *Session) expire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	held := s.master != nil || s.folder != nil
	s.wipeLocked()
	s.mu.Unlock()
	if !held {
		return
	}

	s.metrics().CountSession(EventExpire)
	logrus.WithFields(logrus.Fields{
		"function": "Session.expire",
	}).Info("Inactivity timeout: session keys cleared")
	if s.cfg.OnExpire != nil {
		s.cfg.OnExpire()
	}
}

func (s *Session) armLocked() {
	if s.timer != nil {
		s.timer.Reset(s.cfg.timeout())
		return
	}
	gen := s.gen
	s.timer = s.tp.AfterFunc(s.cfg.timeout(), func() { s.expire(gen) })
}

func (s *Session) touchLocked() {
	if s.timer != nil {
		s.timer.Reset(s.cfg.timeout())
	}
}

func (s *Session) wipeLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.master = nil
	s.folder = nil
	s.identity.Wipe()
	s.identity, s.idEmail = nil, ""
}
