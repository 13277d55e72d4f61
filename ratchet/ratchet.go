package ratchet

import (
	"errors"
	"fmt"

	"github.com/opd-ai/passlok/crypto"
	"github.com/opd-ai/passlok/directory"
	"github.com/opd-ai/passlok/metrics"
)

// MessageType is the byte carried in every read-once slot telling the
// recipient which of its keys the sender used.
type MessageType byte

const (
	// TypeReset: the sender holds no state and used both permanent keys.
	TypeReset MessageType = 172
	// TypeFirstUnlock: the sender answers for the first time, with its
	// permanent key against the ephemeral Lock it last received.
	TypeFirstUnlock MessageType = 164
	// TypeContinue: the sender used its previous ephemeral key.
	TypeContinue MessageType = 160
)

// String returns the label used in logs and metrics.
func (t MessageType) String() string {
	switch t {
	case TypeReset:
		return "reset"
	case TypeFirstUnlock:
		return "first-unlock"
	case TypeContinue:
		return "continue"
	}
	return fmt.Sprintf("unknown(%d)", byte(t))
}

// Valid reports whether t is one of the three defined types.
func (t MessageType) Valid() bool {
	return t == TypeReset || t == TypeFirstUnlock || t == TypeContinue
}

// storageInfo separates the ratchet storage key from other HKDF outputs.
const storageInfo = "passlok read-once state"

var (
	// ErrStateCorruption means stored ratchet keys no longer open. The
	// conversation must be reset by the user; it is never repaired
	// automatically.
	ErrStateCorruption = errors.New("read-once state is corrupted; reset Read-once for this contact")

	// ErrNotInDirectory is returned for read-once correspondents without a
	// directory entry to hold their state.
	ErrNotInDirectory = errors.New("read-once recipients must be saved in the directory")
)

// Manager derives and applies read-once key steps. It holds the owner's
// identity and the key that seals ratchet state at rest; directory reads and
// writes happen inside the caller's Repository.Update.
type Manager struct {
	id         *crypto.Identity
	storageKey [32]byte
	metrics    *metrics.Metrics
}

// NewManager prepares a manager for id.
func NewManager(id *crypto.Identity) (*Manager, error) {
	secret := id.CurveSecret()
	key, err := crypto.DeriveStorageKey(secret, storageInfo)
	crypto.ZeroBytes(secret[:])
	if err != nil {
		return nil, err
	}
	return &Manager{id: id, storageKey: key, metrics: metrics.Default}, nil
}

// WithMetrics redirects metric updates, for tests with their own registry.
func (m *Manager) WithMetrics(mt *metrics.Metrics) *Manager {
	m.metrics = mt
	return m
}

// Close erases the storage key.
func (m *Manager) Close() {
	crypto.ZeroBytes(m.storageKey[:])
}

// state is the opened form of directory.ReadOnce.
type state struct {
	lastKey  *[32]byte
	lastLock *[32]byte
}

func (m *Manager) open(name string, e *directory.Entry) (state, error) {
	var st state
	if e.RO == nil {
		return st, nil
	}
	if e.RO.LastKey != "" {
		k, err := m.openKey(e.RO.LastKey)
		if err != nil {
			return st, m.corrupt(name, "lastkey", err)
		}
		st.lastKey = &k
	}
	if e.RO.LastLock != "" {
		l, err := m.openKey(e.RO.LastLock)
		if err != nil {
			return st, m.corrupt(name, "lastlock", err)
		}
		st.lastLock = &l
	}
	return st, nil
}

func (m *Manager) openKey(blob string) ([32]byte, error) {
	var out [32]byte
	raw, err := crypto.KeyDecrypt(blob, m.storageKey)
	if err != nil {
		return out, err
	}
	defer crypto.ZeroBytes(raw)
	if len(raw) != 32 {
		return out, fmt.Errorf("stored key is %d bytes", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func (m *Manager) sealKey(k [32]byte) (string, error) {
	return crypto.KeyEncrypt(k[:], m.storageKey)
}

func (m *Manager) corrupt(name, field string, err error) error {
	crypto.PackageLogger("ratchet", "open").
		With("contact", name).
		With("field", field).
		Failed(err, "unseal").
		Error("Stored read-once key does not open")
	return fmt.Errorf("%w (%s, %s)", ErrStateCorruption, name, field)
}

func entryFor(d *directory.Directory, name string) (*directory.Entry, error) {
	e, ok := d.Get(name)
	if !ok || e.IsGroup() {
		return nil, fmt.Errorf("%w: %q", ErrNotInDirectory, name)
	}
	return e, nil
}

func wipeState(st state) {
	if st.lastKey != nil {
		crypto.ZeroBytes(st.lastKey[:])
	}
	if st.lastLock != nil {
		crypto.ZeroBytes(st.lastLock[:])
	}
}
