package ratchet

import (
	"crypto/subtle"

	"github.com/opd-ai/passlok/crypto"
	"github.com/opd-ai/passlok/directory"
)

// Candidate is a shared key that may open a slot of the given type.
type Candidate struct {
	Shared [32]byte
}

// Receive lists the shared keys a message of type t from name could use, in
// the order they should be tried. A type whose required state is missing
// yields no candidates.
func (m *Manager) Receive(d *directory.Directory, name string, t MessageType) ([]Candidate, error) {
	e, err := entryFor(d, name)
	if err != nil {
		return nil, err
	}
	st, err := m.open(name, e)
	if err != nil {
		return nil, err
	}
	defer wipeState(st)

	permanent := m.id.CurveSecret()
	defer crypto.ZeroBytes(permanent[:])

	theirPermanent, err := crypto.CurvePublicFromLock(e.Lock)
	if err != nil {
		return nil, err
	}

	type pair struct{ key, lock [32]byte }
	var pairs []pair
	switch t {
	case TypeReset:
		pairs = append(pairs, pair{permanent, theirPermanent})
	case TypeFirstUnlock:
		if st.lastKey != nil {
			pairs = append(pairs, pair{*st.lastKey, theirPermanent})
		}
	case TypeContinue:
		if st.lastLock != nil {
			if st.lastKey != nil {
				pairs = append(pairs, pair{*st.lastKey, *st.lastLock})
			}
			pairs = append(pairs, pair{permanent, *st.lastLock})
		}
	}

	out := make([]Candidate, 0, len(pairs))
	for _, p := range pairs {
		shared, err := crypto.DeriveSharedKey(p.lock, p.key)
		crypto.ZeroBytes(p.key[:])
		if err != nil {
			continue
		}
		out = append(out, Candidate{Shared: shared})
	}
	return out, nil
}

// CommitReceive records a successfully opened message: the sender's next
// Lock becomes the contact's last Lock and the turn moves to unlock. A reset
// from the sender also drops our own last key, since the sender no longer
// knows its Lock. A reset carrying the Lock already stored is a replay and
// leaves the state alone.
func (m *Manager) CommitReceive(d *directory.Directory, name string, t MessageType, nextLock [32]byte) error {
	e, err := entryFor(d, name)
	if err != nil {
		return err
	}
	if t == TypeReset && m.isStoredLock(name, e, nextLock) {
		crypto.PackageLogger("ratchet", "CommitReceive").
			With("contact", name).
			Secret("next_lock", nextLock[:]).
			Debug("Replayed reset ignored")
		return nil
	}
	sealed, err := m.sealKey(nextLock)
	if err != nil {
		return err
	}

	if e.RO == nil {
		e.RO = &directory.ReadOnce{}
	}
	e.RO.LastLock = sealed
	e.RO.Turn = directory.TurnUnlock
	if t == TypeReset {
		e.RO.LastKey = ""
	}

	m.metrics.CountRatchet("receive", t.String())
	crypto.PackageLogger("ratchet", "CommitReceive").
		With("contact", name).
		With("type", t.String()).
		Done("receive", "committed").
		Debug("Read-once state advanced")
	return nil
}

// isStoredLock reports whether lock is the contact's stored last Lock. State
// that does not open counts as no match so that a reset can repair it.
func (m *Manager) isStoredLock(name string, e *directory.Entry, lock [32]byte) bool {
	st, err := m.open(name, e)
	if err != nil {
		return false
	}
	defer wipeState(st)
	return st.lastLock != nil && subtle.ConstantTimeCompare(st.lastLock[:], lock[:]) == 1
}

// NextLockNonce derives the nonce that seals the next Lock in a slot from the
// message nonce, so the two secretboxes under one shared key never share a
// nonce.
func NextLockNonce(n crypto.Nonce) crypto.Nonce {
	n[len(n)-1] = 0x01
	return n
}
