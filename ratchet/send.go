package ratchet

import (
	"fmt"

	"github.com/opd-ai/passlok/crypto"
	"github.com/opd-ai/passlok/directory"
)

// SendStep is one recipient's share of a read-once message: the key that
// seals its slot, the type byte, and the fresh ephemeral pair whose public
// half travels in the slot as the next Lock.
type SendStep struct {
	Name   string
	Type   MessageType
	Shared [32]byte
	Next   *crypto.KeyPair
}

// Wipe erases the secrets in the step.
func (s *SendStep) Wipe() {
	crypto.ZeroBytes(s.Shared[:])
	if s.Next != nil {
		_ = crypto.WipeKeyPair(s.Next)
	}
}

// PrepareSend picks the keys for a message to name. It does not touch the
// directory; Commit records the step once the message is built.
//
// The type follows from stored state: no state gives TypeReset (permanent
// keys on both sides); a received ephemeral Lock but no own ephemeral key
// gives TypeFirstUnlock; an own ephemeral key gives TypeContinue. Each send
// generates a new ephemeral pair, so no key pair is used for two sends.
func (m *Manager) PrepareSend(d *directory.Directory, name string) (*SendStep, error) {
	e, err := entryFor(d, name)
	if err != nil {
		return nil, err
	}
	st, err := m.open(name, e)
	if err != nil {
		return nil, err
	}
	defer wipeState(st)

	step := &SendStep{Name: name}
	myKey := m.id.CurveSecret()
	defer crypto.ZeroBytes(myKey[:])

	var theirLock [32]byte
	if st.lastLock != nil {
		theirLock = *st.lastLock
	} else {
		theirLock, err = crypto.CurvePublicFromLock(e.Lock)
		if err != nil {
			return nil, fmt.Errorf("contact %q: %w", name, err)
		}
	}

	switch {
	case st.lastKey != nil:
		step.Type = TypeContinue
		myKey = *st.lastKey
	case st.lastLock != nil:
		step.Type = TypeFirstUnlock
	default:
		step.Type = TypeReset
	}

	step.Shared, err = crypto.DeriveSharedKey(theirLock, myKey)
	if err != nil {
		return nil, err
	}
	step.Next, err = crypto.GenerateKeyPair()
	if err != nil {
		step.Wipe()
		return nil, err
	}

	crypto.PackageLogger("ratchet", "PrepareSend").
		With("contact", name).
		With("type", step.Type.String()).
		Secret("next_lock", step.Next.Public[:]).
		Debug("Read-once send step prepared")
	return step, nil
}

// Commit stores the step's ephemeral secret as the contact's last key and
// marks the turn as lock. Call it inside the same Repository.Update that
// produced the message.
func (m *Manager) Commit(d *directory.Directory, step *SendStep) error {
	e, err := entryFor(d, step.Name)
	if err != nil {
		return err
	}
	sealed, err := m.sealKey(step.Next.Private)
	if err != nil {
		return err
	}

	if e.RO == nil {
		e.RO = &directory.ReadOnce{}
	}
	e.RO.LastKey = sealed
	e.RO.Turn = directory.TurnLock

	m.metrics.CountRatchet("send", step.Type.String())
	return nil
}
