package ratchet

import (
	"testing"

	"github.com/opd-ai/passlok/crypto"
	"github.com/opd-ai/passlok/directory"
	"github.com/opd-ai/passlok/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type party struct {
	name  string
	id    *crypto.Identity
	mgr   *Manager
	store *directory.MemoryStore
}

func newParty(t *testing.T, name string, seedByte byte, mt *metrics.Metrics) *party {
	t.Helper()
	var seed [32]byte
	for i := range seed {
		seed[i] = seedByte
	}
	id, err := crypto.IdentityFromSeed(seed)
	require.NoError(t, err)
	mgr, err := NewManager(id)
	require.NoError(t, err)
	t.Cleanup(mgr.Close)
	return &party{name: name, id: id, mgr: mgr.WithMetrics(mt), store: directory.NewMemoryStore()}
}

func introduce(t *testing.T, a, b *party) {
	t.Helper()
	require.NoError(t, a.store.Update(func(d *directory.Directory) error { return d.Put(b.name, b.id.Lock) }))
	require.NoError(t, b.store.Update(func(d *directory.Directory) error { return d.Put(a.name, a.id.Lock) }))
}

// send runs one message from sender to receiver and returns the key both
// sides agreed on.
func send(t *testing.T, from, to *party) (MessageType, [32]byte) {
	t.Helper()
	var step *SendStep
	require.NoError(t, from.store.Update(func(d *directory.Directory) error {
		var err error
		step, err = from.mgr.PrepareSend(d, to.name)
		if err != nil {
			return err
		}
		return from.mgr.Commit(d, step)
	}))

	var matched bool
	require.NoError(t, to.store.Update(func(d *directory.Directory) error {
		cands, err := to.mgr.Receive(d, from.name, step.Type)
		if err != nil {
			return err
		}
		for _, c := range cands {
			if c.Shared == step.Shared {
				matched = true
			}
		}
		return to.mgr.CommitReceive(d, from.name, step.Type, step.Next.Public)
	}))
	require.True(t, matched, "receiver found no matching key for %s", step.Type)
	return step.Type, step.Shared
}

func TestPingPong(t *testing.T) {
	mt := metrics.New(prometheus.NewRegistry())
	alice := newParty(t, "alice", 1, mt)
	bob := newParty(t, "bob", 2, mt)
	introduce(t, alice, bob)

	wantTypes := []MessageType{TypeReset, TypeFirstUnlock, TypeContinue, TypeContinue, TypeContinue}
	seen := make(map[[32]byte]bool)
	for i, want := range wantTypes {
		from, to := alice, bob
		if i%2 == 1 {
			from, to = bob, alice
		}
		got, shared := send(t, from, to)
		assert.Equal(t, want, got, "message %d", i)
		assert.False(t, seen[shared], "message %d reused a key", i)
		seen[shared] = true
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(mt.RatchetTransitionsTotal.WithLabelValues("send", "continue")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.RatchetTransitionsTotal.WithLabelValues("receive", "reset")))

	d, err := alice.store.Load()
	require.NoError(t, err)
	e, _ := d.Get("bob")
	assert.Equal(t, directory.TurnLock, e.RO.Turn)
	assert.NotEmpty(t, e.RO.LastKey)
	assert.NotEmpty(t, e.RO.LastLock)
}

func TestRepeatedSendsWithoutReply(t *testing.T) {
	mt := metrics.New(prometheus.NewRegistry())
	alice := newParty(t, "alice", 3, mt)
	bob := newParty(t, "bob", 4, mt)
	introduce(t, alice, bob)

	seen := make(map[[32]byte]bool)
	for i := 0; i < 5; i++ {
		_, shared := send(t, alice, bob)
		assert.False(t, seen[shared], "send %d reused a key", i)
		seen[shared] = true
	}
}

func TestResetClearsReceiverKey(t *testing.T) {
	mt := metrics.New(prometheus.NewRegistry())
	alice := newParty(t, "alice", 5, mt)
	bob := newParty(t, "bob", 6, mt)
	introduce(t, alice, bob)

	send(t, alice, bob)
	send(t, bob, alice)

	require.NoError(t, alice.store.Update(func(d *directory.Directory) error { return d.ResetReadOnce("bob") }))
	typ, _ := send(t, alice, bob)
	assert.Equal(t, TypeReset, typ)

	d, err := bob.store.Load()
	require.NoError(t, err)
	e, _ := d.Get("alice")
	assert.Empty(t, e.RO.LastKey)
	assert.Equal(t, directory.TurnUnlock, e.RO.Turn)

	typ, _ = send(t, bob, alice)
	assert.Equal(t, TypeFirstUnlock, typ)
}

func TestReplayedResetKeepsState(t *testing.T) {
	mt := metrics.New(prometheus.NewRegistry())
	alice := newParty(t, "alice", 7, mt)
	bob := newParty(t, "bob", 8, mt)
	introduce(t, alice, bob)

	var reset *SendStep
	require.NoError(t, alice.store.Update(func(d *directory.Directory) error {
		var err error
		reset, err = alice.mgr.PrepareSend(d, "bob")
		if err != nil {
			return err
		}
		return alice.mgr.Commit(d, reset)
	}))
	require.Equal(t, TypeReset, reset.Type)
	commit := func() {
		require.NoError(t, bob.store.Update(func(d *directory.Directory) error {
			return bob.mgr.CommitReceive(d, "alice", reset.Type, reset.Next.Public)
		}))
	}
	commit()

	typ, _ := send(t, bob, alice)
	require.Equal(t, TypeFirstUnlock, typ)
	before, err := bob.store.Load()
	require.NoError(t, err)
	want, _ := before.Get("alice")
	require.NotEmpty(t, want.RO.LastKey)

	commit()
	after, err := bob.store.Load()
	require.NoError(t, err)
	got, _ := after.Get("alice")
	assert.Equal(t, want.RO.LastKey, got.RO.LastKey)
	assert.Equal(t, want.RO.LastLock, got.RO.LastLock)
	assert.Equal(t, directory.TurnLock, got.RO.Turn)

	typ, _ = send(t, alice, bob)
	assert.Equal(t, TypeContinue, typ)
}

func TestCorruptStateIsReported(t *testing.T) {
	mt := metrics.New(prometheus.NewRegistry())
	alice := newParty(t, "alice", 7, mt)
	bob := newParty(t, "bob", 8, mt)
	introduce(t, alice, bob)

	var wrongKey [32]byte
	wrongKey[0] = 9
	blob, err := crypto.KeyEncrypt(make([]byte, 32), wrongKey)
	require.NoError(t, err)

	d, err := alice.store.Load()
	require.NoError(t, err)
	e, _ := d.Get("bob")
	e.RO = &directory.ReadOnce{LastKey: blob, Turn: directory.TurnLock}

	_, err = alice.mgr.PrepareSend(d, "bob")
	assert.ErrorIs(t, err, ErrStateCorruption)
	_, err = alice.mgr.Receive(d, "bob", TypeContinue)
	assert.ErrorIs(t, err, ErrStateCorruption)
}

func TestRecipientMustBeSavedContact(t *testing.T) {
	mt := metrics.New(prometheus.NewRegistry())
	alice := newParty(t, "alice", 10, mt)
	bob := newParty(t, "bob", 11, mt)

	d := directory.New()
	require.NoError(t, d.Put("friends", "bob,carol"))

	_, err := alice.mgr.PrepareSend(d, "nobody")
	assert.ErrorIs(t, err, ErrNotInDirectory)
	_, err = alice.mgr.PrepareSend(d, "friends")
	assert.ErrorIs(t, err, ErrNotInDirectory)
	_, err = alice.mgr.Receive(d, bob.name, TypeReset)
	assert.ErrorIs(t, err, ErrNotInDirectory)
}

func TestMissingStateYieldsNoCandidates(t *testing.T) {
	mt := metrics.New(prometheus.NewRegistry())
	alice := newParty(t, "alice", 12, mt)
	bob := newParty(t, "bob", 13, mt)
	introduce(t, alice, bob)

	d, err := bob.store.Load()
	require.NoError(t, err)
	for _, typ := range []MessageType{TypeFirstUnlock, TypeContinue} {
		cands, err := bob.mgr.Receive(d, "alice", typ)
		require.NoError(t, err)
		assert.Empty(t, cands, typ.String())
	}
}

func TestMessageType(t *testing.T) {
	assert.True(t, TypeReset.Valid())
	assert.False(t, MessageType(0).Valid())
	assert.Equal(t, "unknown(7)", MessageType(7).String())

	var n crypto.Nonce
	n[0] = 5
	next := NextLockNonce(n)
	assert.Equal(t, byte(1), next[23])
	assert.Equal(t, byte(0), n[23])
}
