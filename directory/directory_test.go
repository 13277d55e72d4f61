package directory

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/opd-ai/passlok/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lockOf(b byte) string {
	var k [32]byte
	k[0] = b
	k[31] = 0x40
	return codec.LockFromPublicKey(k)
}

func sampleDirectory(t *testing.T) *Directory {
	t.Helper()
	d := New()
	require.NoError(t, d.Put("alice", lockOf(1)))
	require.NoError(t, d.Put("bob", lockOf(2)))
	require.NoError(t, d.Put("carol", lockOf(3)))
	require.NoError(t, d.Put("team", "alice, bob"))
	require.NoError(t, d.Put("everyone", "=team=, carol"))
	return d
}

func TestResolveSelectors(t *testing.T) {
	d := sampleDirectory(t)
	own := lockOf(9)

	tests := []struct {
		name      string
		selectors []string
		exclude   bool
		want      []string
	}{
		{"single name", []string{"alice"}, false, []string{lockOf(1)}},
		{"literal lock", []string{lockOf(7)}, false, []string{lockOf(7)}},
		{"comma list", []string{"alice,carol"}, false, []string{lockOf(1), lockOf(3)}},
		{"group", []string{"=team="}, false, []string{lockOf(1), lockOf(2)}},
		{"nested group dedup", []string{"everyone", "alice"}, false, []string{lockOf(1), lockOf(2), lockOf(3)}},
		{"me", []string{"Me", "bob"}, false, []string{own, lockOf(2)}},
		{"me excluded", []string{"me", "bob"}, true, []string{lockOf(2)}},
		{"duplicate literal", []string{lockOf(1), "alice"}, false, []string{lockOf(1)}},
		{"blank", []string{"  "}, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Resolver{Dir: d, OwnLock: own, ExcludeSelf: tt.exclude}
			got, err := r.Resolve(tt.selectors)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, Locks(got))
		})
	}
}

func TestResolveRecordsEntryNames(t *testing.T) {
	r := &Resolver{Dir: sampleDirectory(t), OwnLock: lockOf(9)}
	got, err := r.Resolve([]string{"team", "me"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "alice", got[0].Name)
	assert.Equal(t, "bob", got[1].Name)
	assert.True(t, got[2].Self)
}

func TestResolveUnknownAndCycles(t *testing.T) {
	d := sampleDirectory(t)
	require.NoError(t, d.Put("loop", "=loop=, alice"))

	r := &Resolver{Dir: d}
	_, err := r.Resolve([]string{"mallory"})
	assert.ErrorIs(t, err, ErrUnknownRecipient)

	_, err = r.Resolve([]string{"loop"})
	assert.True(t, errors.Is(err, ErrUnknownRecipient))
}

func TestPutResetsRatchetOnLockChange(t *testing.T) {
	d := sampleDirectory(t)
	e, _ := d.Get("alice")
	e.RO = &ReadOnce{LastKey: "k", LastLock: "l", Turn: TurnLock}

	require.NoError(t, d.Put("alice", lockOf(1)))
	assert.Equal(t, TurnLock, e.RO.Turn, "same lock keeps state")

	require.NoError(t, d.Put("alice", lockOf(4)))
	e, _ = d.Get("alice")
	assert.Equal(t, TurnReset, e.RO.Turn)
	assert.Empty(t, e.RO.LastKey)

	assert.ErrorIs(t, d.Put("me", lockOf(5)), ErrInvalidName)
	assert.ErrorIs(t, d.Put(" ", lockOf(5)), ErrInvalidName)
}

func TestResetReadOnceAndDelete(t *testing.T) {
	d := sampleDirectory(t)
	e, _ := d.Get("bob")
	e.RO = &ReadOnce{LastKey: "k", Turn: TurnUnlock}
	assert.True(t, e.HasReadOnce())

	require.NoError(t, d.ResetReadOnce("bob"))
	e, _ = d.Get("bob")
	assert.Nil(t, e.RO)
	assert.False(t, e.HasReadOnce())
	assert.Equal(t, lockOf(2), e.Lock, "reset keeps the Lock")

	require.NoError(t, d.Delete("bob"))
	assert.ErrorIs(t, d.Delete("bob"), ErrNotFound)
	assert.ErrorIs(t, d.ResetReadOnce("bob"), ErrNotFound)
}

func TestFindByLock(t *testing.T) {
	d := sampleDirectory(t)
	name, ok := d.FindByLock(lockOf(3))
	assert.True(t, ok)
	assert.Equal(t, "carol", name)

	_, ok = d.FindByLock(lockOf(8))
	assert.False(t, ok)
}

func TestImportLegacyForms(t *testing.T) {
	legacy := `{
		"alice": "` + lockOf(1) + `",
		"bob": ["` + lockOf(2) + `", "KEYBLOB", "LOCKBLOB", "unlock"],
		"carol": {"lock": "` + lockOf(3) + `", "ro": {"key_kenc": null, "lock_kenc": "LB", "turn": "lock"}},
		"(Me) me@example.com": "` + lockOf(9) + `",
		"null": "x",
		"broken": 42
	}`

	d, err := ImportJSON([]byte(legacy))
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, d.Names())

	bob, _ := d.Get("bob")
	require.NotNil(t, bob.RO)
	assert.Equal(t, ReadOnce{LastKey: "KEYBLOB", LastLock: "LOCKBLOB", Turn: TurnUnlock}, *bob.RO)

	carol, _ := d.Get("carol")
	assert.Equal(t, ReadOnce{LastLock: "LB", Turn: TurnLock}, *carol.RO)

	out, err := ExportJSON(d)
	require.NoError(t, err)
	again, err := ImportJSON(out)
	require.NoError(t, err)
	assert.Equal(t, d, again)
}

func TestImportRejectsNewerVersion(t *testing.T) {
	_, err := ImportJSON([]byte(`{"version": 7, "entries": {}}`))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestRegisteredDomain(t *testing.T) {
	tests := map[string]string{
		"mail.google.com":       "google.com",
		"www.google.com":        "google.com",
		"www2.example.org":      "example.org",
		"news.bbc.co.uk":        "bbc.co.uk",
		"app.startup.io":        "startup.io",
		"example.com":           "example.com",
		"Example.COM.":          "example.com",
		"localhost":             "localhost",
		"192.168.1.10":          "192.168.1.10",
		"shop.example.com:8443": "example.com",
		"":                      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, RegisteredDomain(in), in)
	}
}

func testRepository(t *testing.T, repo Repository) {
	t.Helper()

	d, err := repo.Load()
	require.NoError(t, err)
	assert.Empty(t, d.Names())

	require.NoError(t, d.Put("alice", lockOf(1)))
	require.NoError(t, repo.Save(d))

	failed := errors.New("abort")
	err = repo.Update(func(d *Directory) error {
		require.NoError(t, d.Put("bob", lockOf(2)))
		return failed
	})
	assert.ErrorIs(t, err, failed)

	loaded, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, loaded.Names(), "failed update must not persist")

	require.NoError(t, repo.Update(func(d *Directory) error {
		e, _ := d.Get("alice")
		e.RO = &ReadOnce{LastKey: "k1", LastLock: "l1", Turn: TurnLock}
		return nil
	}))

	loaded, err = repo.Load()
	require.NoError(t, err)
	e, ok := loaded.Get("alice")
	require.True(t, ok)
	assert.Equal(t, TurnLock, e.RO.Turn)
	assert.Equal(t, "k1", e.RO.LastKey)
}

type hostStore interface {
	HostRecord(host string) (HostRecord, error)
	PutHostRecord(host string, rec HostRecord) error
}

func testHostStore(t *testing.T, hs hostStore) {
	t.Helper()

	rec, err := hs.HostRecord("mail.example.com")
	require.NoError(t, err)
	assert.True(t, rec.IsEmpty())

	rec.EnsureCrypt().Email = "alice@example.com"
	rec.Synth = &SynthSettings{Serial: "2", LengthLimit: 12}
	require.NoError(t, hs.PutHostRecord("www.example.com", rec))

	got, err := hs.HostRecord("example.com")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	require.NoError(t, hs.PutHostRecord("example.com", HostRecord{}))
	got, err = hs.HostRecord("example.com")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	testRepository(t, s)
	testHostStore(t, s)
}

func TestBoltStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passlok.db")
	s, err := OpenBoltStore(path)
	require.NoError(t, err)
	testRepository(t, s)
	testHostStore(t, s)

	require.NoError(t, s.PutHostRecord("a.org", HostRecord{Crypt: &CryptRecord{Lock: lockOf(1)}}))
	hosts, err := s.Hosts()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.org"}, hosts)
	require.NoError(t, s.Close())

	reopened, err := OpenBoltStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	d, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, d.Names())
}
