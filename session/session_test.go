package session

import (
	"strings"
	"testing"
	"time"

	"github.com/opd-ai/passlok/crypto"
	"github.com/opd-ai/passlok/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strongPassword = "Xq7#Lp2$Vz9!Kd4&Wm6^"

func newTestSession(t *testing.T, timeout time.Duration) (*Session, *crypto.ManualClock, *metrics.Metrics, *int) {
	t.Helper()
	clock := crypto.NewManualClock(time.Unix(1700000000, 0))
	m := metrics.New(prometheus.NewRegistry())
	expired := 0
	s, err := New(Config{
		Timeout:      timeout,
		Email:        "alice@example.com",
		TimeProvider: clock,
		Metrics:      m,
		OnExpire:     func() { expired++ },
	})
	require.NoError(t, err)
	return s, clock, m, &expired
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{}.Validate())
	assert.NoError(t, Config{Timeout: time.Second}.Validate())
	assert.ErrorIs(t, Config{Timeout: -time.Second}.Validate(), ErrInvalidTimeout)

	_, err := New(Config{Timeout: -1})
	assert.ErrorIs(t, err, ErrInvalidTimeout)
	assert.Equal(t, DefaultTimeout, Config{}.timeout())
}

func TestLockedSession(t *testing.T) {
	s, _, _, _ := newTestSession(t, time.Minute)

	assert.False(t, s.Unlocked())
	_, err := s.MasterPassword()
	assert.ErrorIs(t, err, ErrLocked)
	_, err = s.Identity()
	assert.ErrorIs(t, err, ErrLocked)
	_, err = s.FolderKey()
	assert.ErrorIs(t, err, ErrNoFolderKey)
	assert.ErrorIs(t, s.Unlock(""), crypto.ErrEmptyPassword)
}

func TestUnlockAndIdentity(t *testing.T) {
	s, _, m, _ := newTestSession(t, time.Minute)
	require.NoError(t, s.Unlock(strongPassword))
	assert.True(t, s.Unlocked())

	pwd, err := s.MasterPassword()
	require.NoError(t, err)
	assert.Equal(t, strongPassword, pwd)

	id, err := s.Identity()
	require.NoError(t, err)
	want, err := crypto.DeriveIdentity(strongPassword, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, want.Lock, id.Lock)

	again, err := s.Identity()
	require.NoError(t, err)
	assert.NotSame(t, id, again, "each caller gets its own copy")
	assert.Equal(t, id, again)

	id.Wipe()
	third, err := s.Identity()
	require.NoError(t, err)
	assert.Equal(t, again.CurveSecret(), third.CurveSecret(), "wiping a copy leaves the cache alone")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionEventsTotal.WithLabelValues(EventUnlock)))
}

func TestInactivityTimeout(t *testing.T) {
	s, clock, m, expired := newTestSession(t, time.Minute)
	require.NoError(t, s.Unlock(strongPassword))
	id, err := s.Identity()
	require.NoError(t, err)
	s.SetFolderKey([32]byte{1, 2, 3})

	clock.Advance(50 * time.Second)
	s.Touch()
	clock.Advance(50 * time.Second)
	assert.True(t, s.Unlocked(), "activity pushes the deadline back")
	assert.Zero(t, *expired)

	clock.Advance(11 * time.Second)
	assert.False(t, s.Unlocked())
	assert.Equal(t, 1, *expired)
	assert.Nil(t, s.identity, "cached identity is dropped")
	assert.NotEqual(t, [32]byte{}, id.CurveSecret(), "a caller's copy survives the timeout")
	_, err = s.FolderKey()
	assert.ErrorIs(t, err, ErrNoFolderKey)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionEventsTotal.WithLabelValues(EventExpire)))

	clock.Advance(time.Hour)
	assert.Equal(t, 1, *expired)
}

func TestLockStopsDeadline(t *testing.T) {
	s, clock, m, expired := newTestSession(t, time.Minute)
	require.NoError(t, s.Unlock(strongPassword))
	s.Lock()
	assert.False(t, s.Unlocked())

	require.NoError(t, s.Unlock(strongPassword))
	clock.Advance(59 * time.Second)
	assert.True(t, s.Unlocked(), "the first deadline must not end the second session")
	clock.Advance(time.Second)
	assert.False(t, s.Unlocked())
	assert.Equal(t, 1, *expired)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionEventsTotal.WithLabelValues(EventLock)))
}

func TestFolderKey(t *testing.T) {
	s, _, _, _ := newTestSession(t, time.Minute)
	key, err := NewFolderKey()
	require.NoError(t, err)
	assert.NotEqual(t, [32]byte{}, key)

	s.SetFolderKey(key)
	got, err := s.FolderKey()
	require.NoError(t, err)
	assert.Equal(t, key, *got)

	s.ClearFolderKey()
	_, err = s.FolderKey()
	assert.ErrorIs(t, err, ErrNoFolderKey)
}

func TestFolderKeyMnemonic(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(i * 7)
	}
	phrase, err := FolderKeyMnemonic(key)
	require.NoError(t, err)
	assert.Len(t, strings.Fields(phrase), 24)

	back, err := FolderKeyFromMnemonic("  " + phrase + "\n")
	require.NoError(t, err)
	assert.Equal(t, key, back)

	s, _, _, _ := newTestSession(t, time.Minute)
	require.NoError(t, s.ActivateMnemonic(phrase))
	out, err := s.FolderMnemonic()
	require.NoError(t, err)
	assert.Equal(t, phrase, out)

	words := strings.Fields(phrase)
	words[3] = "passlok"
	_, err = FolderKeyFromMnemonic(strings.Join(words, " "))
	assert.ErrorIs(t, err, ErrInvalidMnemonic)

	short := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	_, err = FolderKeyFromMnemonic(short)
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
	_, err = FolderKeyFromMnemonic("")
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
}
