package passlok

import (
	"image"
	"math/rand"
	"testing"
	"time"

	"github.com/opd-ai/passlok/crypto"
	"github.com/opd-ai/passlok/directory"
	"github.com/opd-ai/passlok/interfaces"
	"github.com/opd-ai/passlok/messaging"
	"github.com/opd-ai/passlok/metrics"
	"github.com/opd-ai/passlok/session"
	"github.com/opd-ai/passlok/stego"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alicePassword = "Xq7#Lp2$Vz9!Kd4&Wm6^"
	bobPassword   = "Zk8$Qw3!Rn5#Ty1&Hb4^"
)

func newInstance(t *testing.T, email string, p interfaces.Prompter, clock crypto.TimeProvider) *PassLok {
	t.Helper()
	opts := NewOptions()
	opts.Email = email
	opts.Host = "example.com"
	opts.Prompter = p
	opts.TimeProvider = clock
	opts.Metrics = metrics.New(prometheus.NewRegistry())
	pl, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pl.Close() })
	return pl
}

func unlocked(t *testing.T, email, pwd string) *PassLok {
	t.Helper()
	pl := newInstance(t, email, nil, nil)
	require.NoError(t, pl.Unlock(pwd))
	return pl
}

func introduce(t *testing.T, owner *PassLok, name string, other *PassLok) {
	t.Helper()
	lock, err := other.MyLock()
	require.NoError(t, err)
	require.NoError(t, owner.Directory().Update(func(d *directory.Directory) error {
		return d.Put(name, lock)
	}))
}

func coverImage(w, h int) *image.NRGBA {
	rng := rand.New(rand.NewSource(7))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rng.Intn(256))
		img.Pix[i+1] = uint8(rng.Intn(256))
		img.Pix[i+2] = uint8(rng.Intn(256))
		img.Pix[i+3] = 255
	}
	return img
}

func TestNewOptions(t *testing.T) {
	opts := NewOptions()
	assert.Equal(t, session.DefaultTimeout, opts.SessionTimeout)
	assert.Equal(t, stego.DefaultQuality, opts.JPEGQuality)

	opts.JPEGQuality = 95
	_, err := New(opts)
	assert.ErrorIs(t, err, stego.ErrInvalidQuality)

	opts = NewOptions()
	opts.StorePath = t.TempDir() + "/passlok.db"
	pl, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, pl.Close())
}

func TestSignedMessage(t *testing.T) {
	alice := unlocked(t, "alice@example.com", alicePassword)
	bob := unlocked(t, "bob@example.com", bobPassword)
	introduce(t, alice, "bob", bob)
	introduce(t, bob, "alice", alice)

	armored, err := alice.EncryptText("meet at noon", messaging.Settings{Recipients: []string{"bob"}}, false)
	require.NoError(t, err)
	assert.Contains(t, armored, messaging.LabelSigned)

	pt, err := bob.Decrypt(armored)
	require.NoError(t, err)
	assert.Equal(t, "meet at noon", pt.Text)
	assert.Equal(t, "alice", pt.SenderName)

	_, err = alice.Decrypt(armored)
	assert.ErrorIs(t, err, messaging.ErrNoMatchingRecipient)
}

func TestLockedInstancePrompts(t *testing.T) {
	p := interfaces.NewScriptedPrompter(interfaces.Answer{Text: alicePassword})
	pl := newInstance(t, "alice@example.com", p, nil)

	lock, err := pl.MyLock()
	require.NoError(t, err)
	id, err := crypto.DeriveIdentity(alicePassword, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, id.Lock, lock)
	assert.True(t, pl.Session().Unlocked())

	h, err := pl.Hashili()
	require.NoError(t, err)
	assert.Equal(t, crypto.MakeHashili(alicePassword), h)

	quiet := newInstance(t, "alice@example.com", nil, nil)
	_, err = quiet.MyLock()
	assert.ErrorIs(t, err, session.ErrLocked)

	cancel := newInstance(t, "alice@example.com", interfaces.NewScriptedPrompter(interfaces.Answer{Cancel: true}), nil)
	_, err = cancel.MyLock()
	assert.ErrorIs(t, err, messaging.ErrMasterPasswordRequired)
}

func TestFolderKeySharing(t *testing.T) {
	alice := unlocked(t, "alice@example.com", alicePassword)
	bob := unlocked(t, "bob@example.com", bobPassword)
	introduce(t, alice, "bob", bob)
	introduce(t, bob, "alice", alice)

	res, err := alice.ShareFolderKey(messaging.Settings{Recipients: []string{"bob"}})
	require.NoError(t, err)
	pt, err := bob.Decrypt(res.Armor(false))
	require.NoError(t, err)
	require.True(t, pt.IsFolderKey())

	aliceKey, err := alice.Session().FolderKey()
	require.NoError(t, err)
	bobKey, err := bob.Session().FolderKey()
	require.NoError(t, err)
	assert.Equal(t, *aliceKey, *bobKey)

	res, err = alice.Encrypt([]byte("for the folder"), messaging.Settings{})
	require.NoError(t, err)
	assert.Equal(t, messaging.LabelFolder, res.ModeLabel)
	assert.Empty(t, res.PrefixLock(true), "folder messages never carry a Lock")

	pt, err = bob.Decrypt(res.Armor(true))
	require.NoError(t, err)
	assert.Equal(t, "for the folder", pt.Text)
	assert.Equal(t, messaging.SenderFolderKey, pt.SenderName)

	again, err := alice.Session().FolderKey()
	require.NoError(t, err)
	assert.Equal(t, *aliceKey, *again, "sealing must not wipe the session copy")
}

func TestSymmetricMessage(t *testing.T) {
	alice := unlocked(t, "alice@example.com", alicePassword)
	bob := newInstance(t, "bob@example.com", interfaces.NewScriptedPrompter(interfaces.Answer{Text: bobPassword}), nil)

	armored, err := alice.EncryptText("shared secret", messaging.Settings{Password: bobPassword}, false)
	require.NoError(t, err)
	assert.Contains(t, armored, messaging.LabelSymmetric)

	pt, err := bob.Decrypt(armored)
	require.NoError(t, err)
	assert.Equal(t, "shared secret", pt.Text)
	assert.False(t, bob.Session().Unlocked(), "shared-key messages do not need the master password")
}

func TestSessionTimeout(t *testing.T) {
	clock := crypto.NewManualClock(time.Unix(1700000000, 0))
	pl := newInstance(t, "alice@example.com", nil, clock)
	require.NoError(t, pl.Unlock(alicePassword))
	_, err := pl.MyLock()
	require.NoError(t, err)

	clock.Advance(session.DefaultTimeout)
	_, err = pl.MyLock()
	assert.ErrorIs(t, err, session.ErrLocked)
}

func TestHideAndRevealMessage(t *testing.T) {
	alice := unlocked(t, "alice@example.com", alicePassword)
	bob := unlocked(t, "bob@example.com", bobPassword)
	introduce(t, alice, "bob", bob)
	introduce(t, bob, "alice", alice)

	res, err := alice.Encrypt([]byte("under the picture"), messaging.Settings{Recipients: []string{"bob"}})
	require.NoError(t, err)

	out, err := alice.Hide(coverImage(96, 64), stego.FormatPNG, res.Binary, []byte("second"), bobPassword+"|"+alicePassword)
	require.NoError(t, err)

	rev, format, err := bob.Reveal(out, bobPassword+"|"+alicePassword)
	require.NoError(t, err)
	assert.Equal(t, stego.FormatPNG, format)
	assert.Equal(t, res.Binary, rev.Primary)
	assert.Equal(t, []byte("second"), rev.Secondary)

	pt, err := bob.OpenRevealed(rev.Primary)
	require.NoError(t, err)
	assert.Equal(t, "under the picture", pt.Text)

	_, err = alice.Hide(coverImage(8, 8), stego.FormatPNG, res.Binary, []byte("x"), bobPassword)
	assert.ErrorIs(t, err, stego.ErrPasswordRequired)
	_, _, err = bob.Reveal(out, "")
	assert.ErrorIs(t, err, stego.ErrPasswordRequired)
}

func TestHideTextWithFolderKey(t *testing.T) {
	alice := unlocked(t, "alice@example.com", alicePassword)
	bob := unlocked(t, "bob@example.com", bobPassword)

	key, err := session.NewFolderKey()
	require.NoError(t, err)
	alice.Session().SetFolderKey(key)
	bob.Session().SetFolderKey(key)

	out, err := alice.HideText(coverImage(64, 64), stego.FormatJPEG, "plain words", "")
	require.NoError(t, err)

	rev, format, err := bob.Reveal(out, "")
	require.NoError(t, err)
	assert.Equal(t, stego.FormatJPEG, format)

	pt, err := bob.OpenRevealed(rev.Primary)
	require.NoError(t, err)
	assert.Equal(t, "plain words", pt.Text)
}

func TestOpenRevealedPlainText(t *testing.T) {
	pl := newInstance(t, "", nil, nil)
	pt, err := pl.OpenRevealed([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", pt.Text)
}
