package vault

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/opd-ai/passlok/crypto"
	"github.com/opd-ai/passlok/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	strongPassword = "Xq7#Lp2$Vz9!Kd4&Wm6^"
	otherPassword  = "Zk8$Qw3!Rn5#Ty1&Hb4^"
)

func TestBuildCharset(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"numbers", "0123456789"},
		{"HEX", "0123456789abcdef"},
		{"numbers!@", "0123456789!@"},
		{"hex numeric", "0123456789abcdef"},
		{"xyz", "xyz"},
		{"aab b", "ab"},
		{"lowercase-_", "abcdefghijklmnopqrstuvwxyz-_"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildCharset(tt.input))
		})
	}
}

func TestSynthesize(t *testing.T) {
	s := directory.SynthSettings{AllowedChars: "hex"}
	got, err := Synthesize(strongPassword, "example.com", s)
	require.NoError(t, err)

	digest, err := crypto.WiseHash(strongPassword, "example.com")
	require.NoError(t, err)
	assert.Equal(t, strings.TrimLeft(hex.EncodeToString(digest[:]), "0"), got)

	again, err := Synthesize("  "+strongPassword+" ", "example.com", s)
	require.NoError(t, err)
	assert.Equal(t, got, again, "master password is trimmed")

	s.Serial = "2"
	rotated, err := Synthesize(strongPassword, "example.com", s)
	require.NoError(t, err)
	assert.NotEqual(t, got, rotated)

	def, err := Synthesize(strongPassword, "example.com", directory.SynthSettings{LengthLimit: 12})
	require.NoError(t, err)
	assert.Len(t, def, 12)
	for _, r := range def {
		assert.Contains(t, DefaultCharset, string(r))
	}

	_, err = Synthesize("", "example.com", s)
	assert.ErrorIs(t, err, ErrMasterPasswordRequired)
	_, err = Synthesize(strongPassword, "example.com", directory.SynthSettings{AllowedChars: "aaa"})
	assert.ErrorIs(t, err, ErrCharsetTooSmall)
}

func TestVaultSynthUsesStoredSettings(t *testing.T) {
	v := New(directory.NewMemoryStore())
	want := directory.SynthSettings{Serial: "7", AllowedChars: "alphanumeric", LengthLimit: 16}
	require.NoError(t, v.SaveSynthSettings("www.example.com", want))

	got, err := v.SynthSettings("mail.example.com")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	pwd, err := v.Synth(strongPassword, "login.example.com")
	require.NoError(t, err)
	direct, err := Synthesize(strongPassword, "example.com", want)
	require.NoError(t, err)
	assert.Equal(t, direct, pwd)
	assert.Len(t, pwd, 16)

	require.NoError(t, v.SaveSynthSettings("example.com", directory.SynthSettings{}))
	got, err = v.SynthSettings("example.com")
	require.NoError(t, err)
	assert.Equal(t, directory.SynthSettings{}, got)
}

func TestVaultPassword(t *testing.T) {
	store := directory.NewMemoryStore()
	v := New(store)

	_, ok, err := v.StoredPassword(strongPassword, "example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err := v.StorePassword(strongPassword, "example.com", "hunter2 but longer")
	require.NoError(t, err)
	assert.False(t, deleted)

	rec, err := store.HostRecord("example.com")
	require.NoError(t, err)
	require.NotNil(t, rec.Crypt)
	assert.NotContains(t, rec.Crypt.Pwd, "hunter2")

	pwd, ok, err := v.StoredPassword(strongPassword, "www.example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hunter2 but longer", pwd)

	_, _, err = v.StoredPassword(otherPassword, "example.com")
	assert.ErrorIs(t, err, ErrWrongMasterPassword)

	_, err = v.StorePassword(strongPassword, "example.com", "   ")
	assert.ErrorIs(t, err, ErrEmptyValue)

	deleted, err = v.StorePassword(strongPassword, "example.com", "delete")
	require.NoError(t, err)
	assert.True(t, deleted)
	_, ok, err = v.StoredPassword(strongPassword, "example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = v.StorePassword("", "example.com", "x")
	assert.ErrorIs(t, err, ErrMasterPasswordRequired)
}

func TestNotes(t *testing.T) {
	store := directory.NewMemoryStore()
	v := New(store)

	n, err := v.ReadNotes(strongPassword, "example.com")
	require.NoError(t, err)
	assert.True(t, n.Empty())

	require.NoError(t, v.SaveNote(strongPassword, "example.com", "security answer: blue", false))
	require.NoError(t, v.SaveNote(strongPassword, "example.com", "recovery code 1234", true))

	_, err = v.ReadNotes(otherPassword, "example.com")
	assert.ErrorIs(t, err, ErrWrongMasterPassword)
	rec, err := store.HostRecord("example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Crypt.Once, "failed read keeps the read-once note")

	n, err = v.ReadNotes(strongPassword, "example.com")
	require.NoError(t, err)
	assert.True(t, n.OnceDeleted)
	assert.Equal(t, "security answer: blue"+OnceSeparator+"recovery code 1234", n.String())

	n, err = v.ReadNotes(strongPassword, "example.com")
	require.NoError(t, err)
	assert.False(t, n.OnceDeleted)
	assert.Equal(t, "security answer: blue", n.String())

	require.NoError(t, v.ClearNotes("example.com"))
	n, err = v.ReadNotes(strongPassword, "example.com")
	require.NoError(t, err)
	assert.True(t, n.Empty())

	rec, err = store.HostRecord("example.com")
	require.NoError(t, err)
	assert.True(t, rec.IsEmpty(), "clearing the last value drops the record")
}

func TestNotesStringOnceOnly(t *testing.T) {
	assert.Equal(t, "only once", Notes{Once: "only once", OnceDeleted: true}.String())
	assert.Equal(t, "text", Notes{Text: "text"}.String())
}
