package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opd-ai/passlok/interfaces"
	"github.com/opd-ai/passlok/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testUser struct {
	email    string
	password string
	store    string
	config   string
	vars     map[string]string
}

func newUser(t *testing.T, email, password string) *testUser {
	t.Helper()
	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(config, []byte("log_level: ERROR\n"), 0o600))
	return &testUser{
		email:    email,
		password: password,
		store:    filepath.Join(dir, "passlok.db"),
		config:   config,
		vars:     map[string]string{},
	}
}

// plk runs one invocation as u, answering every prompt with u's master
// password.
func (u *testUser) plk(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	p := interfaces.NewScriptedPrompter(
		interfaces.Answer{Text: u.password},
		interfaces.Answer{Text: u.password},
	)
	return u.plkWith(t, p, stdin, args...)
}

func (u *testUser) plkWith(t *testing.T, p interfaces.Prompter, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	e := &env{
		stdin:    strings.NewReader(stdin),
		stdout:   &stdout,
		stderr:   &stderr,
		prompter: p,
		getenv:   func(k string) string { return u.vars[k] },
	}
	global := []string{"-config", u.config, "-email", u.email, "-store", u.store}
	code := run(context.Background(), append(global, args...), e)
	return code, stdout.String(), stderr.String()
}

func (u *testUser) mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	code, out, errOut := u.plk(t, stdin, args...)
	require.Equal(t, 0, code, "plk %v: %s", args, errOut)
	return out
}

const (
	alicePassword     = "Xq7#Lp2$Vz9!Kd4&Wm6^"
	bobPassword       = "Zk8$Qw3!Rn5#Ty1&Hb4^"
	symmetricPassword = "Pq9#Wd4!Mz7$Ky2&Lc5^"
	imagePassword     = "Vb4!Qz8#Lm2$Xr7&Tn5^"
	imagePasswords    = imagePassword + "|" + "Hw3@Kp9%Dj6*Fs1!Gy8~"
)

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	e := &env{stdin: strings.NewReader(""), stdout: &stdout, stderr: &stderr, getenv: func(string) string { return "" }}

	assert.Equal(t, 2, run(context.Background(), nil, e))
	assert.Contains(t, stderr.String(), "Commands:")

	assert.Equal(t, 0, run(context.Background(), []string{"-help"}, e))
	assert.Contains(t, stdout.String(), "encrypt")

	u := newUser(t, "alice@example.com", alicePassword)
	code, _, errOut := u.plk(t, "", "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Unknown command")

	code, _, errOut = u.plk(t, "", "-quality", "99", "lock")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "jpeg_quality")
}

func TestSignedMessageBetweenUsers(t *testing.T) {
	alice := newUser(t, "alice@example.com", alicePassword)
	bob := newUser(t, "bob@example.com", bobPassword)

	aliceLock := strings.TrimSpace(alice.mustRun(t, "", "lock"))
	bobLock := strings.TrimSpace(bob.mustRun(t, "", "lock"))
	require.NotEmpty(t, aliceLock)

	alice.mustRun(t, "", "dir", "add", "bob", bobLock)
	bob.mustRun(t, "", "dir", "add", "alice", aliceLock)
	assert.Contains(t, alice.mustRun(t, "", "dir", "list"), "bob\tlock")

	armored := alice.mustRun(t, "", "encrypt", "-to", "bob", "meet", "at", "noon")
	assert.Contains(t, armored, messaging.LabelSigned)

	code, out, errOut := bob.plk(t, armored, "decrypt")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "meet at noon\n", out)
	assert.Contains(t, errOut, "from alice")

	code, _, _ = alice.plk(t, armored, "decrypt")
	assert.Equal(t, 1, code, "the sender is not a recipient")
}

func TestCancelledMasterPassword(t *testing.T) {
	u := newUser(t, "alice@example.com", alicePassword)
	p := interfaces.NewScriptedPrompter(interfaces.Answer{Cancel: true})
	code, _, errOut := u.plkWith(t, p, "", "lock")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "plk lock:")
}

func TestSymmetricMessage(t *testing.T) {
	alice := newUser(t, "alice@example.com", alicePassword)
	bob := newUser(t, "bob@example.com", bobPassword)

	armored := alice.mustRun(t, "shared secret\n", "encrypt", "-password", symmetricPassword)
	assert.Contains(t, armored, messaging.LabelSymmetric)

	p := interfaces.NewScriptedPrompter(interfaces.Answer{Text: symmetricPassword})
	code, out, errOut := bob.plkWith(t, p, armored, "decrypt")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "shared secret\n", out)
}

func TestFolderKeyFromEnvironment(t *testing.T) {
	alice := newUser(t, "alice@example.com", alicePassword)
	bob := newUser(t, "bob@example.com", bobPassword)

	words := strings.TrimSpace(alice.mustRun(t, "", "folder", "new"))
	require.Len(t, strings.Fields(words), 24)

	alice.vars[folderKeyEnv] = words
	bob.vars[folderKeyEnv] = words
	assert.Equal(t, words, strings.TrimSpace(bob.mustRun(t, "", "folder", "show")))

	armored := alice.mustRun(t, "", "encrypt", "for", "the", "folder")
	assert.Contains(t, armored, messaging.LabelFolder)

	out := bob.mustRun(t, armored, "decrypt")
	assert.Equal(t, "for the folder\n", out)

	bob.vars[folderKeyEnv] = "not valid words"
	code, _, _ := bob.plk(t, "", "folder", "show")
	assert.Equal(t, 1, code)

	code, _, errOut := alice.plk(t, "", "encrypt")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "empty message")
}

func TestSynthAndVault(t *testing.T) {
	u := newUser(t, "alice@example.com", alicePassword)

	first := strings.TrimSpace(u.mustRun(t, "", "synth", "-chars", "hex", "-length", "12", "-save", "www.example.com"))
	assert.Len(t, first, 12)
	assert.Equal(t, strings.Trim(first, "0123456789abcdef"), "")

	again := strings.TrimSpace(u.mustRun(t, "", "synth", "example.com"))
	assert.Equal(t, first, again, "saved settings apply to the registered domain")

	serial := strings.TrimSpace(u.mustRun(t, "", "synth", "-serial", "2", "example.com"))
	assert.NotEqual(t, first, serial)

	u.mustRun(t, "", "vault", "set", "example.com", "hunter2")
	assert.Equal(t, "hunter2\n", u.mustRun(t, "", "vault", "get", "example.com"))

	_, _, errOut := u.plk(t, "", "vault", "set", "example.com", "DELETE")
	assert.Contains(t, errOut, "deleted")
	code, _, _ := u.plk(t, "", "vault", "get", "example.com")
	assert.Equal(t, 1, code)

	wrong := &testUser{email: u.email, password: bobPassword, store: u.store, config: u.config, vars: u.vars}
	wrong.mustRun(t, "", "vault", "set", "example.com", "hunter2")
	code, _, _ = u.plk(t, "", "vault", "get", "example.com")
	assert.Equal(t, 1, code, "another master password cannot open it")
}

func TestNotes(t *testing.T) {
	u := newUser(t, "alice@example.com", alicePassword)

	u.mustRun(t, "", "notes", "add", "example.com", "security", "question", "answer")
	u.mustRun(t, "", "notes", "add", "-once", "example.com", "one", "time", "code")

	out := u.mustRun(t, "", "notes", "show", "example.com")
	assert.Contains(t, out, "security question answer")
	assert.Contains(t, out, "one time code")

	out = u.mustRun(t, "", "notes", "show", "example.com")
	assert.Equal(t, "security question answer\n", out)

	u.mustRun(t, "", "notes", "clear", "example.com")
	_, out, errOut := u.plk(t, "", "notes", "show", "example.com")
	assert.Empty(t, out)
	assert.Contains(t, errOut, "No notes")
}

func TestDirectoryExportImport(t *testing.T) {
	alice := newUser(t, "alice@example.com", alicePassword)
	bob := newUser(t, "bob@example.com", bobPassword)
	bobLock := strings.TrimSpace(bob.mustRun(t, "", "lock"))

	alice.mustRun(t, "", "dir", "add", "bob", bobLock)
	alice.mustRun(t, "", "dir", "add", "friends", "bob")
	list := alice.mustRun(t, "", "dir", "list")
	assert.Contains(t, list, "friends\tgroup")

	export := filepath.Join(t.TempDir(), "dir.json")
	alice.mustRun(t, "", "dir", "export", export)

	carol := newUser(t, "carol@example.com", alicePassword)
	carol.mustRun(t, "", "dir", "import", export)
	assert.Equal(t, list, carol.mustRun(t, "", "dir", "list"))

	carol.mustRun(t, "", "dir", "reset", "bob")
	carol.mustRun(t, "", "dir", "rm", "friends")
	assert.NotContains(t, carol.mustRun(t, "", "dir", "list"), "friends")

	code, _, _ := carol.plk(t, "", "dir", "rm", "friends")
	assert.Equal(t, 1, code)
}

func writeCover(t *testing.T, path string, w, h int) {
	t.Helper()
	rng := rand.New(rand.NewSource(3))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rng.Intn(256))
		img.Pix[i+1] = uint8(rng.Intn(256))
		img.Pix[i+2] = uint8(rng.Intn(256))
		img.Pix[i+3] = 255
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestHideAndReveal(t *testing.T) {
	alice := newUser(t, "alice@example.com", alicePassword)
	bob := newUser(t, "bob@example.com", bobPassword)
	aliceLock := strings.TrimSpace(alice.mustRun(t, "", "lock"))
	bobLock := strings.TrimSpace(bob.mustRun(t, "", "lock"))
	alice.mustRun(t, "", "dir", "add", "bob", bobLock)
	bob.mustRun(t, "", "dir", "add", "alice", aliceLock)

	dir := t.TempDir()
	cover := filepath.Join(dir, "cover.png")
	writeCover(t, cover, 96, 96)

	armored := alice.mustRun(t, "", "encrypt", "-to", "bob", "under", "the", "picture")
	hidden := filepath.Join(dir, "hidden.png")
	alice.mustRun(t, armored, "hide", "-in", cover, "-out", hidden, "-password", imagePasswords, "-second", "decoy words")

	code, out, errOut := bob.plk(t, "", "reveal", "-in", hidden, "-password", imagePasswords)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "under the picture")
	assert.Contains(t, out, "--- second message ---\ndecoy words")

	plain := filepath.Join(dir, "plain.jpg")
	alice.mustRun(t, "", "hide", "-in", cover, "-out", plain, "-text", "-password", imagePassword, "just", "text")
	assert.Equal(t, "just text\n", bob.mustRun(t, "", "reveal", "-in", plain, "-password", imagePassword))

	code, _, errOut = alice.plk(t, "", "hide", "-in", cover, "-out", hidden, "-password", imagePassword, "not", "a", "message")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "-text")
}

func TestStrength(t *testing.T) {
	u := newUser(t, "alice@example.com", alicePassword)
	out := u.mustRun(t, "", "strength", "password")
	assert.Contains(t, out, "Rating: This is a known bad Password!")

	out = u.mustRun(t, "", "strength")
	assert.Contains(t, out, "Entropy:")
}

func TestShell(t *testing.T) {
	u := newUser(t, "alice@example.com", alicePassword)
	p := interfaces.NewScriptedPrompter(interfaces.Answer{Text: alicePassword})
	script := strings.Join([]string{
		"folder new",
		"folder show",
		"lock",
		"lock",
		"encrypt 'to the folder'",
		"bogus",
		"exit",
		"lock",
	}, "\n")

	code, out, errOut := u.plkWith(t, p, script, "shell")
	require.Equal(t, 0, code)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Equal(t, lines[0], lines[1], "the folder key survives between lines")
	assert.Equal(t, lines[2], lines[3])
	assert.Equal(t, 0, p.Remaining(), "the master password is asked once")
	assert.Contains(t, out, messaging.LabelFolder)
	assert.Contains(t, errOut, `Unknown command "bogus"`)
}

func TestSplitLine(t *testing.T) {
	tests := []struct {
		in   string
		want []string
		err  bool
	}{
		{"", nil, false},
		{"  lock  ", []string{"lock"}, false},
		{`encrypt -to bob "meet at noon"`, []string{"encrypt", "-to", "bob", "meet at noon"}, false},
		{`notes add x 'it''s'`, []string{"notes", "add", "x", "its"}, false},
		{`a\ b c`, []string{"a b", "c"}, false},
		{`say ""`, []string{"say", ""}, false},
		{`"open`, nil, true},
	}
	for _, tt := range tests {
		got, err := splitLine(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
