package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/opd-ai/passlok"
	"github.com/opd-ai/passlok/codec"
	"github.com/opd-ai/passlok/crypto"
	"github.com/opd-ai/passlok/directory"
	"github.com/opd-ai/passlok/interfaces"
	"github.com/opd-ai/passlok/messaging"
	"github.com/opd-ai/passlok/session"
	"github.com/opd-ai/passlok/stego"
	"github.com/opd-ai/passlok/vault"
)

var (
	errCancelled   = errors.New("cancelled")
	errMissingArg  = errors.New("missing argument")
	errNothingToDo = errors.New("empty message: give recipients or -password to share the folder key")
)

// cmdContext is what a command runs against.
type cmdContext struct {
	cfg Config
	env *env
	pl  *passlok.PassLok
	// interactive is set inside the shell, where text comes only from
	// arguments.
	interactive bool
}

type command struct {
	name    string
	usage   string
	summary string
	run     func(c *cmdContext, args []string) error
}

func commandTable() []command {
	return []command{
		{"lock", "", "Print your Lock", cmdLock},
		{"hashili", "", "Print the master password checksum", cmdHashili},
		{"strength", "[password]", "Rate a password", cmdStrength},
		{"encrypt", "[flags] [text]", "Encrypt text from arguments or stdin", cmdEncrypt},
		{"decrypt", "[flags] [message]", "Decrypt a message", cmdDecrypt},
		{"hide", "-in img -out img", "Hide a message in an image", cmdHide},
		{"reveal", "-in img", "Reveal a message hidden in an image", cmdReveal},
		{"synth", "[flags] host", "Synthesize the password for a site", cmdSynth},
		{"vault", "get|set|delete host", "Stored site passwords", cmdVault},
		{"notes", "show|add|clear host", "Encrypted site notes", cmdNotes},
		{"dir", "list|add|rm|reset|export|import", "Manage the directory", cmdDir},
		{"folder", "new|show|restore|clear", "Manage the folder key", cmdFolder},
	}
}

func lookupCommand(name string) *command {
	cmds := commandTable()
	for i := range cmds {
		if cmds[i].name == name {
			return &cmds[i]
		}
	}
	return nil
}

func (c *cmdContext) printf(format string, a ...any) {
	fmt.Fprintf(c.env.stdout, format, a...)
}

func (c *cmdContext) println(a ...any) {
	fmt.Fprintln(c.env.stdout, a...)
}

func (c *cmdContext) notef(format string, a ...any) {
	fmt.Fprintf(c.env.stderr, format, a...)
}

func (c *cmdContext) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.env.stderr)
	return fs
}

// ask prompts for a value. A declined prompt is errCancelled.
func (c *cmdContext) ask(kind interfaces.PromptKind, message string) (string, error) {
	if c.env.prompter == nil {
		return "", fmt.Errorf("%w: %s", errMissingArg, strings.TrimSuffix(message, ":"))
	}
	answer, ok, err := c.env.prompter.Prompt(kind, message)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errCancelled
	}
	return answer, nil
}

// input returns the arguments joined by spaces, or standard input when
// there are none.
func (c *cmdContext) input(args []string, what string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if c.interactive {
		return "", fmt.Errorf("%w: %s", errMissingArg, what)
	}
	data, err := io.ReadAll(c.env.stdin)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", what, err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func (c *cmdContext) folderKeyActive() bool {
	key, err := c.pl.Session().FolderKey()
	if err != nil {
		return false
	}
	crypto.ZeroBytes(key[:])
	return true
}

func cmdLock(c *cmdContext, _ []string) error {
	lock, err := c.pl.MyLock()
	if err != nil {
		return err
	}
	c.println(lock)
	return nil
}

func cmdHashili(c *cmdContext, _ []string) error {
	h, err := c.pl.Hashili()
	if err != nil {
		return err
	}
	c.println(h)
	return nil
}

func cmdStrength(c *cmdContext, args []string) error {
	pwd := strings.Join(args, " ")
	if pwd == "" {
		var err error
		if pwd, err = c.ask(interfaces.PromptPassword, "Password to rate:"); err != nil {
			return err
		}
	}
	st := crypto.RateStrength(pwd)
	c.printf("Entropy: %.1f bits\n", st.Entropy)
	c.printf("Rating: %s\n", st.Rating)
	c.printf("Key stretching: 2^%d\n", st.Iterations)
	return nil
}

func cmdEncrypt(c *cmdContext, args []string) error {
	fs := c.flags("encrypt")
	to := fs.String("to", "", "Recipients: names, =groups=, Locks or \"me\", comma separated")
	anon := fs.Bool("anon", false, "Anonymous message")
	once := fs.Bool("once", false, "Read-once message")
	password := fs.String("password", "", "Shared password for a symmetric message")
	invite := fs.Bool("invite", false, "Invitation carrying your Lock")
	decoy := fs.String("decoy", "", "Decoy text hidden in the padding")
	decoyKey := fs.String("decoy-key", "", "Key for the decoy text")
	withLock := fs.Bool("lock", c.cfg.armorLock(), "Prepend your Lock")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s := messaging.Settings{
		Anonymous:  *anon,
		ReadOnce:   *once,
		Password:   *password,
		Invitation: *invite,
		DecoyText:  *decoy,
		DecoyKey:   *decoyKey,
	}
	if *to != "" {
		s.Recipients = []string{*to}
	}
	if err := s.Validate(); err != nil {
		return err
	}

	text, err := c.input(fs.Args(), "message text")
	if err != nil {
		return err
	}

	var res *messaging.Result
	if text == "" {
		if len(s.Recipients) == 0 && s.Password == "" {
			return errNothingToDo
		}
		if res, err = c.pl.ShareFolderKey(s); err != nil {
			return err
		}
		if words, err := c.pl.Session().FolderMnemonic(); err == nil {
			c.notef("Sharing folder key: %s\n", words)
		}
	} else if res, err = c.pl.Encrypt([]byte(text), s); err != nil {
		return err
	}

	c.println(res.Armor(*withLock))
	return nil
}

func cmdDecrypt(c *cmdContext, args []string) error {
	fs := c.flags("decrypt")
	decoyKey := fs.String("decoy-key", "", "Open the decoy text with this key")
	outDir := fs.String("out", "", "Save attachments in this directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	text, err := c.input(fs.Args(), "message")
	if err != nil {
		return err
	}
	pt, err := c.pl.Decrypt(text)
	if err != nil {
		return err
	}
	if err := c.report(pt, *outDir); err != nil {
		return err
	}

	if *decoyKey != "" {
		d, err := c.pl.DecryptDecoy(pt, *decoyKey)
		if err != nil {
			return fmt.Errorf("decoy: %w", err)
		}
		c.printf("Decoy: %s\n", d)
	}
	return nil
}

// report prints a decrypted payload. Attachments are written to outDir when
// it is set.
func (c *cmdContext) report(pt *messaging.Plaintext, outDir string) error {
	if pt.SenderName != "" {
		c.notef("%s message from %s\n", pt.ModeLabel, pt.SenderName)
	}

	switch {
	case pt.IsFolderKey():
		words, err := session.FolderKeyMnemonic(*pt.FolderKey)
		if err != nil {
			return err
		}
		c.println("Folder key activated. Words to restore it:")
		c.println(words)
	case pt.Document != nil:
		c.println(pt.Document.Text)
		for i, f := range pt.Document.Files {
			if outDir == "" {
				c.notef("Attachment %d: %s (%d bytes), use -out to save\n", i, f.Name, len(f.Data))
				continue
			}
			path := filepath.Join(outDir, attachmentName(f.Name, i))
			if err := os.WriteFile(path, f.Data, 0o600); err != nil {
				return fmt.Errorf("saving attachment: %w", err)
			}
			c.notef("Saved %s\n", path)
		}
	default:
		c.println(pt.Text)
	}
	return nil
}

func attachmentName(name string, i int) string {
	base := filepath.Base(name)
	switch base {
	case "", ".", "..", string(filepath.Separator):
		return fmt.Sprintf("attachment-%d", i)
	}
	return base
}

// formatFor picks the carrier format from the flag, then from the output
// file's extension.
func formatFor(flagValue, path string) (stego.Format, error) {
	switch strings.ToLower(flagValue) {
	case "png":
		return stego.FormatPNG, nil
	case "jpeg", "jpg":
		return stego.FormatJPEG, nil
	case "":
	default:
		return "", fmt.Errorf("%w: %q", stego.ErrUnknownFormat, flagValue)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return stego.FormatJPEG, nil
	}
	return stego.FormatPNG, nil
}

func readImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// stegoPasswords completes "first|second" password input by prompting. An
// active folder key stands in for the first password.
func (c *cmdContext) stegoPasswords(given string, needSecond bool) (string, error) {
	first, second := stego.SplitPair(given)
	var err error
	if first == "" && !c.folderKeyActive() {
		if first, err = c.ask(interfaces.PromptPassword, "Image password:"); err != nil {
			return "", err
		}
	}
	if needSecond && second == "" {
		if second, err = c.ask(interfaces.PromptPassword, "Second image password:"); err != nil {
			return "", err
		}
	}
	if second == "" {
		return first, nil
	}
	return first + "|" + second, nil
}

// hidePayload turns text into the bytes to hide: PassLok messages are
// hidden in binary form, anything else behind the text marker.
func hidePayload(text string, plain bool) ([]byte, error) {
	if plain {
		return stego.MarkText(text), nil
	}
	if !codec.DetectCrypto(text) {
		return nil, fmt.Errorf("%w (use -text to hide plain text)", codec.ErrNoArmoredMessage)
	}
	a, err := codec.Dearmor(text)
	if err != nil {
		return nil, err
	}
	return a.Binary, nil
}

func cmdHide(c *cmdContext, args []string) error {
	fs := c.flags("hide")
	in := fs.String("in", "", "Cover image, PNG or JPEG")
	out := fs.String("out", "", "Output image")
	format := fs.String("format", "", "Output format, png or jpeg (default from -out)")
	plain := fs.Bool("text", false, "Hide plain text instead of a PassLok message")
	second := fs.String("second", "", "Second message, hidden under a second password")
	password := fs.String("password", "", "Image password, optionally \"first|second\"")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return fmt.Errorf("%w: -in and -out are required", errMissingArg)
	}

	f, err := formatFor(*format, *out)
	if err != nil {
		return err
	}
	text, err := c.input(fs.Args(), "message")
	if err != nil {
		return err
	}
	payload, err := hidePayload(text, *plain)
	if err != nil {
		return err
	}
	var secondary []byte
	if *second != "" {
		if secondary, err = hidePayload(*second, !codec.DetectCrypto(*second)); err != nil {
			return err
		}
	}

	cover, err := readImage(*in)
	if err != nil {
		return err
	}
	passwords, err := c.stegoPasswords(*password, secondary != nil)
	if err != nil {
		return err
	}

	data, err := c.pl.Hide(cover, f, payload, secondary, passwords)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return err
	}
	c.notef("Hid %d bytes in %s (%s)\n", len(payload)+len(secondary), *out, f)
	return nil
}

func cmdReveal(c *cmdContext, args []string) error {
	fs := c.flags("reveal")
	in := fs.String("in", "", "Image to read")
	password := fs.String("password", "", "Image password, optionally \"first|second\"")
	outDir := fs.String("out", "", "Save attachments in this directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("%w: -in is required", errMissingArg)
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	passwords, err := c.stegoPasswords(*password, false)
	if err != nil {
		return err
	}
	rev, _, err := c.pl.Reveal(data, passwords)
	if err != nil {
		return err
	}

	pt, err := c.pl.OpenRevealed(rev.Primary)
	if err != nil {
		return err
	}
	if err := c.report(pt, *outDir); err != nil {
		return err
	}

	switch {
	case rev.Secondary != nil:
		pt2, err := c.pl.OpenRevealed(rev.Secondary)
		if err != nil {
			return fmt.Errorf("second message: %w", err)
		}
		c.println("--- second message ---")
		return c.report(pt2, *outDir)
	case rev.SecondaryErr != nil:
		c.notef("No second message: %v\n", rev.SecondaryErr)
	}
	return nil
}

func cmdSynth(c *cmdContext, args []string) error {
	fs := c.flags("synth")
	serial := fs.String("serial", "", "Serial appended to the site name")
	chars := fs.String("chars", "", "Allowed characters, keywords like \"alpha\" or literal symbols")
	length := fs.Int("length", 0, "Maximum length, 0 for no limit")
	save := fs.Bool("save", false, "Remember these settings for the site")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: host", errMissingArg)
	}
	host := fs.Arg(0)

	settings, err := c.pl.Vault().SynthSettings(host)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "serial":
			settings.Serial = *serial
		case "chars":
			settings.AllowedChars = *chars
		case "length":
			settings.LengthLimit = *length
		}
	})
	if *save {
		if err := c.pl.Vault().SaveSynthSettings(host, settings); err != nil {
			return err
		}
	}

	pwd, err := c.pl.MasterPassword()
	if err != nil {
		return err
	}
	out, err := vault.Synthesize(pwd, directory.RegisteredDomain(host), settings)
	if err != nil {
		return err
	}
	c.println(out)
	return nil
}

func subcommand(args []string, what string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%w: %s", errMissingArg, what)
	}
	return args[0], args[1:], nil
}

func cmdVault(c *cmdContext, args []string) error {
	sub, rest, err := subcommand(args, "get, set or delete")
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return fmt.Errorf("%w: host", errMissingArg)
	}
	host := rest[0]

	if sub == "delete" {
		return c.pl.Vault().DeletePassword(host)
	}
	pwd, err := c.pl.MasterPassword()
	if err != nil {
		return err
	}

	switch sub {
	case "get":
		stored, ok, err := c.pl.Vault().StoredPassword(pwd, host)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no password stored for %s", host)
		}
		c.println(stored)
	case "set":
		value := strings.Join(rest[1:], " ")
		if value == "" {
			prompt := fmt.Sprintf("Password to store for %s (%s removes it):", host, vault.DeleteCommand)
			if value, err = c.ask(interfaces.PromptPassword, prompt); err != nil {
				return err
			}
		}
		deleted, err := c.pl.Vault().StorePassword(pwd, host, value)
		if err != nil {
			return err
		}
		if deleted {
			c.notef("Password for %s deleted\n", host)
		} else {
			c.notef("Password for %s stored\n", host)
		}
	default:
		return fmt.Errorf("unknown vault command %q", sub)
	}
	return nil
}

func cmdNotes(c *cmdContext, args []string) error {
	sub, rest, err := subcommand(args, "show, add or clear")
	if err != nil {
		return err
	}
	fs := c.flags("notes " + sub)
	once := fs.Bool("once", false, "Read-once note, deleted after it is shown")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: host", errMissingArg)
	}
	host := fs.Arg(0)

	if sub == "clear" {
		return c.pl.Vault().ClearNotes(host)
	}
	pwd, err := c.pl.MasterPassword()
	if err != nil {
		return err
	}

	switch sub {
	case "show":
		n, err := c.pl.Vault().ReadNotes(pwd, host)
		if err != nil {
			return err
		}
		if n.Empty() {
			c.notef("No notes for %s\n", host)
			return nil
		}
		c.println(n.String())
		if n.OnceDeleted {
			c.notef("The read-once note has been deleted\n")
		}
	case "add":
		text, err := c.input(fs.Args()[1:], "note text")
		if err != nil {
			return err
		}
		if text == "" {
			return vault.ErrEmptyValue
		}
		return c.pl.Vault().SaveNote(pwd, host, text, *once)
	default:
		return fmt.Errorf("unknown notes command %q", sub)
	}
	return nil
}

func cmdDir(c *cmdContext, args []string) error {
	sub, rest, err := subcommand(args, "list, add, rm, reset, export or import")
	if err != nil {
		return err
	}
	repo := c.pl.Directory()

	switch sub {
	case "list":
		d, err := repo.Load()
		if err != nil {
			return err
		}
		for _, name := range d.Names() {
			e, _ := d.Get(name)
			kind := "lock"
			if e.IsGroup() {
				kind = "group"
			}
			state := ""
			if e.HasReadOnce() {
				state = " read-once:" + string(e.RO.Turn)
			}
			c.printf("%s\t%s%s\t%s\n", name, kind, state, e.Lock)
		}
		return nil
	case "add":
		if len(rest) < 2 {
			return fmt.Errorf("%w: name and Lock", errMissingArg)
		}
		name, lock := rest[0], strings.Join(rest[1:], ",")
		return repo.Update(func(d *directory.Directory) error { return d.Put(name, lock) })
	case "rm":
		if len(rest) != 1 {
			return fmt.Errorf("%w: name", errMissingArg)
		}
		return repo.Update(func(d *directory.Directory) error { return d.Delete(rest[0]) })
	case "reset":
		if len(rest) != 1 {
			return fmt.Errorf("%w: name", errMissingArg)
		}
		return repo.Update(func(d *directory.Directory) error { return d.ResetReadOnce(rest[0]) })
	case "export":
		d, err := repo.Load()
		if err != nil {
			return err
		}
		data, err := directory.ExportJSON(d)
		if err != nil {
			return err
		}
		if len(rest) == 1 {
			return os.WriteFile(rest[0], data, 0o600)
		}
		c.println(string(data))
		return nil
	case "import":
		if len(rest) != 1 {
			return fmt.Errorf("%w: file", errMissingArg)
		}
		data, err := os.ReadFile(rest[0])
		if err != nil {
			return err
		}
		imported, err := directory.ImportJSON(data)
		if err != nil {
			return err
		}
		return repo.Update(func(d *directory.Directory) error {
			if d.Entries == nil {
				d.Entries = make(map[string]*directory.Entry)
			}
			for name, e := range imported.Entries {
				d.Entries[name] = e
			}
			return nil
		})
	}
	return fmt.Errorf("unknown dir command %q", sub)
}

func cmdFolder(c *cmdContext, args []string) error {
	sub, rest, err := subcommand(args, "new, show, restore or clear")
	if err != nil {
		return err
	}
	sess := c.pl.Session()

	switch sub {
	case "new":
		key, err := session.NewFolderKey()
		if err != nil {
			return err
		}
		sess.SetFolderKey(key)
		crypto.ZeroBytes(key[:])
	case "restore":
		words := strings.Join(rest, " ")
		if words == "" {
			if words, err = c.ask(interfaces.PromptText, "Folder key words:"); err != nil {
				return err
			}
		}
		if err := sess.ActivateMnemonic(words); err != nil {
			return err
		}
		c.notef("Folder key active\n")
		return nil
	case "show":
	case "clear":
		sess.ClearFolderKey()
		return nil
	default:
		return fmt.Errorf("unknown folder command %q", sub)
	}

	words, err := sess.FolderMnemonic()
	if err != nil {
		return err
	}
	c.println(words)
	return nil
}
