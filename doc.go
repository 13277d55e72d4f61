// Package passlok is the entry point to the PassLok toolkit: public-key and
// password-based message encryption, read-once messages with forward
// secrecy, steganography in PNG and JPEG images and a per-site password
// vault, all keyed by a single master password.
//
// # Getting Started
//
//	options := passlok.NewOptions()
//	options.Email = "alice@example.com"
//	options.StorePath = "passlok.db"
//
//	p, err := passlok.New(options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	if err := p.Unlock(masterPassword); err != nil {
//	    log.Fatal(err)
//	}
//	lock, _ := p.MyLock() // publish this
//
// # Messages
//
// Contacts are kept in the directory under a name and their Lock. Encrypt
// picks the mode from the settings: recipients give a signed message, or an
// anonymous one when asked, or a read-once message; no recipients give a
// folder key, symmetric or invitation message.
//
//	err = p.Directory().Update(func(d *directory.Directory) error {
//	    return d.Put("bob", bobsLock)
//	})
//	armored, err := p.EncryptText("meet at noon", messaging.Settings{
//	    Recipients: []string{"bob"},
//	}, false)
//
//	pt, err := p.Decrypt(armored)
//	fmt.Println(pt.SenderName, pt.Text)
//
// # Images
//
// Hide embeds a payload, usually an encrypted message, in a cover image.
// The password input may carry a second password after "|" for a second
// message that follows the first:
//
//	out, err := p.Hide(cover, stego.FormatPNG, payload, nil, "image password")
//	rev, format, err := p.Reveal(out, "image password")
//	pt, err := p.OpenRevealed(rev.Primary)
//
// # Sessions
//
// The master password, the identity derived from it and the active folder
// key are held by a session.Session and wiped after five minutes without
// use (Options.SessionTimeout). Operations that need them ask the Prompter
// again once the session has timed out.
//
// # Sub-packages
//
//   - codec: armor, Lock encoding, base conversion, LZ-String, documents
//   - crypto: wiseHash, entropy rating, identities, NaCl wrappers
//   - directory: contacts, groups, host records, bolt and memory stores
//   - messaging: envelope format, encryption and decryption by mode
//   - ratchet: read-once key rotation
//   - stego, stego/jpegcoef: image steganography and the JPEG coefficient codec
//   - session: in-memory key holding with an inactivity deadline
//   - vault: password synthesizer, stored passwords and site notes
//   - metrics: Prometheus collectors
//   - cmd/plk: the command-line tool
package passlok
