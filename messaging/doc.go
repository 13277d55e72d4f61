// Package messaging builds and opens PassLok envelopes.
//
// # Modes
//
// The first byte of every envelope selects the mode:
//
//	128  shared key: symmetric password, invitation (the sender's Lock used
//	     as a key) or folder key. No recipient slots.
//	0    anonymous: a fresh ephemeral key pair per message.
//	72   signed: the sender's permanent key pair.
//	56   read-once: keys from the per-contact ratchet (see package ratchet).
//
// Slotted modes seal a random message key once per recipient. A slot starts
// with an 8-byte identity tag, the first bytes of the recipient's public key
// sealed under the DH shared key, so a recipient finds its slot by
// recomputing the tag instead of trying every slot. Slots are shuffled
// before they are written.
//
// # Padding
//
// Every envelope carries 100 bytes of padding after the nonce. It is random
// unless a decoy message was requested, in which case it holds a short text
// sealed under a separate key; [DecryptDecoy] opens it.
//
// # Usage
//
//	enc := messaging.NewEncryptor(repo, hosts, "example.com", prompter)
//	res, err := enc.Encrypt([]byte("hello"), messaging.Settings{
//	    Recipients: []string{"alice", "=team="},
//	    Identity:   id,
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Armor(true))
//
//	dec := messaging.NewDecryptor(repo, hosts, "example.com", prompter)
//	pt, err := dec.DecryptText(armored, messaging.Keys{Identity: id, Email: email})
//
// Errors are sentinels tested with errors.Is: [ErrNoMatchingRecipient] means
// the message was not sealed for this identity, [ErrAuthenticationFailed]
// means a key was found but the data did not open.
package messaging
