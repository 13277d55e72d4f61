// Package ratchet implements the read-once key rotation.
//
// Each contact carries {lastkey, lastlock, turn}. lastkey is our most recent
// ephemeral Curve25519 secret, lastlock the most recent ephemeral public key
// the contact sent us. Both are sealed at rest with a key derived by HKDF
// from our identity, and a blob that no longer opens is reported as
// [ErrStateCorruption] rather than silently replaced.
//
// Sending uses the freshest keys each side knows about and announces which
// with a type byte ([TypeReset], [TypeFirstUnlock], [TypeContinue]); every
// send generates a new ephemeral pair whose public half rides along sealed
// in the slot. Receiving tries the keys the type byte allows, and only after
// the message body has opened does [Manager.CommitReceive] store the
// sender's new Lock.
//
// The manager never loads or saves the directory itself. Callers run
// PrepareSend/Commit and Receive/CommitReceive inside one
// directory.Repository Update so the state change and the message succeed or
// fail together.
package ratchet
