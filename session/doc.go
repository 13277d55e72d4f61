// Package session holds the secrets a user types once and reuses: the
// master password, the identity derived from it and the active folder key.
//
// The values live in memguard enclaves rather than ordinary strings, and a
// deadline scheduled on a crypto.TimeProvider destroys them after a period
// without activity (five minutes unless configured). Reading a secret counts
// as activity; so does Touch.
//
// Folder keys can be written down as 24-word BIP-39 phrases with
// FolderKeyMnemonic and restored with FolderKeyFromMnemonic.
package session
