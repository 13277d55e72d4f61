// Package vault implements the per-site password tools: the deterministic
// password synthesizer, a stored password per site and encrypted site notes,
// including read-once notes that delete themselves when shown.
//
// Everything is keyed by registered domain (see directory.RegisteredDomain)
// and kept in the host record's synth and crypt sections. Stored values are
// k-mode blobs sealed with wiseHash(master password, host), so nothing in
// the store opens without the master password.
package vault
