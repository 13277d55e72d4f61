// Package metrics exposes Prometheus collectors for key derivation, message
// encryption and decryption, steganography and the read-once ratchet.
//
// Library packages record into Default. Callers that want an isolated
// registry (tests, embedded use) build their own with New and pass it to the
// constructors that accept a *Metrics.
package metrics
