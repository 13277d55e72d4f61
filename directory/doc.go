// Package directory stores the user's contacts and per-site records.
//
// A [Directory] maps names to Locks. An entry whose Lock is not a strict
// 50-character Lock is a group, expanded by the [Resolver] into its member
// selectors. Each entry may carry read-once ratchet state ([ReadOnce]); the
// ratchet package owns its meaning, this package only stores it.
//
// Persistence goes through [Repository]. [MemoryStore] serves tests and
// one-shot CLI runs; [BoltStore] keeps CBOR records in a bolt file. Both also
// store [HostRecord]s keyed by [RegisteredDomain].
//
// Exports from older clients use a flat JSON map with string, array or
// object values. [ImportJSON] and [Migrate] convert them once at load time.
package directory
