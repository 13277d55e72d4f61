package directory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opd-ai/passlok/codec"
)

// CurrentVersion is the record version written by this package.
const CurrentVersion = 1

// Turn is the position of a read-once conversation in its cycle.
type Turn string

const (
	TurnReset  Turn = "reset"
	TurnUnlock Turn = "unlock"
	TurnLock   Turn = "lock"
)

// ReadOnce is the ratchet state kept for one correspondent. LastKey and
// LastLock are k-mode blobs sealed under a key derived from the owner's
// identity; this package never opens them.
type ReadOnce struct {
	LastKey  string `cbor:"lastkey,omitempty" json:"lastkey,omitempty"`
	LastLock string `cbor:"lastlock,omitempty" json:"lastlock,omitempty"`
	Turn     Turn   `cbor:"turn" json:"turn"`
}

// Entry maps a name to a Lock. A Lock field that is not a strict Lock is a
// group: a comma-separated list of further selectors.
type Entry struct {
	Lock string    `cbor:"lock" json:"lock"`
	RO   *ReadOnce `cbor:"ro,omitempty" json:"ro,omitempty"`
}

// IsGroup reports whether the entry expands to other selectors.
func (e *Entry) IsGroup() bool {
	return !codec.IsStrictLock(e.Lock)
}

// HasReadOnce reports whether any ratchet state is stored.
func (e *Entry) HasReadOnce() bool {
	return e.RO != nil && (e.RO.LastKey != "" || e.RO.LastLock != "" || (e.RO.Turn != "" && e.RO.Turn != TurnReset))
}

// Directory is the versioned contact list.
type Directory struct {
	Version int               `cbor:"v" json:"version"`
	Entries map[string]*Entry `cbor:"entries" json:"entries"`
}

// New returns an empty directory at the current version.
func New() *Directory {
	return &Directory{Version: CurrentVersion, Entries: make(map[string]*Entry)}
}

// Get returns the entry for name.
func (d *Directory) Get(name string) (*Entry, bool) {
	if d == nil || d.Entries == nil {
		return nil, false
	}
	e, ok := d.Entries[name]
	return e, ok && e != nil
}

// Put creates or replaces the Lock of name. Existing ratchet state is kept
// when the Lock does not change and cleared when it does.
func (d *Directory) Put(name, lock string) error {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "me") || strings.HasPrefix(name, "(Me) ") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if d.Entries == nil {
		d.Entries = make(map[string]*Entry)
	}

	lock = strings.TrimSpace(lock)
	if e, ok := d.Entries[name]; ok && e != nil {
		if e.Lock != lock {
			e.Lock = lock
			e.RO = &ReadOnce{Turn: TurnReset}
		}
		return nil
	}
	d.Entries[name] = &Entry{Lock: lock, RO: &ReadOnce{Turn: TurnReset}}
	return nil
}

// Delete removes name.
func (d *Directory) Delete(name string) error {
	if _, ok := d.Get(name); !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(d.Entries, name)
	return nil
}

// ResetReadOnce discards the ratchet state for name, so the next read-once
// message in either direction starts a new conversation.
func (d *Directory) ResetReadOnce(name string) error {
	e, ok := d.Get(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	e.RO = nil
	return nil
}

// Names returns the entry names in sorted order.
func (d *Directory) Names() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.Entries))
	for name, e := range d.Entries {
		if e != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// FindByLock returns the first name, in sorted order, whose entry holds lock.
func (d *Directory) FindByLock(lock string) (string, bool) {
	for _, name := range d.Names() {
		if d.Entries[name].Lock == lock {
			return name, true
		}
	}
	return "", false
}

// Clone returns a deep copy.
func (d *Directory) Clone() *Directory {
	out := &Directory{Version: d.Version, Entries: make(map[string]*Entry, len(d.Entries))}
	for name, e := range d.Entries {
		if e == nil {
			continue
		}
		c := &Entry{Lock: e.Lock}
		if e.RO != nil {
			ro := *e.RO
			c.RO = &ro
		}
		out.Entries[name] = c
	}
	return out
}
