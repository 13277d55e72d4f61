package directory

import (
	"sync"

	"github.com/opd-ai/passlok/metrics"
)

// Repository persists the directory. Update runs fn on a copy inside one
// transaction and persists only if fn returns nil, so a failed ratchet step
// never leaves half-written state.
type Repository interface {
	Load() (*Directory, error)
	Save(d *Directory) error
	Update(fn func(d *Directory) error) error
}

// MemoryStore keeps the directory and host records in memory.
type MemoryStore struct {
	mu    sync.Mutex
	dir   *Directory
	hosts map[string]HostRecord
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{dir: New(), hosts: make(map[string]HostRecord)}
}

// Load returns a copy of the stored directory.
func (m *MemoryStore) Load() (*Directory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dir.Clone(), nil
}

// Save replaces the stored directory.
func (m *MemoryStore) Save(d *Directory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dir = d.Clone()
	metrics.Default.CountDirectoryWrite("memory", nil)
	return nil
}

// Update applies fn to a copy and keeps the copy if fn succeeds.
func (m *MemoryStore) Update(fn func(d *Directory) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.dir.Clone()
	if err := fn(work); err != nil {
		return err
	}
	m.dir = work
	metrics.Default.CountDirectoryWrite("memory", nil)
	return nil
}

// HostRecord returns the record for host, or an empty record.
func (m *MemoryStore) HostRecord(host string) (HostRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneHost(m.hosts[RegisteredDomain(host)]), nil
}

// PutHostRecord stores rec for host. An empty record deletes it.
func (m *MemoryStore) PutHostRecord(host string, rec HostRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := RegisteredDomain(host)
	if rec.IsEmpty() {
		delete(m.hosts, key)
		return nil
	}
	m.hosts[key] = cloneHost(rec)
	return nil
}

func cloneHost(h HostRecord) HostRecord {
	var out HostRecord
	if h.Synth != nil {
		s := *h.Synth
		out.Synth = &s
	}
	if h.Crypt != nil {
		c := *h.Crypt
		out.Crypt = &c
	}
	return out
}
