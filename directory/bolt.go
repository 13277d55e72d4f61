package directory

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/fxamacker/cbor/v2"
	"github.com/opd-ai/passlok/metrics"
	"github.com/sirupsen/logrus"
)

var (
	bucketDirectory = []byte("directory")
	bucketHosts     = []byte("hosts")
	keyLocDir       = []byte("locDir")
)

// BoltStore persists the directory and host records in a bolt file, CBOR
// encoded. It implements Repository and the host record store.
type BoltStore struct {
	db  *bolt.DB
	enc cbor.EncMode
}

// OpenBoltStore opens or creates the store at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(filepath.Clean(path), 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketDirectory, bucketHosts} {
			if _, e := tx.CreateBucketIfNotExists(b); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing buckets: %w", err)
	}

	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		db.Close()
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "OpenBoltStore",
		"path":     path,
	}).Debug("Store opened")
	return &BoltStore{db: db, enc: enc}, nil
}

// Close releases the file lock.
func (b *BoltStore) Close() error { return b.db.Close() }

// Load reads the directory, returning an empty one if none was saved.
func (b *BoltStore) Load() (*Directory, error) {
	var d *Directory
	err := b.db.View(func(tx *bolt.Tx) error {
		var err error
		d, err = readDirectory(tx)
		return err
	})
	return d, err
}

// Save overwrites the stored directory.
func (b *BoltStore) Save(d *Directory) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return b.writeDirectory(tx, d)
	})
	metrics.Default.CountDirectoryWrite("bolt", err)
	return err
}

// Update runs fn inside a bolt write transaction. If fn fails the
// transaction rolls back and nothing is written.
func (b *BoltStore) Update(fn func(d *Directory) error) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		d, err := readDirectory(tx)
		if err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
		return b.writeDirectory(tx, d)
	})
	metrics.Default.CountDirectoryWrite("bolt", err)
	return err
}

func readDirectory(tx *bolt.Tx) (*Directory, error) {
	bk := tx.Bucket(bucketDirectory)
	if bk == nil {
		return nil, bolt.ErrBucketNotFound
	}
	v := bk.Get(keyLocDir)
	if v == nil {
		return New(), nil
	}
	d := &Directory{}
	if err := cbor.Unmarshal(v, d); err != nil {
		return nil, fmt.Errorf("decoding directory: %w", err)
	}
	if d.Version > CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, d.Version)
	}
	if d.Entries == nil {
		d.Entries = make(map[string]*Entry)
	}
	return d, nil
}

func (b *BoltStore) writeDirectory(tx *bolt.Tx, d *Directory) error {
	bk := tx.Bucket(bucketDirectory)
	if bk == nil {
		return bolt.ErrBucketNotFound
	}
	d.Version = CurrentVersion
	data, err := b.enc.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding directory: %w", err)
	}
	return bk.Put(keyLocDir, data)
}

// HostRecord returns the record for host, or an empty record.
func (b *BoltStore) HostRecord(host string) (HostRecord, error) {
	var rec HostRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket(bucketHosts)
		if bk == nil {
			return bolt.ErrBucketNotFound
		}
		v := bk.Get([]byte(RegisteredDomain(host)))
		if v == nil {
			return nil
		}
		return cbor.Unmarshal(v, &rec)
	})
	return rec, err
}

// PutHostRecord stores rec under the registered domain of host. An empty
// record deletes the key.
func (b *BoltStore) PutHostRecord(host string, rec HostRecord) error {
	key := []byte(RegisteredDomain(host))
	err := b.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(bucketHosts)
		if bk == nil {
			return bolt.ErrBucketNotFound
		}
		if rec.IsEmpty() {
			return bk.Delete(key)
		}
		data, err := b.enc.Marshal(rec)
		if err != nil {
			return err
		}
		return bk.Put(key, data)
	})
	metrics.Default.CountDirectoryWrite("bolt", err)
	return err
}

// Hosts lists the stored host keys.
func (b *BoltStore) Hosts() ([]string, error) {
	var hosts []string
	err := b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket(bucketHosts)
		if bk == nil {
			return bolt.ErrBucketNotFound
		}
		return bk.ForEach(func(k, _ []byte) error {
			hosts = append(hosts, string(k))
			return nil
		})
	})
	return hosts, err
}
