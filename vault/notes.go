package vault

import (
	"github.com/sirupsen/logrus"
)

// Notes is what ReadNotes found for a site.
type Notes struct {
	Text string
	Once string
	// OnceDeleted is set when a read-once note was shown and removed.
	OnceDeleted bool
}

// String joins the regular and the read-once note the way they are shown.
func (n Notes) String() string {
	switch {
	case n.Once == "" && !n.OnceDeleted:
		return n.Text
	case n.Text == "":
		return n.Once
	}
	return n.Text + OnceSeparator + n.Once
}

// Empty reports whether nothing was stored.
func (n Notes) Empty() bool {
	return n.Text == "" && !n.OnceDeleted
}

// SaveNote seals text as the note for host. With once set it replaces the
// read-once note, which is deleted the first time it is read.
func (v *Vault) SaveNote(masterPwd, host, text string, once bool) error {
	host, rec, err := v.load(host)
	if err != nil {
		return err
	}
	blob, err := v.seal(text, masterPwd, host)
	if err != nil {
		return err
	}
	if once {
		rec.EnsureCrypt().Once = blob
	} else {
		rec.EnsureCrypt().Notes = blob
	}
	return v.Hosts.PutHostRecord(host, rec)
}

// ClearNotes deletes the regular note for host. The read-once note is left
// alone.
func (v *Vault) ClearNotes(host string) error {
	host, rec, err := v.load(host)
	if err != nil {
		return err
	}
	if rec.Crypt == nil || rec.Crypt.Notes == "" {
		return nil
	}
	rec.Crypt.Notes = ""
	return v.Hosts.PutHostRecord(host, rec)
}

// ReadNotes opens the notes for host. A read-once note is removed from the
// record once both notes have opened; if either fails nothing changes.
func (v *Vault) ReadNotes(masterPwd, host string) (Notes, error) {
	host, rec, err := v.load(host)
	if err != nil {
		return Notes{}, err
	}
	var n Notes
	if rec.Crypt == nil {
		return n, nil
	}
	if rec.Crypt.Notes != "" {
		if n.Text, err = v.open(rec.Crypt.Notes, masterPwd, host); err != nil {
			return Notes{}, err
		}
	}
	if rec.Crypt.Once == "" {
		return n, nil
	}

	if n.Once, err = v.open(rec.Crypt.Once, masterPwd, host); err != nil {
		return Notes{}, err
	}
	rec.Crypt.Once = ""
	if err := v.Hosts.PutHostRecord(host, rec); err != nil {
		return Notes{}, err
	}
	n.OnceDeleted = true

	logrus.WithFields(logrus.Fields{
		"function": "Vault.ReadNotes",
		"host":     host,
	}).Info("Read-once note displayed and deleted")
	return n, nil
}
