package messaging

import (
	"fmt"

	"github.com/opd-ai/passlok/directory"
	"github.com/opd-ai/passlok/interfaces"
	"github.com/sirupsen/logrus"
)

const senderNamePrompt = "New sender Lock detected. Enter a name to save it in the directory, or leave empty to skip:"

// ValidateMeLock compares the Lock derived from the master password with
// the one stored for host. With nothing stored it is saved silently; on a
// mismatch the user is asked whether to replace it. The result reports
// whether the stored Lock now matches.
func ValidateMeLock(hosts interfaces.HostStore, host, email, lock string, p interfaces.Prompter) (bool, error) {
	if hosts == nil || host == "" || email == "" || lock == "" {
		return true, nil
	}
	rec, err := hosts.HostRecord(host)
	if err != nil {
		return false, err
	}
	crypt := rec.EnsureCrypt()
	if crypt.Lock == lock {
		return true, nil
	}

	if crypt.Lock != "" {
		if p == nil {
			return false, nil
		}
		msg := fmt.Sprintf("The Lock generated from your password does not match the stored Lock for (Me) %s.\n\nUpdate the stored Lock to match your current password?", email)
		_, ok, err := p.Prompt(interfaces.PromptConfirm, msg)
		if err != nil {
			return false, err
		}
		if !ok {
			logrus.WithFields(logrus.Fields{
				"function": "ValidateMeLock",
				"host":     host,
			}).Warn("Stored Lock kept despite mismatch")
			return false, nil
		}
	}

	crypt.Lock = lock
	crypt.Email = email
	if err := hosts.PutHostRecord(host, rec); err != nil {
		return false, err
	}
	logrus.WithFields(logrus.Fields{
		"function": "ValidateMeLock",
		"host":     host,
	}).Info("Stored own Lock updated")
	return true, nil
}

// learnSender names the Lock prepended to a message. A Lock already in the
// directory just sets SenderName; an unknown one is offered to the user to
// save under a name.
func (dc *Decryptor) learnSender(pt *Plaintext) error {
	d, err := dc.Repo.Load()
	if err != nil {
		return err
	}
	if name, ok := d.FindByLock(pt.SenderLock); ok {
		pt.SenderName = name
		return nil
	}
	if dc.Prompter == nil {
		return nil
	}

	name, ok, err := dc.Prompter.Prompt(interfaces.PromptText, senderNamePrompt)
	if err != nil {
		return err
	}
	name = trimmed(name)
	if !ok || name == "" {
		return nil
	}
	if err := dc.Repo.Update(func(d *directory.Directory) error {
		return d.Put(name, pt.SenderLock)
	}); err != nil {
		return err
	}
	pt.SenderName = name

	logrus.WithFields(logrus.Fields{
		"function": "learnSender",
		"name":     name,
	}).Info("Sender Lock saved")
	return nil
}
