package session

import (
	"fmt"
	"strings"

	"github.com/opd-ai/passlok/crypto"
	"github.com/sirupsen/logrus"
	"github.com/tyler-smith/go-bip39"
)

// NewFolderKey draws a random folder key.
func NewFolderKey() ([32]byte, error) {
	raw, err := crypto.RandomBytes(32)
	if err != nil {
		return [32]byte{}, fmt.Errorf("generating folder key: %w", err)
	}
	defer crypto.ZeroBytes(raw)
	var key [32]byte
	copy(key[:], raw)
	return key, nil
}

// FolderKeyMnemonic renders a folder key as a 24-word BIP-39 phrase so it
// can be written down or read over the phone.
func FolderKeyMnemonic(key [32]byte) (string, error) {
	m, err := bip39.NewMnemonic(key[:])
	if err != nil {
		return "", fmt.Errorf("encoding folder key: %w", err)
	}
	return m, nil
}

// FolderKeyFromMnemonic restores a folder key from its phrase. Extra
// whitespace and letter case are ignored; the checksum must match.
func FolderKeyFromMnemonic(mnemonic string) ([32]byte, error) {
	mnemonic = strings.Join(strings.Fields(strings.ToLower(mnemonic)), " ")
	if mnemonic == "" || !bip39.IsMnemonicValid(mnemonic) {
		return [32]byte{}, ErrInvalidMnemonic
	}
	entropy, err := bip39.EntropyFromMnemonic(mnemonic)
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	defer crypto.ZeroBytes(entropy)
	if len(entropy) != 32 {
		logrus.WithFields(logrus.Fields{
			"function": "FolderKeyFromMnemonic",
			"bytes":    len(entropy),
		}).Warn("Mnemonic does not hold a folder key")
		return [32]byte{}, fmt.Errorf("%w: %d-byte entropy", ErrInvalidMnemonic, len(entropy))
	}

	var key [32]byte
	copy(key[:], entropy)
	return key, nil
}

// ActivateMnemonic restores a folder key and makes it the active one.
func (s *Session) ActivateMnemonic(mnemonic string) error {
	key, err := FolderKeyFromMnemonic(mnemonic)
	if err != nil {
		return err
	}
	s.SetFolderKey(key)
	crypto.ZeroBytes(key[:])
	return nil
}

// FolderMnemonic returns the phrase for the active folder key.
func (s *Session) FolderMnemonic() (string, error) {
	key, err := s.FolderKey()
	if err != nil {
		return "", err
	}
	defer crypto.ZeroBytes(key[:])
	return FolderKeyMnemonic(*key)
}
