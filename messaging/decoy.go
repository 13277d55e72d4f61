package messaging

import (
	"bytes"
	"encoding/base64"
	"unicode/utf8"

	"github.com/opd-ai/passlok/codec"
	"github.com/opd-ai/passlok/crypto"
	"github.com/opd-ai/passlok/limits"
	"github.com/sirupsen/logrus"
)

// EncryptDecoy builds a padding block hiding text under key:
// nonce9 || secretbox(text space-padded to 75 bytes). Text longer than 75
// bytes is cut at the last full character that fits.
func EncryptDecoy(text, key string) ([]byte, error) {
	if key == "" {
		return nil, crypto.ErrEmptyPassword
	}

	plain := bytes.Repeat([]byte{' '}, limits.DecoyTextSize)
	raw := []byte(text)
	if len(raw) > limits.DecoyTextSize {
		raw = raw[:limits.DecoyTextSize]
		for len(raw) > 0 && !utf8.Valid(raw) {
			raw = raw[:len(raw)-1]
		}
	}
	copy(plain, raw)

	nonce, err := crypto.RandomBytes(limits.DecoyNonceSize)
	if err != nil {
		return nil, err
	}
	k, err := crypto.WiseHash(key, base64.StdEncoding.EncodeToString(nonce))
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroBytes(k[:])

	sealed, err := crypto.EncryptSymmetric(plain, crypto.MakeNonce24(nonce), k)
	if err != nil {
		return nil, err
	}
	return codec.Concat(nonce, sealed), nil
}

// DecryptDecoy opens a padding block produced by EncryptDecoy. Random
// padding and a wrong key both give ErrNoDecoy.
func DecryptDecoy(padding []byte, key string) (string, error) {
	if len(padding) != limits.PaddingSize {
		return "", ErrNoDecoy
	}
	if key == "" {
		return "", crypto.ErrEmptyPassword
	}

	nonce := padding[:limits.DecoyNonceSize]
	k, err := crypto.WiseHash(key, base64.StdEncoding.EncodeToString(nonce))
	if err != nil {
		return "", err
	}
	defer crypto.ZeroBytes(k[:])

	plain, err := crypto.DecryptSymmetric(padding[limits.DecoyNonceSize:], crypto.MakeNonce24(nonce), k)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "DecryptDecoy",
		}).Debug("Padding does not open with this key")
		return "", ErrNoDecoy
	}
	return string(bytes.TrimSpace(plain)), nil
}

func randomPadding() ([]byte, error) {
	return crypto.RandomBytes(limits.PaddingSize)
}
