package crypto

import (
	"fmt"

	"github.com/opd-ai/passlok/metrics"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/scrypt"
)

// WiseHash stretches a password into a 32-byte key with scrypt (r=8, p=1).
// The cost exponent comes from KeyStrength, so weak passwords are stretched
// hard and strong ones barely at all. The result is deterministic for a
// given password and salt. An empty password is stretched at the top cost
// like any other weak one; callers that need a password check for it.
func WiseHash(password, salt string) ([32]byte, error) {
	return wiseHash(password, salt, KeyStrength(password))
}

func wiseHash(password, salt string, iterations int) ([32]byte, error) {
	tp := GetDefaultTimeProvider()
	start := tp.Now()

	dk, err := scrypt.Key([]byte(password), []byte(salt), 1<<iterations, 8, 1, 32)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "WiseHash",
			"iterations": iterations,
			"error":      err.Error(),
		}).Error("scrypt failed")
		return [32]byte{}, fmt.Errorf("stretching password: %w", err)
	}
	defer ZeroBytes(dk)

	elapsed := tp.Since(start)
	metrics.Default.ObserveKeyDerivation(iterations, elapsed)
	logrus.WithFields(logrus.Fields{
		"function":   "WiseHash",
		"iterations": iterations,
		"elapsed":    elapsed.String(),
	}).Debug("Password stretched")

	var out [32]byte
	copy(out[:], dk)
	return out, nil
}
