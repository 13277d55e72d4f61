package crypto

import (
	"crypto/sha256"
	"fmt"

	"github.com/sirupsen/logrus"
)

// OpLog is a logrus entry preset with the package and function of an
// operation. Key material only ever reaches it through Secret.
type OpLog struct {
	*logrus.Entry
}

// NewLogger starts an OpLog for a function in this package.
func NewLogger(function string) OpLog {
	return PackageLogger("crypto", function)
}

// PackageLogger starts an OpLog for function in pkg.
func PackageLogger(pkg, function string) OpLog {
	return OpLog{logrus.WithFields(logrus.Fields{
		"package":  pkg,
		"function": function,
	})}
}

// With adds one field.
func (l OpLog) With(key string, value interface{}) OpLog {
	return OpLog{l.Entry.WithField(key, value)}
}

// Failed records err and the step that produced it.
func (l OpLog) Failed(err error, step string) OpLog {
	return OpLog{l.Entry.WithFields(logrus.Fields{
		"error":     err.Error(),
		"operation": step,
	})}
}

// Done marks step as finished with status.
func (l OpLog) Done(step, status string) OpLog {
	return OpLog{l.Entry.WithFields(logrus.Fields{
		"operation": step,
		"status":    status,
	})}
}

// Secret adds a fingerprint of data in place of the data.
func (l OpLog) Secret(name string, data []byte) OpLog {
	return OpLog{l.Entry.WithFields(SecureFieldHash(data, name))}
}

// SecureFieldHash describes secret data for logs without revealing it: the
// size and the first 8 hex digits of its SHA-256.
func SecureFieldHash(data []byte, name string) logrus.Fields {
	fingerprint := "nil"
	if len(data) > 0 {
		sum := sha256.Sum256(data)
		fingerprint = fmt.Sprintf("%x", sum[:4])
	}
	return logrus.Fields{
		name + "_fingerprint": fingerprint,
		name + "_size":        len(data),
	}
}
