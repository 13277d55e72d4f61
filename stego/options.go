package stego

import (
	"fmt"
	"math/rand/v2"

	"github.com/opd-ai/passlok/metrics"
)

// DefaultQuality is used for JPEG carriers when Options.Quality is zero.
const DefaultQuality = 85

// Options configures a hide or reveal run. Passwords are used as PRNG seeds
// verbatim; StretchPassword derives them from user input.
type Options struct {
	Password   string
	Iterations int

	// Secondary is hidden after the primary message under Password2. On
	// reveal, a non-empty Password2 asks for the secondary message.
	Secondary   []byte
	Password2   string
	Iterations2 int

	// SkipNoise embeds the payload without PRNG whitening, for payloads
	// that are already ciphertext.
	SkipNoise bool

	Quality int

	// Rand picks the F5 direction for JPEG carriers. Nil uses math/rand/v2.
	Rand    func() float64
	Metrics *metrics.Metrics
}

// Validate checks the options before any carrier is touched.
func (o *Options) Validate() error {
	if o.Password == "" {
		return ErrPasswordRequired
	}
	if o.Iterations < 0 || o.Iterations2 < 0 {
		return ErrNegativeIterations
	}
	if o.Secondary != nil && o.Password2 == "" {
		return fmt.Errorf("%w: secondary message", ErrPasswordRequired)
	}
	if o.Quality != 0 && (o.Quality < 1 || o.Quality > 90) {
		return ErrInvalidQuality
	}
	return nil
}

func (o *Options) quality() int {
	if o.Quality == 0 {
		return DefaultQuality
	}
	return o.Quality
}

func (o *Options) rand() func() float64 {
	if o.Rand == nil {
		return rand.Float64
	}
	return o.Rand
}

func (o *Options) metrics() *metrics.Metrics {
	if o.Metrics == nil {
		return metrics.Default
	}
	return o.Metrics
}

// Revealed holds the messages recovered from a carrier.
type Revealed struct {
	Primary []byte

	// Secondary is set when Password2 was given and the secondary message
	// decoded; SecondaryErr records why it did not.
	Secondary    []byte
	SecondaryErr error
}
