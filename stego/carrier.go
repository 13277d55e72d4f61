package stego

import (
	"bytes"
	"errors"
	"image/png"
	"strconv"

	"github.com/opd-ai/passlok/crypto"
)

func seedFor(password string, n int, format Format) string {
	return password + strconv.Itoa(n) + string(format)
}

// hideCoefficients embeds data (and the optional secondary message) into
// coeffs in place. seedLen is the carrier size mixed into the primary seed.
func hideCoefficients(format Format, coeffs []int32, seedLen int, data []byte, opts *Options) error {
	if err := checkCapacity(len(coeffs), 0, messageBits(data)); err != nil {
		return err
	}
	g := SeedPRNG(seedFor(opts.Password, seedLen, format), opts.Iterations)
	perm := Shuffle(coeffs, 0, g)

	last, err := embedMessage(format, coeffs, 0, data, g, opts.SkipNoise, opts.rand())
	if err != nil {
		return err
	}

	if opts.Secondary != nil {
		if err := checkCapacity(len(coeffs), last+1, messageBits(opts.Secondary)); err != nil {
			return err
		}
		g2 := SeedPRNG(seedFor(opts.Password2, last, format), opts.Iterations2)
		perm2 := Shuffle(coeffs, last+1, g2)
		if _, err := embedMessage(format, coeffs, last+1, opts.Secondary, g2, opts.SkipNoise, opts.rand()); err != nil {
			return err
		}
		Unshuffle(coeffs, last+1, perm2)
	}

	Unshuffle(coeffs, 0, perm)
	return nil
}

// revealCoefficients reads back what hideCoefficients wrote. coeffs is
// left shuffled.
func revealCoefficients(format Format, coeffs []int32, seedLen int, opts *Options) (*Revealed, error) {
	g := SeedPRNG(seedFor(opts.Password, seedLen, format), opts.Iterations)
	Shuffle(coeffs, 0, g)

	data, last, err := extractMessage(coeffs, 0, g, opts.SkipNoise)
	if err != nil {
		return nil, err
	}
	out := &Revealed{Primary: data}

	if opts.Password2 != "" {
		g2 := SeedPRNG(seedFor(opts.Password2, last, format), opts.Iterations2)
		Shuffle(coeffs, last+1, g2)
		out.Secondary, _, out.SecondaryErr = extractMessage(coeffs, last+1, g2, opts.SkipNoise)
	}
	return out, nil
}

func logResult(function string, format Format, size int, err error) {
	log := crypto.PackageLogger("stego", function).
		With("format", format).
		With("size", size)
	var capErr *CapacityError
	switch {
	case errors.As(err, &capErr):
		log.With("available_bits", capErr.Available).
			With("required_bits", capErr.Required).
			Done("capacity", "exceeded").
			Warn("Carrier too small")
	case err != nil:
		log.Failed(err, "carrier").Debug("Stego operation failed")
	default:
		log.Done("carrier", "ok").Debug("Stego operation complete")
	}
}

// Reveal detects the carrier format of data and reveals from it.
func Reveal(data []byte, opts Options) (*Revealed, Format, error) {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, FormatPNG, err
		}
		r, err := RevealPNG(img, opts)
		return r, FormatPNG, err
	case bytes.HasPrefix(data, []byte{0xff, 0xd8}):
		r, err := RevealJPEG(data, opts)
		return r, FormatJPEG, err
	}
	return nil, "", ErrUnknownFormat
}

func bitsFor(data []byte) float64 {
	return float64(messageBits(data))
}
