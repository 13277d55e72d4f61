package stego

import (
	"bytes"

	"github.com/opd-ai/passlok/codec"
)

// Format selects the carrier: raw pixel channels or JPEG coefficients.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// EOF terminates every embedded payload.
var EOF = []byte{0, 0, 0, 255, 255, 255}

const (
	// primaryReserve is withheld from the primary message so a secondary
	// one always has room for its k header.
	primaryReserve = 222
	kCodeBits      = 4
	maxK           = 16
	maxMagnitude   = 1023
)

// capacityBits is the number of payload bits the region starting at start
// can hold.
func capacityBits(n, start int) int {
	if start == 0 {
		return n - primaryReserve
	}
	return n - start - kCodeBits
}

// checkCapacity fails when nbits payload bits do not fit the region of n
// coefficients starting at start.
func checkCapacity(n, start, nbits int) error {
	if n == 0 {
		return ErrNoCoefficients
	}
	if avail := capacityBits(n, start); nbits > avail {
		return &CapacityError{Available: max(avail, 0), Required: nbits, Secondary: start > 0}
	}
	return nil
}

// messageBits is the embedded size of data with its end marker.
func messageBits(data []byte) int {
	return (len(data) + len(EOF)) * 8
}

// parity is 1 for odd non-negative values and for even negative values.
func parity(v int32) int32 {
	if v >= 0 {
		return v & 1
	}
	return (1 - v) & 1
}

// chooseK picks the largest block parameter whose embedding rate still
// covers the payload, then shrinks it until the blocks fit in coeffs.
func chooseK(nbits, length, available int) int {
	rate := float64(nbits) / float64(length)
	k := 2
	for k <= 32 && float64(k)/float64(uint64(1)<<k-1) > rate {
		k++
	}
	k--
	if k > maxK {
		k = maxK
	}
	for k > 1 && ceilDiv(nbits, k)*(1<<k-1) > available {
		k--
	}
	return k
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

type embedder struct {
	format Format
	coeffs []int32
	rand   func() float64

	// JPEG shrinkage bookkeeping
	ones, minusOnes int
	y               float64
}

// Embed matrix-encodes bits (one bit per byte) into coeffs starting at
// start. The first four coefficients carry k-1; each following block of
// 2^k-1 coefficients carries k bits with at most one coefficient changed.
// It returns the index of the last coefficient the payload may occupy.
// rand drives the F5 direction choice for JPEG carriers.
func Embed(format Format, coeffs []int32, start int, bits []byte, rand func() float64) (int, error) {
	if err := checkCapacity(len(coeffs), start, len(bits)); err != nil {
		return 0, err
	}
	length := capacityBits(len(coeffs), start)

	k := chooseK(len(bits), length, len(coeffs)-start-kCodeBits)
	e := &embedder{format: format, coeffs: coeffs, rand: rand}
	if format == FormatJPEG {
		e.y = ratioOfThrees(coeffs[start+kCodeBits:])
	}

	for i := 0; i < kCodeBits; i++ {
		e.writeKBit(start+i, int32((k-1)>>(kCodeBits-1-i)&1))
	}

	n := 1<<k - 1
	blocks := ceilDiv(len(bits), k)
	for i := 0; i < blocks; i++ {
		var in int
		for j := 0; j < k; j++ {
			in <<= 1
			if b := i*k + j; b < len(bits) {
				in |= int(bits[b] & 1)
			}
		}
		base := start + kCodeBits + i*n
		out := in ^ blockHash(coeffs[base:base+n])
		if out != 0 {
			e.toggle(base + out - 1)
		}
	}

	return start + blocks*n + 3, nil
}

func blockHash(block []int32) int {
	hash := 0
	for j, v := range block {
		hash ^= int(parity(v)) * (j + 1)
	}
	return hash
}

// ratioOfThrees is count(|v|==3) / count(|v| in {2,3}), or one half when
// neither occurs.
func ratioOfThrees(coeffs []int32) float64 {
	var twos, threes int
	for _, v := range coeffs {
		switch v {
		case 2, -2:
			twos++
		case 3, -3:
			threes++
		}
	}
	if twos+threes == 0 {
		return 0.5
	}
	return float64(threes) / float64(twos+threes)
}

func (e *embedder) writeKBit(idx int, bit int32) {
	v := e.coeffs[idx]
	p := parity(v)
	if e.format != FormatJPEG {
		switch {
		case bit == 1 && p == 0:
			e.coeffs[idx]++
		case bit == 0 && p != 0:
			e.coeffs[idx]--
		}
		return
	}
	if v > 0 {
		switch {
		case bit == 1 && p == 0:
			e.coeffs[idx]--
		case bit == 0 && p != 0:
			if v == 1 {
				e.coeffs[idx] = -1
			} else {
				e.coeffs[idx]--
			}
		}
		return
	}
	switch {
	case bit == 0 && p != 0:
		e.coeffs[idx]++
	case bit == 1 && p == 0:
		if v == -1 {
			e.coeffs[idx] = 1
		} else {
			e.coeffs[idx]++
		}
	}
}

func (e *embedder) toggle(idx int) {
	v := e.coeffs[idx]
	if e.format != FormatJPEG {
		if v%2 != 0 {
			e.coeffs[idx] = v - 1
		} else {
			e.coeffs[idx] = v + 1
		}
		return
	}
	e.coeffs[idx] = e.shrink(v)
}

// shrink flips the parity of a non-zero JPEG coefficient without making it
// zero, keeping the counts of ones and minus ones roughly balanced and the
// ratio of twos to threes close to the cover's.
func (e *embedder) shrink(v int32) int32 {
	switch {
	case v == 1:
		e.ones--
		if e.minusOnes <= 0 {
			e.minusOnes++
			return -1
		}
		return 2
	case v == 2:
		if e.ones <= 0 {
			e.ones++
			return 1
		}
		return 3
	case v > 2:
		if e.rand() > e.y || v >= maxMagnitude {
			return v - 1
		}
		return v + 1
	case v == -1:
		e.minusOnes--
		if e.ones <= 0 {
			e.ones++
			return 1
		}
		return -2
	case v == -2:
		if e.minusOnes <= 0 {
			e.minusOnes++
			return -1
		}
		return -3
	case v < -2:
		if e.rand() > e.y || v <= -maxMagnitude {
			return v + 1
		}
		return v - 1
	}
	return v
}

// Extract reads the k header at start and decodes every whole block after
// it, returning the raw bits and k.
func Extract(coeffs []int32, start int) ([]byte, int, error) {
	if start < 0 || len(coeffs)-start < kCodeBits {
		return nil, 0, ErrNoHiddenData
	}
	k := 1
	for i := 0; i < kCodeBits; i++ {
		k += int(parity(coeffs[start+i])) << (kCodeBits - 1 - i)
	}
	n := 1<<k - 1
	blocks := (len(coeffs) - start - kCodeBits) / n
	if blocks <= 0 {
		return nil, 0, ErrNoHiddenData
	}

	bits := make([]byte, 0, blocks*k)
	for i := 0; i < blocks; i++ {
		base := start + kCodeBits + i*n
		hash := blockHash(coeffs[base : base+n])
		for j := k - 1; j >= 0; j-- {
			bits = append(bits, byte(hash>>j&1))
		}
	}
	return bits, k, nil
}

// embedMessage appends EOF to data, whitens it with g unless skipNoise and
// embeds it at start.
func embedMessage(format Format, coeffs []int32, start int, data []byte, g *ISAAC, skipNoise bool, rand func() float64) (int, error) {
	payload := codec.Concat(data, EOF)
	if !skipNoise {
		addNoise(payload, g)
	}
	return Embed(format, coeffs, start, codec.BytesToBits(payload), rand)
}

// extractMessage is the inverse of embedMessage. It also returns the index
// of the last coefficient the message occupied, which seeds a secondary
// message.
func extractMessage(coeffs []int32, start int, g *ISAAC, skipNoise bool) ([]byte, int, error) {
	bits, k, err := Extract(coeffs, start)
	if err != nil {
		return nil, 0, err
	}
	data := codec.PackBits(bits)
	if !skipNoise {
		addNoise(data, g)
	}
	end := bytes.Index(data, EOF)
	if end < 0 {
		return nil, 0, ErrNoHiddenData
	}
	n := 1<<k - 1
	used := ceilDiv((end+len(EOF))*8, k)
	return append([]byte(nil), data[:end]...), start + used*n + 3, nil
}
