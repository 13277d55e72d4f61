package codec

import (
	"errors"
	"unicode/utf16"
)

// ErrLZCorrupt indicates a byte stream that is not a valid LZ-String payload.
var ErrLZCorrupt = errors.New("corrupt LZ-String data")

// LZCompress compresses s with the LZ-String algorithm and serializes the
// 16-bit output units big-endian, matching LZString.compressToUint8Array.
func LZCompress(s string) []byte {
	units := lzCompress(utf16.Encode([]rune(s)))
	out := make([]byte, len(units)*2)
	for i, u := range units {
		out[i*2] = byte(u >> 8)
		out[i*2+1] = byte(u)
	}
	return out
}

// LZDecompress reverses LZCompress. An empty result is reported as an
// error so callers can fall back to other interpretations of the bytes.
func LZDecompress(data []byte) (string, error) {
	if len(data) == 0 || len(data)%2 != 0 {
		return "", ErrLZCorrupt
	}
	units := make([]uint16, len(data)/2)
	for i := range units {
		units[i] = uint16(data[i*2])<<8 | uint16(data[i*2+1])
	}
	out, ok := lzDecompress(units)
	if !ok || len(out) == 0 {
		return "", ErrLZCorrupt
	}
	return string(utf16.Decode(out)), nil
}

type lzWriter struct {
	val      uint32
	position int
	data     []uint16
}

func (w *lzWriter) bit(b uint32) {
	w.val = w.val<<1 | b
	if w.position == 15 {
		w.position = 0
		w.data = append(w.data, uint16(w.val))
		w.val = 0
	} else {
		w.position++
	}
}

// bits writes value least significant bit first.
func (w *lzWriter) bits(n int, value int) {
	for i := 0; i < n; i++ {
		w.bit(uint32(value & 1))
		value >>= 1
	}
}

func (w *lzWriter) flush() []uint16 {
	for {
		w.val <<= 1
		if w.position == 15 {
			w.data = append(w.data, uint16(w.val))
			return w.data
		}
		w.position++
	}
}

func unitKey(u uint16) string { return string([]byte{byte(u >> 8), byte(u)}) }

func lzCompress(in []uint16) []uint16 {
	var (
		dict      = make(map[string]int)
		toCreate  = make(map[string]bool)
		w         string
		enlargeIn = 2
		dictSize  = 3
		numBits   = 2
		out       lzWriter
	)

	enlarge := func() {
		enlargeIn--
		if enlargeIn == 0 {
			enlargeIn = 1 << numBits
			numBits++
		}
	}

	emit := func() {
		if toCreate[w] {
			first := uint16(w[0])<<8 | uint16(w[1])
			if first < 256 {
				out.bits(numBits, 0)
				out.bits(8, int(first))
			} else {
				out.bits(numBits, 1)
				out.bits(16, int(first))
			}
			enlarge()
			delete(toCreate, w)
		} else {
			out.bits(numBits, dict[w])
		}
		enlarge()
	}

	for _, c := range in {
		ck := unitKey(c)
		if _, ok := dict[ck]; !ok {
			dict[ck] = dictSize
			dictSize++
			toCreate[ck] = true
		}
		wc := w + ck
		if _, ok := dict[wc]; ok {
			w = wc
			continue
		}
		emit()
		dict[wc] = dictSize
		dictSize++
		w = ck
	}
	if w != "" {
		emit()
	}

	out.bits(numBits, 2)
	return out.flush()
}

type lzReader struct {
	data     []uint16
	val      uint16
	position uint16
	index    int
}

func (r *lzReader) next() uint16 {
	if r.index >= len(r.data) {
		r.index++
		return 0
	}
	v := r.data[r.index]
	r.index++
	return v
}

func (r *lzReader) bits(n int) int {
	out := 0
	for power := 1; power != 1<<n; power <<= 1 {
		set := r.val&r.position != 0
		r.position >>= 1
		if r.position == 0 {
			r.position = 0x8000
			r.val = r.next()
		}
		if set {
			out |= power
		}
	}
	return out
}

func lzDecompress(data []uint16) ([]uint16, bool) {
	r := &lzReader{data: data, val: data[0], position: 0x8000, index: 1}

	var c []uint16
	switch r.bits(2) {
	case 0:
		c = []uint16{uint16(r.bits(8))}
	case 1:
		c = []uint16{uint16(r.bits(16))}
	case 2:
		return nil, true
	default:
		return nil, false
	}

	dictionary := [][]uint16{nil, nil, nil, c}
	enlargeIn, numBits := 4, 3
	w := c
	result := append([]uint16(nil), c...)

	for {
		if r.index > len(data) {
			return nil, false
		}
		code := r.bits(numBits)
		switch code {
		case 0, 1:
			size := 8
			if code == 1 {
				size = 16
			}
			dictionary = append(dictionary, []uint16{uint16(r.bits(size))})
			code = len(dictionary) - 1
			enlargeIn--
		case 2:
			return result, true
		}
		if enlargeIn == 0 {
			enlargeIn = 1 << numBits
			numBits++
		}

		var entry []uint16
		switch {
		case code < len(dictionary):
			entry = dictionary[code]
		case code == len(dictionary):
			entry = append(append([]uint16(nil), w...), w[0])
		default:
			return nil, false
		}
		result = append(result, entry...)

		dictionary = append(dictionary, append(append([]uint16(nil), w...), entry[0]))
		enlargeIn--
		w = entry

		if enlargeIn == 0 {
			enlargeIn = 1 << numBits
			numBits++
		}
	}
}
