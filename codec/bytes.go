package codec

// Concat joins byte slices into one newly allocated slice.
func Concat(parts ...[]byte) []byte {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]byte, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// BytesToBits expands data into one byte per bit, most significant bit first.
func BytesToBits(data []byte) []byte {
	bits := make([]byte, len(data)*8)
	for i, b := range data {
		for j := 0; j < 8; j++ {
			bits[i*8+j] = (b >> (7 - j)) & 1
		}
	}
	return bits
}

// PackBits is the inverse of BytesToBits. A trailing partial byte is padded
// with zero bits on the right.
func PackBits(bits []byte) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, bit := range bits {
		if bit&1 == 1 {
			out[i/8] |= 1 << (7 - i%8)
		}
	}
	return out
}
