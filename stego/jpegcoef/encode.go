package jpegcoef

import (
	"bufio"
	"fmt"
	"io"
)

// huffLUT maps a symbol to (code length << 24 | code).
type huffLUT [256]uint32

func newLUT(s huffSpec) *huffLUT {
	var lut huffLUT
	code, k := uint32(0), 0
	for i, n := range s.count {
		for j := byte(0); j < n; j++ {
			lut[s.value[k]] = uint32(i+1)<<24 | code
			code++
			k++
		}
		code <<= 1
	}
	return &lut
}

var stdLUT = [4]*huffLUT{
	newLUT(stdHuffman[0]), newLUT(stdHuffman[1]),
	newLUT(stdHuffman[2]), newLUT(stdHuffman[3]),
}

type bitWriter struct {
	w   *bufio.Writer
	acc uint32
	n   uint
	err error
}

func (bw *bitWriter) emit(bits uint32, n uint) {
	if bw.err != nil {
		return
	}
	bits &= 1<<n - 1
	bw.acc = bw.acc<<n | bits
	bw.n += n
	for bw.n >= 8 {
		b := byte(bw.acc >> (bw.n - 8))
		bw.n -= 8
		if bw.err = bw.w.WriteByte(b); bw.err != nil {
			return
		}
		if b == 0xff {
			bw.err = bw.w.WriteByte(0)
		}
	}
}

func (bw *bitWriter) huff(lut *huffLUT, sym byte) {
	e := lut[sym]
	bw.emit(e&0xffffff, uint(e>>24))
}

// flush pads the final byte with one bits.
func (bw *bitWriter) flush() {
	if bw.n > 0 {
		bw.emit(0x7f, 8-bw.n)
	}
}

func magnitude(v int32) (size uint, bits uint32) {
	a := v
	if a < 0 {
		a = -a
		v--
	}
	for a > 0 {
		size++
		a >>= 1
	}
	return size, uint32(v)
}

// Encode writes ci as a baseline JFIF stream with the standard Huffman
// tables. Every component must be sampled 1x1 and hold a full block grid.
func Encode(w io.Writer, ci *Image) error {
	if ci.Width <= 0 || ci.Height <= 0 || ci.Width > 0xffff || ci.Height > 0xffff {
		return ErrEmptyImage
	}
	if n := len(ci.Components); n != 1 && n != 3 {
		return fmt.Errorf("%w: %d components", ErrLayout, n)
	}
	bw, bh := (ci.Width+7)/8, (ci.Height+7)/8
	for _, c := range ci.Components {
		if c.H != 1 || c.V != 1 || len(c.Blocks) != bw*bh || c.Tq > 3 || ci.Quant[c.Tq] == nil {
			return ErrLayout
		}
	}

	out := bufio.NewWriter(w)
	out.Write([]byte{0xff, 0xd8})
	out.Write([]byte{0xff, 0xe0, 0, 16, 'J', 'F', 'I', 'F', 0, 1, 1, 0, 0, 1, 0, 1, 0, 0})
	writeDQT(out, ci)
	writeSOF(out, ci)
	writeDHT(out, len(ci.Components))
	writeSOS(out, ci)

	bits := &bitWriter{w: out}
	var pred [3]int32
	for i := 0; i < bw*bh; i++ {
		for c := range ci.Components {
			dc, ac := stdLUT[0], stdLUT[1]
			if c > 0 {
				dc, ac = stdLUT[2], stdLUT[3]
			}
			if err := encodeBlock(bits, &ci.Components[c].Blocks[i], &pred[c], dc, ac); err != nil {
				return err
			}
		}
	}
	bits.flush()
	if bits.err != nil {
		return bits.err
	}
	out.Write([]byte{0xff, 0xd9})
	return out.Flush()
}

func encodeBlock(bw *bitWriter, b *Block, pred *int32, dc, ac *huffLUT) error {
	diff := b[0] - *pred
	*pred = b[0]
	size, bits := magnitude(diff)
	if size > 11 {
		return fmt.Errorf("%w: DC difference %d", ErrCoefficientRange, diff)
	}
	bw.huff(dc, byte(size))
	bw.emit(bits, size)

	run := 0
	for zig := 1; zig < 64; zig++ {
		v := b[unzig[zig]]
		if v == 0 {
			run++
			continue
		}
		if v > MaxAC || v < -MaxAC {
			return fmt.Errorf("%w: AC %d", ErrCoefficientRange, v)
		}
		for run > 15 {
			bw.huff(ac, 0xf0)
			run -= 16
		}
		size, bits := magnitude(v)
		bw.huff(ac, byte(run<<4)|byte(size))
		bw.emit(bits, size)
		run = 0
	}
	if run > 0 {
		bw.huff(ac, 0x00)
	}
	return nil
}

func segment(w *bufio.Writer, marker byte, body []byte) {
	n := len(body) + 2
	w.Write([]byte{0xff, marker, byte(n >> 8), byte(n)})
	w.Write(body)
}

func writeDQT(w *bufio.Writer, ci *Image) {
	var body []byte
	for t, q := range ci.Quant {
		if q == nil {
			continue
		}
		wide := false
		for _, v := range q {
			if v > 255 {
				wide = true
			}
		}
		if wide {
			body = append(body, 0x10|byte(t))
			for _, z := range unzig {
				body = append(body, byte(q[z]>>8), byte(q[z]))
			}
		} else {
			body = append(body, byte(t))
			for _, z := range unzig {
				body = append(body, byte(q[z]))
			}
		}
	}
	segment(w, 0xdb, body)
}

func writeSOF(w *bufio.Writer, ci *Image) {
	body := []byte{8, byte(ci.Height >> 8), byte(ci.Height), byte(ci.Width >> 8), byte(ci.Width), byte(len(ci.Components))}
	for _, c := range ci.Components {
		body = append(body, c.ID, 0x11, c.Tq)
	}
	segment(w, 0xc0, body)
}

func writeDHT(w *bufio.Writer, ncomp int) {
	classes := []byte{0x00, 0x10, 0x01, 0x11}
	if ncomp == 1 {
		classes = classes[:2]
	}
	var body []byte
	for i, class := range classes {
		body = append(body, class)
		body = append(body, stdHuffman[i].count[:]...)
		body = append(body, stdHuffman[i].value...)
	}
	segment(w, 0xc4, body)
}

func writeSOS(w *bufio.Writer, ci *Image) {
	body := []byte{byte(len(ci.Components))}
	for i, c := range ci.Components {
		sel := byte(0x00)
		if i > 0 {
			sel = 0x11
		}
		body = append(body, c.ID, sel)
	}
	body = append(body, 0, 63, 0)
	segment(w, 0xda, body)
}
