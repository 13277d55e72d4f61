package jpegcoef

import (
	"fmt"
	"io"
)

type huffDecoder struct {
	mincode, maxcode [17]int32
	valptr           [17]int
	vals             []byte
}

func newHuffDecoder(count [16]byte, vals []byte) (*huffDecoder, error) {
	h := &huffDecoder{vals: vals}
	code, k := int32(0), 0
	for l := 1; l <= 16; l++ {
		n := int(count[l-1])
		if n == 0 {
			h.maxcode[l] = -1
		} else {
			h.valptr[l] = k
			h.mincode[l] = code
			code += int32(n)
			h.maxcode[l] = code - 1
			k += n
		}
		if code > 1<<l {
			return nil, fmt.Errorf("%w: bad huffman table", ErrFormat)
		}
		code <<= 1
	}
	if k > len(vals) {
		return nil, fmt.Errorf("%w: short huffman table", ErrFormat)
	}
	return h, nil
}

type bitReader struct {
	data   []byte
	pos    int
	acc    uint32
	n      uint
	marker bool
}

func (br *bitReader) fill() {
	for br.n <= 24 {
		var b byte
		if !br.marker && br.pos < len(br.data) {
			b = br.data[br.pos]
			if b == 0xff {
				if br.pos+1 < len(br.data) && br.data[br.pos+1] == 0 {
					br.pos += 2
				} else {
					br.marker = true
					b = 0
				}
			} else {
				br.pos++
			}
		}
		br.acc |= uint32(b) << (24 - br.n)
		br.n += 8
	}
}

func (br *bitReader) bits(n uint) int32 {
	if n == 0 {
		return 0
	}
	if br.n < n {
		br.fill()
	}
	v := br.acc >> (32 - n)
	br.acc <<= n
	br.n -= n
	return int32(v)
}

func (br *bitReader) decode(h *huffDecoder) (byte, error) {
	var code int32
	for l := 1; l <= 16; l++ {
		code = code<<1 | br.bits(1)
		if code <= h.maxcode[l] {
			return h.vals[h.valptr[l]+int(code-h.mincode[l])], nil
		}
	}
	return 0, fmt.Errorf("%w: bad huffman code", ErrFormat)
}

func (br *bitReader) receive(s byte) int32 {
	if s == 0 {
		return 0
	}
	v := br.bits(uint(s))
	if v < 1<<(s-1) {
		v += -1<<s + 1
	}
	return v
}

// restart drops buffered bits and consumes the next RSTn marker.
func (br *bitReader) restart() error {
	br.acc, br.n, br.marker = 0, 0, false
	for br.pos+1 < len(br.data) {
		if br.data[br.pos] == 0xff && br.data[br.pos+1] >= 0xd0 && br.data[br.pos+1] <= 0xd7 {
			br.pos += 2
			return nil
		}
		br.pos++
	}
	return fmt.Errorf("%w: missing restart marker", ErrFormat)
}

type decoder struct {
	data       []byte
	pos        int
	img        *Image
	frame      bool
	scanned    bool
	ri         int
	dc, ac     [4]*huffDecoder
	hmax, vmax int
}

// Decode parses a baseline or extended sequential Huffman JPEG and returns
// its quantized coefficients without performing the inverse DCT.
func Decode(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 || data[0] != 0xff || data[1] != 0xd8 {
		return nil, fmt.Errorf("%w: missing SOI", ErrFormat)
	}
	d := &decoder{data: data, pos: 2, img: &Image{}}
	for {
		marker, err := d.nextMarker()
		if err != nil {
			return nil, err
		}
		if marker == 0xd9 {
			break
		}
		if marker >= 0xd0 && marker <= 0xd7 || marker <= 0x01 {
			continue
		}
		body, err := d.segment()
		if err != nil {
			return nil, err
		}
		switch marker {
		case 0xc0, 0xc1:
			err = d.parseSOF(body)
		case 0xc2, 0xc3, 0xc5, 0xc6, 0xc7, 0xc9, 0xca, 0xcb, 0xcd, 0xce, 0xcf:
			err = fmt.Errorf("%w: SOF marker %#x", ErrUnsupported, marker)
		case 0xc4:
			err = d.parseDHT(body)
		case 0xdb:
			err = d.parseDQT(body)
		case 0xdd:
			if len(body) < 2 {
				err = fmt.Errorf("%w: short DRI", ErrFormat)
			} else {
				d.ri = int(body[0])<<8 | int(body[1])
			}
		case 0xda:
			err = d.parseScan(body)
		}
		if err != nil {
			return nil, err
		}
	}
	if !d.frame || !d.scanned {
		return nil, fmt.Errorf("%w: no image data", ErrFormat)
	}
	return d.img, nil
}

func (d *decoder) nextMarker() (byte, error) {
	for d.pos < len(d.data) && d.data[d.pos] != 0xff {
		d.pos++
	}
	for d.pos < len(d.data) && d.data[d.pos] == 0xff {
		d.pos++
	}
	if d.pos >= len(d.data) {
		return 0, fmt.Errorf("%w: unexpected end of data", ErrFormat)
	}
	m := d.data[d.pos]
	d.pos++
	return m, nil
}

func (d *decoder) segment() ([]byte, error) {
	if d.pos+2 > len(d.data) {
		return nil, fmt.Errorf("%w: truncated segment", ErrFormat)
	}
	n := int(d.data[d.pos])<<8 | int(d.data[d.pos+1])
	if n < 2 || d.pos+n > len(d.data) {
		return nil, fmt.Errorf("%w: bad segment length", ErrFormat)
	}
	body := d.data[d.pos+2 : d.pos+n]
	d.pos += n
	return body, nil
}

func (d *decoder) parseSOF(b []byte) error {
	if d.frame {
		return fmt.Errorf("%w: multiple frames", ErrFormat)
	}
	if len(b) < 6 || b[0] != 8 {
		return fmt.Errorf("%w: only 8-bit precision", ErrUnsupported)
	}
	h := int(b[1])<<8 | int(b[2])
	w := int(b[3])<<8 | int(b[4])
	nc := int(b[5])
	if w == 0 || h == 0 || nc == 0 || nc > 4 || len(b) < 6+3*nc {
		return fmt.Errorf("%w: bad frame header", ErrFormat)
	}
	d.img.Width, d.img.Height = w, h
	d.hmax, d.vmax = 1, 1
	for i := 0; i < nc; i++ {
		c := Component{ID: b[6+3*i], H: int(b[7+3*i] >> 4), V: int(b[7+3*i] & 15), Tq: b[8+3*i]}
		if c.H < 1 || c.H > 4 || c.V < 1 || c.V > 4 || c.Tq > 3 {
			return fmt.Errorf("%w: bad component", ErrFormat)
		}
		d.hmax, d.vmax = max(d.hmax, c.H), max(d.vmax, c.V)
		d.img.Components = append(d.img.Components, c)
	}
	mx, my := (w+8*d.hmax-1)/(8*d.hmax), (h+8*d.vmax-1)/(8*d.vmax)
	for i := range d.img.Components {
		c := &d.img.Components[i]
		c.BlocksPerLine, c.BlocksPerColumn = mx*c.H, my*c.V
		c.Blocks = make([]Block, c.BlocksPerLine*c.BlocksPerColumn)
	}
	d.frame = true
	return nil
}

func (d *decoder) parseDHT(b []byte) error {
	for len(b) > 0 {
		if len(b) < 17 {
			return fmt.Errorf("%w: short DHT", ErrFormat)
		}
		class, id := b[0]>>4, b[0]&15
		if class > 1 || id > 3 {
			return fmt.Errorf("%w: bad DHT selector", ErrFormat)
		}
		var count [16]byte
		copy(count[:], b[1:17])
		total := 0
		for _, n := range count {
			total += int(n)
		}
		if total > 256 || len(b) < 17+total {
			return fmt.Errorf("%w: short DHT", ErrFormat)
		}
		h, err := newHuffDecoder(count, append([]byte(nil), b[17:17+total]...))
		if err != nil {
			return err
		}
		if class == 0 {
			d.dc[id] = h
		} else {
			d.ac[id] = h
		}
		b = b[17+total:]
	}
	return nil
}

func (d *decoder) parseDQT(b []byte) error {
	for len(b) > 0 {
		pq, tq := b[0]>>4, b[0]&15
		if pq > 1 || tq > 3 {
			return fmt.Errorf("%w: bad DQT", ErrFormat)
		}
		size := 64 * int(pq+1)
		if len(b) < 1+size {
			return fmt.Errorf("%w: short DQT", ErrFormat)
		}
		q := new([64]uint16)
		for zig := 0; zig < 64; zig++ {
			if pq == 0 {
				q[unzig[zig]] = uint16(b[1+zig])
			} else {
				q[unzig[zig]] = uint16(b[1+2*zig])<<8 | uint16(b[2+2*zig])
			}
		}
		d.img.Quant[tq] = q
		b = b[1+size:]
	}
	return nil
}

type scanComp struct {
	c      *Component
	dc, ac *huffDecoder
	pred   int32
}

func (d *decoder) parseScan(b []byte) error {
	if !d.frame {
		return fmt.Errorf("%w: scan before frame", ErrFormat)
	}
	if len(b) < 1 {
		return fmt.Errorf("%w: short SOS", ErrFormat)
	}
	ns := int(b[0])
	if ns < 1 || ns > 4 || len(b) < 1+2*ns+3 {
		return fmt.Errorf("%w: bad SOS", ErrFormat)
	}
	comps := make([]*scanComp, 0, ns)
	for i := 0; i < ns; i++ {
		id, sel := b[1+2*i], b[2+2*i]
		var c *Component
		for j := range d.img.Components {
			if d.img.Components[j].ID == id {
				c = &d.img.Components[j]
			}
		}
		td, ta := sel>>4, sel&15
		if c == nil || td > 3 || ta > 3 || d.dc[td] == nil || d.ac[ta] == nil {
			return fmt.Errorf("%w: bad scan component", ErrFormat)
		}
		comps = append(comps, &scanComp{c: c, dc: d.dc[td], ac: d.ac[ta]})
	}
	if ss, se := b[1+2*ns], b[2+2*ns]; ss != 0 || se != 63 {
		return fmt.Errorf("%w: spectral selection", ErrUnsupported)
	}

	br := &bitReader{data: d.data, pos: d.pos}
	var err error
	if ns == 1 {
		err = d.scanSingle(br, comps[0])
	} else {
		err = d.scanInterleaved(br, comps)
	}
	if err != nil {
		return err
	}
	d.pos = br.pos
	d.scanned = true
	return nil
}

func (d *decoder) scanSingle(br *bitReader, sc *scanComp) error {
	c := sc.c
	cw := (d.img.Width*c.H + d.hmax - 1) / d.hmax
	ch := (d.img.Height*c.V + d.vmax - 1) / d.vmax
	bw, bh := (cw+7)/8, (ch+7)/8
	for i := 0; i < bw*bh; i++ {
		if d.ri > 0 && i > 0 && i%d.ri == 0 {
			if err := br.restart(); err != nil {
				return err
			}
			sc.pred = 0
		}
		row, col := i/bw, i%bw
		if err := decodeBlock(br, sc, &c.Blocks[row*c.BlocksPerLine+col]); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) scanInterleaved(br *bitReader, comps []*scanComp) error {
	mx := (d.img.Width + 8*d.hmax - 1) / (8 * d.hmax)
	my := (d.img.Height + 8*d.vmax - 1) / (8 * d.vmax)
	for m := 0; m < mx*my; m++ {
		if d.ri > 0 && m > 0 && m%d.ri == 0 {
			if err := br.restart(); err != nil {
				return err
			}
			for _, sc := range comps {
				sc.pred = 0
			}
		}
		mrow, mcol := m/mx, m%mx
		for _, sc := range comps {
			c := sc.c
			for v := 0; v < c.V; v++ {
				for h := 0; h < c.H; h++ {
					row, col := mrow*c.V+v, mcol*c.H+h
					if err := decodeBlock(br, sc, &c.Blocks[row*c.BlocksPerLine+col]); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func decodeBlock(br *bitReader, sc *scanComp, b *Block) error {
	s, err := br.decode(sc.dc)
	if err != nil {
		return err
	}
	if s > 11 {
		return fmt.Errorf("%w: DC size %d", ErrFormat, s)
	}
	sc.pred += br.receive(s)
	b[0] = sc.pred

	for k := 1; k < 64; {
		rs, err := br.decode(sc.ac)
		if err != nil {
			return err
		}
		r, s := int(rs>>4), rs&15
		if s == 0 {
			if r != 15 {
				break
			}
			k += 16
			continue
		}
		k += r
		if k > 63 {
			return fmt.Errorf("%w: AC index overflow", ErrFormat)
		}
		b[unzig[k]] = br.receive(s)
		k++
	}
	return nil
}
