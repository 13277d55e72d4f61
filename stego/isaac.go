package stego

// ISAAC is Bob Jenkins' ISAAC generator seeded from a password string. The
// draw order matches the common JavaScript port: results are handed out from
// the top of each 256-word batch down.
type ISAAC struct {
	m, r          [256]uint32
	acc, brs, cnt uint32
	gnt           int
}

const golden = 0x9e3779b9

// NewISAAC returns a generator seeded with seed.
func NewISAAC(seed string) *ISAAC {
	g := &ISAAC{}
	g.Seed(seed)
	return g
}

// SeedPRNG seeds a generator and burns 2^iterations-1 batches when
// iterations is positive.
func SeedPRNG(seed string, iterations int) *ISAAC {
	g := NewISAAC(seed)
	if iterations > 0 {
		g.Generate(1<<iterations - 1)
	}
	return g
}

func (g *ISAAC) reset() {
	g.acc, g.brs, g.cnt, g.gnt = 0, 0, 0, 0
	for i := range g.m {
		g.m[i], g.r[i] = 0, 0
	}
}

// seedWords packs the UTF-8 bytes of s, followed by two zero bytes,
// little-endian into 32-bit words. A trailing partial word is dropped.
func seedWords(s string) []uint32 {
	b := append([]byte(s), 0, 0)
	words := make([]uint32, 0, len(b)/4)
	for i := 0; i+4 <= len(b); i += 4 {
		words = append(words, uint32(b[i])|uint32(b[i+1])<<8|uint32(b[i+2])<<16|uint32(b[i+3])<<24)
	}
	return words
}

// Seed reinitializes the generator from s.
func (g *ISAAC) Seed(s string) {
	g.reset()
	for i, w := range seedWords(s) {
		g.r[i&0xff] += w
	}

	var v [8]uint32
	for i := range v {
		v[i] = golden
	}
	for i := 0; i < 4; i++ {
		mix(&v)
	}
	for i := 0; i < 256; i += 8 {
		for j := 0; j < 8; j++ {
			v[j] += g.r[i+j]
		}
		mix(&v)
		copy(g.m[i:i+8], v[:])
	}
	for i := 0; i < 256; i += 8 {
		for j := 0; j < 8; j++ {
			v[j] += g.m[i+j]
		}
		mix(&v)
		copy(g.m[i:i+8], v[:])
	}

	g.Generate(1)
	g.gnt = 256
}

func mix(v *[8]uint32) {
	a, b, c, d, e, f, gg, h := v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7]
	a ^= b << 11
	d += a
	b += c
	b ^= c >> 2
	e += b
	c += d
	c ^= d << 8
	f += c
	d += e
	d ^= e >> 16
	gg += d
	e += f
	e ^= f << 10
	h += e
	f += gg
	f ^= gg >> 4
	a += f
	gg += h
	gg ^= h << 8
	b += gg
	h += a
	h ^= a >> 9
	c += h
	a += b
	v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7] = a, b, c, d, e, f, gg, h
}

// Generate refills the result batch n times.
func (g *ISAAC) Generate(n int) {
	for ; n > 0; n-- {
		g.cnt++
		g.brs += g.cnt
		for i := 0; i < 256; i++ {
			switch i & 3 {
			case 0:
				g.acc ^= g.acc << 13
			case 1:
				g.acc ^= g.acc >> 6
			case 2:
				g.acc ^= g.acc << 2
			case 3:
				g.acc ^= g.acc >> 16
			}
			g.acc += g.m[(i+128)&0xff]
			x := g.m[i]
			y := g.m[(x>>2)&0xff] + g.acc + x
			g.m[i] = y
			g.brs = g.m[(y>>10)&0xff] + x
			g.r[i] = g.brs
		}
	}
}

// Uint32 returns the next raw output word.
func (g *ISAAC) Uint32() uint32 {
	if g.gnt == 0 {
		g.Generate(1)
		g.gnt = 256
	}
	g.gnt--
	return g.r[g.gnt]
}

// Int32 returns the next output as a signed value.
func (g *ISAAC) Int32() int32 {
	return int32(g.Uint32())
}

// Float64 returns a value in [0, 1).
func (g *ISAAC) Float64() float64 {
	return 0.5 + float64(g.Int32())*2.3283064365386963e-10
}
