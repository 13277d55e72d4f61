package jpegcoef

import (
	"errors"
	"image"
	"math"
)

var (
	ErrEmptyImage       = errors.New("jpegcoef: empty image")
	ErrUnsupported      = errors.New("jpegcoef: unsupported JPEG process")
	ErrFormat           = errors.New("jpegcoef: invalid JPEG data")
	ErrCoefficientRange = errors.New("jpegcoef: coefficient out of range")
	ErrLayout           = errors.New("jpegcoef: only 1x1 sampled images can be encoded")
)

// MaxAC is the largest AC magnitude baseline Huffman coding can express.
const MaxAC = 1023

// Block holds 64 quantized DCT coefficients in natural (row-major) order.
type Block [64]int32

// Component is one color plane as a grid of blocks, padded to whole MCUs.
type Component struct {
	ID              uint8
	H, V            int
	Tq              uint8
	BlocksPerLine   int
	BlocksPerColumn int
	Blocks          []Block
}

// Image is a JPEG held as quantized coefficients.
type Image struct {
	Width, Height int
	Components    []Component
	Quant         [4]*[64]uint16
}

// BlockCount returns the number of blocks in each component.
func (ci *Image) BlockCount() []int {
	out := make([]int, len(ci.Components))
	for i, c := range ci.Components {
		out[i] = len(c.Blocks)
	}
	return out
}

var cosTable = func() (t [8][8]float64) {
	for x := 0; x < 8; x++ {
		for u := 0; u < 8; u++ {
			t[x][u] = math.Cos(float64(2*x+1) * float64(u) * math.Pi / 16)
		}
	}
	return
}()

// fdct transforms level-shifted samples in natural order.
func fdct(in *[64]float64) (out [64]float64) {
	var tmp [64]float64
	for y := 0; y < 8; y++ {
		for u := 0; u < 8; u++ {
			var s float64
			for x := 0; x < 8; x++ {
				s += in[y*8+x] * cosTable[x][u]
			}
			tmp[y*8+u] = s
		}
	}
	for v := 0; v < 8; v++ {
		for u := 0; u < 8; u++ {
			var s float64
			for y := 0; y < 8; y++ {
				s += tmp[y*8+u] * cosTable[y][v]
			}
			cu, cv := 1.0, 1.0
			if u == 0 {
				cu = math.Sqrt2 / 2
			}
			if v == 0 {
				cv = math.Sqrt2 / 2
			}
			out[v*8+u] = s * cu * cv / 4
		}
	}
	return out
}

func quantize(coef *[64]float64, q *[64]uint16) (b Block) {
	for i := range coef {
		v := int32(math.Round(coef[i] / float64(q[i])))
		if i > 0 {
			if v > MaxAC {
				v = MaxAC
			} else if v < -MaxAC {
				v = -MaxAC
			}
		}
		b[i] = v
	}
	return b
}

// FromImage converts img to 4:4:4 YCbCr and quantizes it with the Annex K
// tables scaled to quality. Colors are read through img's RGBA model, so
// callers flatten transparency first.
func FromImage(img image.Image, quality int) (*Image, error) {
	r := img.Bounds()
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return nil, ErrEmptyImage
	}
	bw, bh := (w+7)/8, (h+7)/8

	luma := ScaleQuant(0, quality)
	chroma := ScaleQuant(1, quality)
	ci := &Image{Width: w, Height: h}
	ci.Quant[0], ci.Quant[1] = &luma, &chroma
	for i := 0; i < 3; i++ {
		tq := uint8(0)
		if i > 0 {
			tq = 1
		}
		ci.Components = append(ci.Components, Component{
			ID: uint8(i + 1), H: 1, V: 1, Tq: tq,
			BlocksPerLine: bw, BlocksPerColumn: bh,
			Blocks: make([]Block, bw*bh),
		})
	}

	var planes [3][64]float64
	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			for y := 0; y < 8; y++ {
				py := min(by*8+y, h-1)
				for x := 0; x < 8; x++ {
					px := min(bx*8+x, w-1)
					cr, cg, cb, _ := img.At(r.Min.X+px, r.Min.Y+py).RGBA()
					rf, gf, bf := float64(cr>>8), float64(cg>>8), float64(cb>>8)
					planes[0][y*8+x] = 0.299*rf + 0.587*gf + 0.114*bf - 128
					planes[1][y*8+x] = -0.168736*rf - 0.331264*gf + 0.5*bf
					planes[2][y*8+x] = 0.5*rf - 0.418688*gf - 0.081312*bf
				}
			}
			for c := range planes {
				coef := fdct(&planes[c])
				ci.Components[c].Blocks[by*bw+bx] = quantize(&coef, ci.Quant[ci.Components[c].Tq])
			}
		}
	}
	return ci, nil
}
