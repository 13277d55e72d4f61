package jpegcoef

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smoothImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 255 / w), uint8(y * 255 / h), 128, 255})
		}
	}
	return img
}

func TestScaleQuant(t *testing.T) {
	q50 := ScaleQuant(0, 50)
	assert.Equal(t, baseQuant[0], q50)

	q100 := ScaleQuant(1, 100)
	for _, v := range q100 {
		assert.Equal(t, uint16(1), v)
	}

	q1 := ScaleQuant(0, 1)
	for _, v := range q1 {
		assert.LessOrEqual(t, v, uint16(255))
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ci, err := FromImage(smoothImage(37, 21), 85)
	require.NoError(t, err)
	assert.Equal(t, []int{15, 15, 15}, ci.BlockCount())

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, ci))

	got, err := Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 37, got.Width)
	assert.Equal(t, 21, got.Height)
	require.Len(t, got.Components, 3)
	for i := range ci.Components {
		assert.Equal(t, ci.Components[i].Blocks, got.Components[i].Blocks, "component %d", i)
		assert.Equal(t, ci.Components[i].Tq, got.Components[i].Tq)
	}
	assert.Equal(t, *ci.Quant[0], *got.Quant[0])
	assert.Equal(t, *ci.Quant[1], *got.Quant[1])
}

func TestEncodeReadableByStandardDecoder(t *testing.T) {
	src := smoothImage(48, 40)
	ci, err := FromImage(src, 90)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, ci))

	img, err := jpeg.Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, src.Bounds(), img.Bounds())

	var total, n float64
	for y := 0; y < 40; y++ {
		for x := 0; x < 48; x++ {
			r1, g1, b1, _ := src.At(x, y).RGBA()
			r2, g2, b2, _ := img.At(x, y).RGBA()
			for _, d := range []float64{
				float64(r1>>8) - float64(r2>>8),
				float64(g1>>8) - float64(g2>>8),
				float64(b1>>8) - float64(b2>>8),
			} {
				if d < 0 {
					d = -d
				}
				total += d
				n++
			}
		}
	}
	assert.Less(t, total/n, 6.0, "mean absolute channel error")
}

func TestDecodeSubsampled(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, smoothImage(32, 32), &jpeg.Options{Quality: 75}))

	ci, err := Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, ci.Components, 3)
	assert.Equal(t, 2, ci.Components[0].H)
	assert.Equal(t, []int{16, 4, 4}, ci.BlockCount())
}

func TestDecodeGray(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 20, 20))
	for i := range gray.Pix {
		gray.Pix[i] = uint8(i)
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, gray, nil))

	ci, err := Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []int{9}, ci.BlockCount())

	var out bytes.Buffer
	require.NoError(t, Encode(&out, ci))
	again, err := Decode(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, ci.Components[0].Blocks, again.Components[0].Blocks)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not a jpeg")))
	assert.ErrorIs(t, err, ErrFormat)

	_, err = Decode(bytes.NewReader([]byte{0xff, 0xd8, 0xff, 0xd9}))
	assert.ErrorIs(t, err, ErrFormat)

	progressive := []byte{0xff, 0xd8, 0xff, 0xc2, 0, 11, 8, 0, 8, 0, 8, 1, 1, 0x11, 0}
	_, err = Decode(bytes.NewReader(progressive))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestEncodeRejectsBadLayout(t *testing.T) {
	ci, err := FromImage(smoothImage(16, 16), 80)
	require.NoError(t, err)

	ci.Components[1].H = 2
	assert.ErrorIs(t, Encode(&bytes.Buffer{}, ci), ErrLayout)

	ci.Components[1].H = 1
	ci.Components[0].Blocks[0][5] = MaxAC + 1
	assert.ErrorIs(t, Encode(&bytes.Buffer{}, ci), ErrCoefficientRange)
}
