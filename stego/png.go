package stego

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// toNRGBA copies img into a zero-origin NRGBA image holding exact
// non-premultiplied channel values.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()*4], src.Pix[off:off+b.Dx()*4])
		}
		return dst
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.SetNRGBA(x, y, color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA))
		}
	}
	return dst
}

// pngCoefficients lists the RGB channels of fully opaque pixels.
func pngCoefficients(img *image.NRGBA) []int32 {
	coeffs := make([]int32, 0, len(img.Pix)/4*3)
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i+3] == 255 {
			coeffs = append(coeffs, int32(img.Pix[i]), int32(img.Pix[i+1]), int32(img.Pix[i+2]))
		}
	}
	return coeffs
}

func restorePNGCoefficients(img *image.NRGBA, coeffs []int32) {
	k := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i+3] == 255 {
			img.Pix[i], img.Pix[i+1], img.Pix[i+2] = uint8(coeffs[k]), uint8(coeffs[k+1]), uint8(coeffs[k+2])
			k += 3
		}
	}
}

// HidePNG hides data in the least significant bits of the opaque pixels of
// img and returns the result encoded as PNG. Partially transparent pixels
// are copied unchanged.
func HidePNG(img image.Image, data []byte, opts Options) (out []byte, err error) {
	defer func() {
		opts.metrics().CountStego("hide", string(FormatPNG), err)
		logResult("HidePNG", FormatPNG, len(data), err)
	}()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	canvas := toNRGBA(img)
	coeffs := pngCoefficients(canvas)
	if err := hideCoefficients(FormatPNG, coeffs, len(canvas.Pix), data, &opts); err != nil {
		return nil, err
	}
	restorePNGCoefficients(canvas, coeffs)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, err
	}
	opts.metrics().StegoEmbeddedBits.Observe(bitsFor(data))
	return buf.Bytes(), nil
}

// RevealPNG recovers data hidden by HidePNG from a decoded PNG.
func RevealPNG(img image.Image, opts Options) (r *Revealed, err error) {
	defer func() {
		opts.metrics().CountStego("reveal", string(FormatPNG), err)
		logResult("RevealPNG", FormatPNG, 0, err)
	}()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	canvas := toNRGBA(img)
	return revealCoefficients(FormatPNG, pngCoefficients(canvas), len(canvas.Pix), &opts)
}
