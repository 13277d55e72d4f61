package stego

import (
	"bytes"
	"fmt"
	"image"

	"github.com/opd-ai/passlok/stego/jpegcoef"
)

// flattenTransparency turns fully transparent pixels white and makes every
// other pixel opaque.
func flattenTransparency(img image.Image) *image.NRGBA {
	canvas := toNRGBA(img)
	for i := 0; i < len(canvas.Pix); i += 4 {
		if canvas.Pix[i+3] == 0 {
			canvas.Pix[i], canvas.Pix[i+1], canvas.Pix[i+2] = 255, 255, 255
		}
		canvas.Pix[i+3] = 255
	}
	return canvas
}

// jpegCoefficients lists the non-zero coefficients of all three planes,
// plane by plane, block by block.
func jpegCoefficients(ci *jpegcoef.Image) ([]int32, error) {
	if len(ci.Components) != 3 {
		return nil, fmt.Errorf("%w: %d components", ErrUnknownFormat, len(ci.Components))
	}
	n := len(ci.Components[0].Blocks)
	for _, c := range ci.Components[1:] {
		if len(c.Blocks) != n {
			return nil, ErrSubsampled
		}
	}
	var coeffs []int32
	for _, c := range ci.Components {
		for _, b := range c.Blocks {
			for _, v := range b {
				if v != 0 {
					coeffs = append(coeffs, v)
				}
			}
		}
	}
	return coeffs, nil
}

func restoreJPEGCoefficients(ci *jpegcoef.Image, coeffs []int32) {
	k := 0
	for c := range ci.Components {
		blocks := ci.Components[c].Blocks
		for i := range blocks {
			for j, v := range blocks[i] {
				if v != 0 {
					blocks[i][j] = coeffs[k]
					k++
				}
			}
		}
	}
}

// HideJPEG re-encodes img as a 4:4:4 JPEG and hides data in its non-zero
// quantized coefficients.
func HideJPEG(img image.Image, data []byte, opts Options) (out []byte, err error) {
	defer func() {
		opts.metrics().CountStego("hide", string(FormatJPEG), err)
		logResult("HideJPEG", FormatJPEG, len(data), err)
	}()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	ci, err := jpegcoef.FromImage(flattenTransparency(img), opts.quality())
	if err != nil {
		return nil, err
	}
	coeffs, err := jpegCoefficients(ci)
	if err != nil {
		return nil, err
	}
	if err := hideCoefficients(FormatJPEG, coeffs, len(coeffs), data, &opts); err != nil {
		return nil, err
	}
	restoreJPEGCoefficients(ci, coeffs)

	var buf bytes.Buffer
	if err := jpegcoef.Encode(&buf, ci); err != nil {
		return nil, err
	}
	opts.metrics().StegoEmbeddedBits.Observe(bitsFor(data))
	return buf.Bytes(), nil
}

// RevealJPEG recovers data hidden by HideJPEG. Chroma-subsampled images
// cannot carry a message and report ErrNoHiddenData.
func RevealJPEG(data []byte, opts Options) (r *Revealed, err error) {
	defer func() {
		opts.metrics().CountStego("reveal", string(FormatJPEG), err)
		logResult("RevealJPEG", FormatJPEG, 0, err)
	}()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	ci, err := jpegcoef.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	coeffs, err := jpegCoefficients(ci)
	if err != nil {
		return nil, fmt.Errorf("%w (%w)", ErrNoHiddenData, err)
	}
	return revealCoefficients(FormatJPEG, coeffs, len(coeffs), &opts)
}
