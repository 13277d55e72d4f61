// Package stego hides byte payloads in images.
//
// PNG carriers use the RGB channels of fully opaque pixels. JPEG carriers
// are re-encoded as 4:4:4 baseline JPEGs (see package jpegcoef) and use the
// non-zero quantized DCT coefficients, which are changed in the F5 manner
// so none ever becomes zero.
//
// The carrier values are shuffled by an ISAAC generator seeded with the
// password and the carrier size. The payload, followed by a six-byte end
// marker, is whitened with the same generator and matrix encoded: a 4-value
// header stores k, and each block of 2^k-1 values carries k bits while
// changing at most one of them. The primary message keeps 222 values in
// reserve so a secondary message, seeded with its own password and the
// primary's last index, can follow it.
//
//	pwd, _ := stego.StretchPassword("correct horse battery staple", false)
//	out, err := stego.HidePNG(cover, payload, stego.Options{Password: pwd, Iterations: 1})
//	...
//	img, _ := png.Decode(bytes.NewReader(out))
//	got, err := stego.RevealPNG(img, stego.Options{Password: pwd, Iterations: 1})
package stego
