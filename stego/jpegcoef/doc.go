// Package jpegcoef reads and writes JPEG files at the level of quantized DCT
// coefficients.
//
// Decode accepts baseline and extended sequential Huffman files with any
// sampling factors and restart intervals. FromImage builds a 4:4:4 image
// from pixels with the libjpeg-scaled Annex K tables, and Encode writes
// 1x1-sampled images with the standard Huffman tables, so coefficients
// survive an Encode/Decode round trip unchanged.
package jpegcoef
