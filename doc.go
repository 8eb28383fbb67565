// Package png provides a pure Go encoder and decoder for the PNG image
// format, together with the zlib and DEFLATE codecs it is built on.
//
// The package supports:
//   - Every legal color type and bit depth (grey 1/2/4/8/16, RGB 8/16,
//     palette 1/2/4/8, grey+alpha 8/16, RGBA 8/16)
//   - Adam7 interlacing
//   - Conversion between any two color modes on decode and encode
//   - Automatic choice of the smallest lossless color mode on encode
//   - Stored, fixed and dynamic DEFLATE blocks with configurable LZ77 matching
//   - Ancillary chunks: bKGD, pHYs, tIME, tEXt, zTXt, iTXt, gAMA, cHRM, sRGB,
//     iCCP, sBIT, and preservation of unknown chunks
//
// Basic usage for decoding to 8-bit RGBA:
//
//	mode := png.RGBA8()
//	img, err := png.Decode(data, &png.DecoderOptions{OutputMode: &mode})
//
// Basic usage for encoding:
//
//	data, err := png.Encode(pix, width, height, png.RGBA8(), nil)
//
// The package also registers itself with the image package, so image.Decode
// reads PNG files through DecodeImage.
package png
