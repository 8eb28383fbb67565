package png

import (
	"testing"
)

func loadTestPixels(b *testing.B) []byte {
	b.Helper()
	pix := make([]byte, 640*480*4)
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			i := (y*640 + x) * 4
			pix[i] = uint8(x % 256)
			pix[i+1] = uint8(y % 256)
			pix[i+2] = uint8((x + y) % 256)
			pix[i+3] = 255
		}
	}
	return pix
}

func benchmarkEncode(b *testing.B, opts *EncoderOptions) {
	pix := loadTestPixels(b)
	var n int
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		data, err := Encode(pix, 640, 480, RGBA8(), opts)
		if err != nil {
			b.Fatal(err)
		}
		n = len(data)
	}
	b.SetBytes(int64(len(pix)))
	b.ReportMetric(float64(n), "out-bytes")
}

func BenchmarkEncode_Default(b *testing.B) {
	benchmarkEncode(b, nil)
}

func BenchmarkEncode_Stored(b *testing.B) {
	opts := DefaultEncoderOptions()
	opts.BlockType = BlockStored
	benchmarkEncode(b, opts)
}

func BenchmarkEncode_Fixed(b *testing.B) {
	opts := DefaultEncoderOptions()
	opts.BlockType = BlockFixed
	benchmarkEncode(b, opts)
}

func BenchmarkEncode_Interlaced(b *testing.B) {
	opts := DefaultEncoderOptions()
	opts.Interlace = true
	benchmarkEncode(b, opts)
}

func BenchmarkEncode_Entropy(b *testing.B) {
	opts := DefaultEncoderOptions()
	opts.FilterStrategy = FilterEntropy
	benchmarkEncode(b, opts)
}

func BenchmarkDecode(b *testing.B) {
	data, err := Encode(loadTestPixels(b), 640, 480, RGBA8(), nil)
	if err != nil {
		b.Fatal(err)
	}
	out := RGBA8()
	opts := &DecoderOptions{OutputMode: &out}
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Decode(data, opts); err != nil {
			b.Fatal(err)
		}
	}
}
