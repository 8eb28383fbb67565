package lz77

import "sort"

// Token is one LZ77 output element: a literal byte or a (length, distance)
// back-reference. Bit 31 flags a match; a match keeps its length in bits
// 16..24 and distance-1 in bits 0..15.
type Token uint32

const (
	matchFlag  Token = 1 << 31
	lengthMask       = 0x1ff
	distMask         = 0xffff
)

// LiteralToken creates a literal token.
func LiteralToken(b byte) Token { return Token(b) }

// MatchToken creates a back-reference token. length must be in
// [MinMatchLength, MaxMatchLength] and distance in [1, MaxWindowSize].
func MatchToken(length, distance int) Token {
	return matchFlag | Token(length&lengthMask)<<16 | Token((distance-1)&distMask)
}

// IsMatch reports whether t is a back-reference.
func (t Token) IsMatch() bool { return t&matchFlag != 0 }

// Literal returns the literal byte. Only valid for literal tokens.
func (t Token) Literal() byte { return byte(t) }

// Length returns the copy length, 1 for literals.
func (t Token) Length() int {
	if !t.IsMatch() {
		return 1
	}
	return int(t>>16) & lengthMask
}

// Distance returns the copy distance. Only valid for match tokens.
func (t Token) Distance() int { return int(t&distMask) + 1 }

// DEFLATE length and distance alphabets. Symbol 257+i covers lengths
// starting at LengthBase[i] with LengthExtra[i] extra bits; distance code i
// covers distances starting at DistanceBase[i].
var (
	LengthBase = [29]uint16{
		3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31,
		35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258,
	}
	LengthExtra = [29]uint8{
		0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
		3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0,
	}
	DistanceBase = [30]uint16{
		1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193,
		257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577,
	}
	DistanceExtra = [30]uint8{
		0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6,
		7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13,
	}
)

const (
	// FirstLengthSymbol is the literal/length symbol of LengthBase[0].
	FirstLengthSymbol = 257
	// EndOfBlock terminates every compressed block.
	EndOfBlock = 256
	// NumLitLenSymbols is the size of the literal/length alphabet in use.
	NumLitLenSymbols = 286
	// NumDistanceSymbols is the size of the distance alphabet in use.
	NumDistanceSymbols = 30
)

// LengthSymbol maps a match length to its literal/length symbol and the
// extra bits that follow it.
func LengthSymbol(length int) (symbol int, extra uint32, nbits int) {
	if length == MaxMatchLength {
		return FirstLengthSymbol + 28, 0, 0
	}
	i := sort.Search(len(LengthBase), func(i int) bool { return int(LengthBase[i]) > length }) - 1
	return FirstLengthSymbol + i, uint32(length - int(LengthBase[i])), int(LengthExtra[i])
}

// DistanceSymbol maps a match distance to its distance code and extra bits.
func DistanceSymbol(distance int) (code int, extra uint32, nbits int) {
	i := sort.Search(len(DistanceBase), func(i int) bool { return int(DistanceBase[i]) > distance }) - 1
	return i, uint32(distance - int(DistanceBase[i])), int(DistanceExtra[i])
}
