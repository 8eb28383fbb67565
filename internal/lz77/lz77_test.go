package lz77

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/deepteams/png/internal/buffer"
	"github.com/deepteams/png/internal/oops"
)

// expand replays tokens into bytes.
func expand(t *testing.T, tokens []uint32) []byte {
	t.Helper()
	var out []byte
	for i, w := range tokens {
		tok := Token(w)
		if !tok.IsMatch() {
			out = append(out, tok.Literal())
			continue
		}
		l, d := tok.Length(), tok.Distance()
		if l < MinMatchLength || l > MaxMatchLength {
			t.Fatalf("token %d: length %d", i, l)
		}
		if d < 1 || d > len(out) {
			t.Fatalf("token %d: distance %d with %d bytes of history", i, d, len(out))
		}
		for k := 0; k < l; k++ {
			out = append(out, out[len(out)-d])
		}
	}
	return out
}

func encodeAll(t *testing.T, data []byte, opts Options, blockSize int) []uint32 {
	t.Helper()
	m, err := NewMatcher(opts)
	if err != nil {
		t.Fatal(err)
	}
	out := buffer.NewWords(0)
	for start := 0; start < len(data); start += blockSize {
		end := min(start+blockSize, len(data))
		before := out.Len()
		if err := m.Encode(data, start, end, out); err != nil {
			t.Fatal(err)
		}
		covered := 0
		for _, w := range out.Slice()[before:] {
			covered += Token(w).Length()
		}
		if covered != end-start {
			t.Fatalf("block [%d, %d) tokens cover %d bytes", start, end, covered)
		}
	}
	return out.Detach()
}

func testInputs() map[string][]byte {
	rng := rand.New(rand.NewSource(3))
	random := make([]byte, 20000)
	rng.Read(random)
	lowEntropy := make([]byte, 50000)
	for i := range lowEntropy {
		lowEntropy[i] = "abcab"[rng.Intn(5)]
	}
	return map[string][]byte{
		"empty":       {},
		"one":         {42},
		"two":         {1, 2},
		"text":        bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 300),
		"zeros":       make([]byte, 100000),
		"random":      random,
		"low-entropy": lowEntropy,
		"runs":        append(append(bytes.Repeat([]byte{7}, 1000), bytes.Repeat([]byte{8}, 3)...), bytes.Repeat([]byte{7}, 700)...),
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	greedy := DefaultOptions()
	greedy.Lazy = false
	small := DefaultOptions()
	small.WindowSize = 256
	small.SearchDepth = 4
	small.NiceMatch = 16
	configs := map[string]Options{"lazy": DefaultOptions(), "greedy": greedy, "small": small}

	for name, data := range testInputs() {
		for cname, opts := range configs {
			for _, bs := range []int{1 << 20, 1000} {
				tokens := encodeAll(t, data, opts, bs)
				if got := expand(t, tokens); !bytes.Equal(got, data) {
					t.Fatalf("%s/%s/block %d: expansion differs", name, cname, bs)
				}
				for _, w := range tokens {
					if tok := Token(w); tok.IsMatch() && tok.Distance() >= opts.WindowSize {
						t.Fatalf("%s/%s: distance %d beyond window %d", name, cname, tok.Distance(), opts.WindowSize)
					}
				}
			}
		}
	}
}

func TestLongRunCompressesToFewTokens(t *testing.T) {
	data := make([]byte, 1<<20)
	tokens := encodeAll(t, data, DefaultOptions(), len(data))
	// One literal followed by maximal-length copies.
	if max := 1 + len(data)/MaxMatchLength + 1; len(tokens) > max {
		t.Fatalf("%d tokens for a zero run, want <= %d", len(tokens), max)
	}
}

func TestLiteralsOnly(t *testing.T) {
	opts := DefaultOptions()
	opts.LiteralsOnly = true
	data := make([]byte, 5000)
	tokens := encodeAll(t, data, opts, 1000)
	if len(tokens) != len(data) {
		t.Fatalf("%d tokens for %d bytes", len(tokens), len(data))
	}
	for i, w := range tokens {
		if Token(w).IsMatch() {
			t.Fatalf("token %d is a match", i)
		}
	}
	if got := expand(t, tokens); !bytes.Equal(got, data) {
		t.Fatal("expansion differs")
	}
}

func TestClosestMatchWins(t *testing.T) {
	data := []byte("abcXabcYabcZ")
	tokens := encodeAll(t, data, Options{WindowSize: 256, MinMatch: 3, NiceMatch: 258, SearchDepth: 16}, len(data))
	var dists []int
	for _, w := range tokens {
		if tok := Token(w); tok.IsMatch() {
			dists = append(dists, tok.Distance())
		}
	}
	if len(dists) != 2 || dists[0] != 4 || dists[1] != 4 {
		t.Fatalf("match distances = %v, want [4 4]", dists)
	}
}

func TestMinMatchRespected(t *testing.T) {
	opts := DefaultOptions()
	opts.MinMatch = 8
	data := bytes.Repeat([]byte("abcdef-"), 50)
	for _, w := range encodeAll(t, data, opts, len(data)) {
		if tok := Token(w); tok.IsMatch() && tok.Length() < 8 {
			t.Fatalf("match length %d below minimum", tok.Length())
		}
	}
}

func TestOptionsValidate(t *testing.T) {
	bad := []Options{
		{WindowSize: 1000, MinMatch: 3, NiceMatch: 258, SearchDepth: 1},
		{WindowSize: 65536, MinMatch: 3, NiceMatch: 258, SearchDepth: 1},
		{WindowSize: 1024, MinMatch: 2, NiceMatch: 258, SearchDepth: 1},
		{WindowSize: 1024, MinMatch: 10, NiceMatch: 5, SearchDepth: 1},
		{WindowSize: 1024, MinMatch: 3, NiceMatch: 258, SearchDepth: 0},
	}
	for i, o := range bad {
		if _, err := NewMatcher(o); !oops.Is(err, oops.CodeInvalidArgument) {
			t.Errorf("case %d: err = %v", i, err)
		}
	}
	m, _ := NewMatcher(DefaultOptions())
	if err := m.Encode([]byte{1, 2}, 1, 3, buffer.NewWords(0)); !oops.Is(err, oops.CodeInvalidArgument) {
		t.Errorf("out of range block: err = %v", err)
	}
}

func TestTokenPacking(t *testing.T) {
	tok := MatchToken(258, 32768)
	if !tok.IsMatch() || tok.Length() != 258 || tok.Distance() != 32768 {
		t.Fatalf("MatchToken(258, 32768) = len %d dist %d", tok.Length(), tok.Distance())
	}
	lit := LiteralToken(0xff)
	if lit.IsMatch() || lit.Literal() != 0xff || lit.Length() != 1 {
		t.Fatal("literal token")
	}
}

func TestSymbolTables(t *testing.T) {
	tests := []struct {
		length, sym, nbits int
		extra              uint32
	}{
		{3, 257, 0, 0},
		{10, 264, 0, 0},
		{11, 265, 1, 0},
		{12, 265, 1, 1},
		{130, 280, 4, 15},
		{257, 284, 5, 30},
		{258, 285, 0, 0},
	}
	for _, tc := range tests {
		sym, extra, nbits := LengthSymbol(tc.length)
		if sym != tc.sym || extra != tc.extra || nbits != tc.nbits {
			t.Errorf("LengthSymbol(%d) = %d,%d,%d; want %d,%d,%d", tc.length, sym, extra, nbits, tc.sym, tc.extra, tc.nbits)
		}
	}
	for d := 1; d <= MaxWindowSize; d++ {
		code, extra, nbits := DistanceSymbol(d)
		if int(DistanceBase[code])+int(extra) != d || extra >= 1<<uint(nbits) && nbits > 0 || nbits == 0 && extra != 0 {
			t.Fatalf("DistanceSymbol(%d) = %d,%d,%d", d, code, extra, nbits)
		}
	}
	if code, _, _ := DistanceSymbol(32768); code != 29 {
		t.Fatalf("distance 32768 code %d", code)
	}
}
