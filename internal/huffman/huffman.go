// Package huffman builds canonical prefix codes for DEFLATE, either from an
// explicit code-length array or, length limited, from symbol frequencies,
// and decodes symbols through a root lookup table backed by a flat node
// arena.
package huffman

import (
	"github.com/deepteams/png/internal/bitio"
	"github.com/deepteams/png/internal/oops"
)

const (
	// MaxBits is the code length limit of the literal/length and distance
	// alphabets.
	MaxBits = 15
	// MaxCodeLengthBits is the code length limit of the code-length alphabet.
	MaxCodeLengthBits = 7
	// RootBits is the width of the first-level decode table.
	RootBits = 9
)

// Tree is a canonical Huffman code. Lengths and Codes are indexed by symbol;
// a zero length marks an unused symbol. Codes hold the canonical value with
// its first transmitted bit in the most significant position.
type Tree struct {
	Lengths []uint8
	Codes   []uint32
	MaxBits int

	rootBits int
	root     []rootEntry
	nodes    []node
}

// Arena child references: >= 0 is a node index, leafBase-sym encodes a leaf.
const (
	noChild  int32 = -1
	leafBase int32 = -2
)

type node struct {
	child [2]int32
}

// rootEntry kinds.
const (
	entryInvalid uint8 = iota
	entryLeaf
	entryNode
)

type rootEntry struct {
	kind   uint8
	length uint8 // code length for leaves
	value  int32 // symbol for leaves, arena index for nodes
}

func isLeaf(ref int32) bool    { return ref <= leafBase }
func leafSymbol(ref int32) int { return int(leafBase - ref) }
func leafRef(symbol int) int32 { return leafBase - int32(symbol) }

// FromLengths builds the canonical code for the given code lengths using the
// counting method: count codes per length, derive the first code of each
// length, then hand out consecutive codes in symbol order within a length.
//
// Over-subscribed length sets are rejected. Incomplete sets are accepted;
// bit patterns that reach no symbol fail to decode.
func FromLengths(lengths []uint8, maxBits int) (*Tree, error) {
	if maxBits < 1 || maxBits > MaxBits {
		return nil, oops.New(oops.CodeInvalidArgument, nil, "max code length %d", maxBits)
	}
	var count [MaxBits + 1]int
	for sym, l := range lengths {
		if int(l) > maxBits {
			return nil, oops.New(oops.CodeMalformedHuffman, nil, "symbol %d has code length %d > %d", sym, l, maxBits)
		}
		count[l]++
	}
	left := 1
	for l := 1; l <= maxBits; l++ {
		left <<= 1
		left -= count[l]
		if left < 0 {
			return nil, oops.New(oops.CodeMalformedHuffman, nil, "over-subscribed code lengths")
		}
	}

	var nextCode [MaxBits + 2]uint32
	code := uint32(0)
	count[0] = 0
	for l := 1; l <= maxBits; l++ {
		code = (code + uint32(count[l-1])) << 1
		nextCode[l] = code
	}

	t := &Tree{
		Lengths: append([]uint8(nil), lengths...),
		Codes:   make([]uint32, len(lengths)),
		MaxBits: maxBits,
	}
	for sym, l := range lengths {
		if l != 0 {
			t.Codes[sym] = nextCode[l]
			nextCode[l]++
		}
	}
	t.buildDecoder()
	return t, nil
}

// buildDecoder lays the codes out in the node arena and fills the root table
// by walking the arena once per root index.
func (t *Tree) buildDecoder() {
	t.nodes = append(t.nodes[:0], node{child: [2]int32{noChild, noChild}})
	maxLen := 0
	for sym, l := range t.Lengths {
		if l == 0 {
			continue
		}
		if int(l) > maxLen {
			maxLen = int(l)
		}
		cur := int32(0)
		for i := int(l) - 1; i > 0; i-- {
			bit := (t.Codes[sym] >> uint(i)) & 1
			next := t.nodes[cur].child[bit]
			if next == noChild {
				next = int32(len(t.nodes))
				t.nodes = append(t.nodes, node{child: [2]int32{noChild, noChild}})
				t.nodes[cur].child[bit] = next
			}
			cur = next
		}
		t.nodes[cur].child[t.Codes[sym]&1] = leafRef(sym)
	}

	t.rootBits = RootBits
	if maxLen < t.rootBits {
		t.rootBits = maxLen
	}
	if t.rootBits == 0 {
		t.rootBits = 1
	}
	t.root = make([]rootEntry, 1<<uint(t.rootBits))
	for idx := range t.root {
		cur := int32(0)
		for depth := 1; depth <= t.rootBits; depth++ {
			bit := (idx >> uint(depth-1)) & 1
			ref := t.nodes[cur].child[bit]
			if ref == noChild {
				break
			}
			if isLeaf(ref) {
				t.root[idx] = rootEntry{kind: entryLeaf, length: uint8(depth), value: int32(leafSymbol(ref))}
				break
			}
			cur = ref
			if depth == t.rootBits {
				t.root[idx] = rootEntry{kind: entryNode, value: cur}
			}
		}
	}
}

// NumSymbols returns the alphabet size.
func (t *Tree) NumSymbols() int { return len(t.Lengths) }

// Decode reads one symbol from r. Codes up to the root width are resolved
// with a single table lookup; longer codes continue one bit at a time
// through the arena.
func (t *Tree) Decode(r *bitio.Reader) (int, error) {
	bits, avail := r.Peek(t.rootBits)
	e := t.root[bits]
	switch e.kind {
	case entryLeaf:
		if int(e.length) > avail {
			return 0, oops.New(oops.CodeTruncated, nil, "Huffman code runs past end of input")
		}
		r.Skip(int(e.length))
		return int(e.value), nil
	case entryNode:
		if avail < t.rootBits {
			return 0, oops.New(oops.CodeTruncated, nil, "Huffman code runs past end of input")
		}
		r.Skip(t.rootBits)
		cur := e.value
		for {
			bit, err := r.ReadBit()
			if err != nil {
				return 0, err
			}
			ref := t.nodes[cur].child[bit]
			if ref == noChild {
				return 0, oops.New(oops.CodeMalformedHuffman, nil, "")
			}
			if isLeaf(ref) {
				return leafSymbol(ref), nil
			}
			cur = ref
		}
	}
	if avail < t.rootBits {
		return 0, oops.New(oops.CodeTruncated, nil, "Huffman code runs past end of input")
	}
	return 0, oops.New(oops.CodeMalformedHuffman, nil, "")
}

// Encode writes the code of symbol to w.
func (t *Tree) Encode(w *bitio.Writer, symbol int) error {
	if symbol < 0 || symbol >= len(t.Lengths) || t.Lengths[symbol] == 0 {
		return oops.New(oops.CodeInvalidArgument, nil, "symbol %d has no code", symbol)
	}
	w.WriteBitsReversed(t.Codes[symbol], int(t.Lengths[symbol]))
	return nil
}

// IsPrefixFree reports whether every used code has at most MaxBits bits and
// no used code is a prefix of another.
func (t *Tree) IsPrefixFree() bool {
	for a, la := range t.Lengths {
		if la == 0 {
			continue
		}
		if int(la) > t.MaxBits {
			return false
		}
		for b, lb := range t.Lengths {
			if a == b || lb == 0 || lb < la {
				continue
			}
			if t.Codes[b]>>uint(lb-la) == t.Codes[a] {
				return false
			}
		}
	}
	return true
}

// FromFrequencies builds a length-limited code for the given histogram.
func FromFrequencies(freqs []uint32, maxBits int) (*Tree, error) {
	lengths, err := LengthsFromFrequencies(freqs, maxBits)
	if err != nil {
		return nil, err
	}
	return FromLengths(lengths, maxBits)
}

// Fixed code lengths defined by DEFLATE.
const (
	NumFixedLitLen = 288
	NumFixedDist   = 32
)

// FixedLitLenLengths returns the fixed literal/length code lengths.
func FixedLitLenLengths() []uint8 {
	l := make([]uint8, NumFixedLitLen)
	for i := range l {
		switch {
		case i < 144:
			l[i] = 8
		case i < 256:
			l[i] = 9
		case i < 280:
			l[i] = 7
		default:
			l[i] = 8
		}
	}
	return l
}

// FixedDistLengths returns the fixed distance code lengths.
func FixedDistLengths() []uint8 {
	l := make([]uint8, NumFixedDist)
	for i := range l {
		l[i] = 5
	}
	return l
}

// FixedLitLen returns the fixed literal/length tree.
func FixedLitLen() *Tree {
	t, _ := FromLengths(FixedLitLenLengths(), MaxBits)
	return t
}

// FixedDist returns the fixed distance tree.
func FixedDist() *Tree {
	t, _ := FromLengths(FixedDistLengths(), MaxBits)
	return t
}
