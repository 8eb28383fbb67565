package deflate

import (
	"github.com/deepteams/png/internal/bitio"
	"github.com/deepteams/png/internal/buffer"
	"github.com/deepteams/png/internal/huffman"
	"github.com/deepteams/png/internal/lz77"
	"github.com/deepteams/png/internal/oops"
)

// Stats counts the blocks written by one compression call.
type Stats struct {
	Stored  int
	Fixed   int
	Dynamic int
	// Tokens is the number of LZ77 tokens coded.
	Tokens int
}

// Compress deflates data into a complete DEFLATE stream.
func Compress(data []byte, opts Options) ([]byte, error) {
	out, _, err := CompressStats(data, opts)
	return out, err
}

// CompressStats is Compress that also reports which block kinds were used.
func CompressStats(data []byte, opts Options) ([]byte, Stats, error) {
	var stats Stats
	if opts.BlockType < BlockAuto || opts.BlockType > BlockDynamic {
		return nil, stats, oops.New(oops.CodeInvalidArgument, nil, "block type %d", int(opts.BlockType))
	}
	e := &encoder{opts: opts, stats: &stats, w: bitio.NewWriter(len(data)/2 + 16)}
	if opts.BlockType != BlockStored {
		m, err := lz77.NewMatcher(opts.LZ77)
		if err != nil {
			e.w.Release()
			return nil, stats, err
		}
		e.matcher = m
		e.tokens = buffer.NewWords(min(len(data), opts.blockSize()) / 2)
		defer e.tokens.Release()
	}

	bs := opts.blockSize()
	for start := 0; ; {
		end := min(start+bs, len(data))
		final := end == len(data)
		if err := e.writeBlock(data, start, end, final); err != nil {
			e.w.Release()
			return nil, stats, err
		}
		if final {
			break
		}
		start = end
	}
	return e.w.Finish(), stats, nil
}

type encoder struct {
	opts    Options
	w       *bitio.Writer
	matcher *lz77.Matcher
	tokens  *buffer.Words
	stats   *Stats
}

// clToken is one symbol of the code-length alphabet with its extra bits.
type clToken struct {
	sym   uint8
	extra uint8
}

var clExtraBits = [numCodeLengthSymbols]int{16: 2, 17: 3, 18: 7}

// blockPlan holds everything needed to size and write one compressed block.
type blockPlan struct {
	tokens    []uint32
	litFreq   [lz77.NumLitLenSymbols]uint32
	distFreq  [lz77.NumDistanceSymbols]uint32
	extraBits int

	fixedBits int

	dynamicBits int
	lit, dist   *huffman.Tree
	cl          *huffman.Tree
	clTokens    []clToken
	hlit, hdist int
	hclen       int
}

func (e *encoder) writeBlock(data []byte, start, end int, final bool) error {
	block := data[start:end]
	if e.opts.BlockType == BlockStored {
		e.writeStored(block, final)
		return nil
	}

	e.tokens.Reset()
	if err := e.matcher.Encode(data, start, end, e.tokens); err != nil {
		return err
	}
	p := newBlockPlan(e.tokens.Slice())
	e.stats.Tokens += len(p.tokens)

	kind := e.opts.BlockType
	if kind == BlockAuto || kind == BlockDynamic {
		if err := p.planDynamic(); err != nil {
			return err
		}
	}
	if kind == BlockAuto {
		kind = BlockDynamic
		best := p.dynamicBits
		if p.fixedBits < best {
			kind, best = BlockFixed, p.fixedBits
		}
		if storedBits(e.w.BitLen(), len(block)) < best {
			kind = BlockStored
		}
	}

	switch kind {
	case BlockStored:
		e.writeStored(block, final)
	case BlockFixed:
		e.writeHeader(final, btypeFixed)
		if err := e.writeTokens(p.tokens, huffman.FixedLitLen(), huffman.FixedDist()); err != nil {
			return err
		}
		e.stats.Fixed++
	default:
		e.writeHeader(final, btypeDynamic)
		if err := e.writeTrees(p); err != nil {
			return err
		}
		if err := e.writeTokens(p.tokens, p.lit, p.dist); err != nil {
			return err
		}
		e.stats.Dynamic++
	}
	return nil
}

func newBlockPlan(tokens []uint32) *blockPlan {
	p := &blockPlan{tokens: tokens}
	for _, w := range tokens {
		tok := lz77.Token(w)
		if !tok.IsMatch() {
			p.litFreq[tok.Literal()]++
			continue
		}
		sym, _, lbits := lz77.LengthSymbol(tok.Length())
		code, _, dbits := lz77.DistanceSymbol(tok.Distance())
		p.litFreq[sym]++
		p.distFreq[code]++
		p.extraBits += lbits + dbits
	}
	p.litFreq[lz77.EndOfBlock]++

	fixedLit := huffman.FixedLitLenLengths()
	p.fixedBits = 3 + p.extraBits
	for sym, f := range p.litFreq {
		p.fixedBits += int(f) * int(fixedLit[sym])
	}
	for _, f := range p.distFreq {
		p.fixedBits += int(f) * 5
	}
	return p
}

// planDynamic builds the block's own trees and the code-length code that
// transmits them, and sizes the result.
func (p *blockPlan) planDynamic() error {
	litLengths, err := huffman.LengthsFromFrequencies(p.litFreq[:], huffman.MaxBits)
	if err != nil {
		return err
	}
	distLengths, err := huffman.LengthsFromFrequencies(p.distFreq[:], huffman.MaxBits)
	if err != nil {
		return err
	}
	if countUsed(distLengths) == 0 {
		// No back-references: send two one-bit codes so every decoder sees a
		// well-formed distance tree.
		distLengths[0], distLengths[1] = 1, 1
	}
	if p.lit, err = huffman.FromLengths(litLengths, huffman.MaxBits); err != nil {
		return err
	}
	if p.dist, err = huffman.FromLengths(distLengths, huffman.MaxBits); err != nil {
		return err
	}

	p.hlit = trimmedLen(litLengths, 257)
	p.hdist = trimmedLen(distLengths, 1)
	all := make([]uint8, 0, p.hlit+p.hdist)
	all = append(all, litLengths[:p.hlit]...)
	all = append(all, distLengths[:p.hdist]...)
	p.clTokens = codeLengthTokens(all)

	var clFreq [numCodeLengthSymbols]uint32
	for _, t := range p.clTokens {
		clFreq[t.sym]++
	}
	// A lone code-length symbol would get a one-bit incomplete code, which
	// zlib rejects for this alphabet. Pad with unused symbols.
	for sym := 0; countFreq(clFreq[:]) < 2; sym++ {
		if clFreq[sym] == 0 {
			clFreq[sym] = 1
		}
	}
	clLengths, err := huffman.LengthsFromFrequencies(clFreq[:], huffman.MaxCodeLengthBits)
	if err != nil {
		return err
	}
	if p.cl, err = huffman.FromLengths(clLengths, huffman.MaxCodeLengthBits); err != nil {
		return err
	}
	p.hclen = numCodeLengthSymbols
	for p.hclen > 4 && clLengths[codeLengthOrder[p.hclen-1]] == 0 {
		p.hclen--
	}

	bits := 3 + 5 + 5 + 4 + 3*p.hclen + p.extraBits
	for _, t := range p.clTokens {
		bits += int(clLengths[t.sym]) + clExtraBits[t.sym]
	}
	for sym, f := range p.litFreq {
		bits += int(f) * int(litLengths[sym])
	}
	for code, f := range p.distFreq {
		bits += int(f) * int(distLengths[code])
	}
	p.dynamicBits = bits
	return nil
}

func countUsed(lengths []uint8) int {
	n := 0
	for _, l := range lengths {
		if l != 0 {
			n++
		}
	}
	return n
}

func countFreq(freqs []uint32) int {
	n := 0
	for _, f := range freqs {
		if f != 0 {
			n++
		}
	}
	return n
}

// trimmedLen drops trailing zero lengths but keeps at least minLen entries.
func trimmedLen(lengths []uint8, minLen int) int {
	n := len(lengths)
	for n > minLen && lengths[n-1] == 0 {
		n--
	}
	return n
}

// codeLengthTokens run-length codes a code-length sequence: 0..15 are
// literal lengths, 16 repeats the previous length 3..6 times, 17 and 18
// repeat zero 3..10 and 11..138 times.
func codeLengthTokens(lengths []uint8) []clToken {
	var out []clToken
	for i := 0; i < len(lengths); {
		v := lengths[i]
		k := i + 1
		for k < len(lengths) && lengths[k] == v {
			k++
		}
		run := k - i
		i = k
		if v == 0 {
			out = repeatZeros(out, run)
		} else {
			out = repeatValue(out, run, v)
		}
	}
	return out
}

func repeatZeros(out []clToken, run int) []clToken {
	for run > 0 {
		switch {
		case run < 3:
			for ; run > 0; run-- {
				out = append(out, clToken{sym: 0})
			}
		case run < 11:
			out = append(out, clToken{sym: 17, extra: uint8(run - 3)})
			run = 0
		default:
			n := min(run, 138)
			out = append(out, clToken{sym: 18, extra: uint8(n - 11)})
			run -= n
		}
	}
	return out
}

func repeatValue(out []clToken, run int, v uint8) []clToken {
	out = append(out, clToken{sym: v})
	run--
	for run > 0 {
		if run < 3 {
			for ; run > 0; run-- {
				out = append(out, clToken{sym: v})
			}
			break
		}
		n := min(run, 6)
		out = append(out, clToken{sym: 16, extra: uint8(n - 3)})
		run -= n
	}
	return out
}

// storedBits returns the size of block coded as stored blocks when the
// writer is at bit position pos.
func storedBits(pos, n int) int {
	p := pos
	for {
		k := min(n, MaxStoredLen)
		p += 3
		p = (p + 7) &^ 7
		p += 32 + 8*k
		n -= k
		if n == 0 {
			return p - pos
		}
	}
}

func (e *encoder) writeHeader(final bool, btype uint32) {
	var f uint32
	if final {
		f = 1
	}
	e.w.WriteBits(f, 1)
	e.w.WriteBits(btype, 2)
}

func (e *encoder) writeStored(block []byte, final bool) {
	for {
		n := min(len(block), MaxStoredLen)
		e.writeHeader(final && n == len(block), btypeStored)
		e.w.AlignToByte()
		e.w.WriteBits(uint32(n), 16)
		e.w.WriteBits(uint32(^n&0xffff), 16)
		e.w.WriteAlignedBytes(block[:n])
		e.stats.Stored++
		block = block[n:]
		if len(block) == 0 {
			return
		}
	}
}

func (e *encoder) writeTrees(p *blockPlan) error {
	e.w.WriteBits(uint32(p.hlit-257), 5)
	e.w.WriteBits(uint32(p.hdist-1), 5)
	e.w.WriteBits(uint32(p.hclen-4), 4)
	for i := 0; i < p.hclen; i++ {
		e.w.WriteBits(uint32(p.cl.Lengths[codeLengthOrder[i]]), 3)
	}
	for _, t := range p.clTokens {
		if err := p.cl.Encode(e.w, int(t.sym)); err != nil {
			return err
		}
		e.w.WriteBits(uint32(t.extra), clExtraBits[t.sym])
	}
	return nil
}

// writeTokens codes the block's tokens followed by end-of-block.
func (e *encoder) writeTokens(tokens []uint32, lit, dist *huffman.Tree) error {
	for _, w := range tokens {
		tok := lz77.Token(w)
		if !tok.IsMatch() {
			if err := lit.Encode(e.w, int(tok.Literal())); err != nil {
				return err
			}
			continue
		}
		sym, extra, nbits := lz77.LengthSymbol(tok.Length())
		if err := lit.Encode(e.w, sym); err != nil {
			return err
		}
		e.w.WriteBits(extra, nbits)
		code, extra, nbits := lz77.DistanceSymbol(tok.Distance())
		if err := dist.Encode(e.w, code); err != nil {
			return err
		}
		e.w.WriteBits(extra, nbits)
	}
	return lit.Encode(e.w, lz77.EndOfBlock)
}
