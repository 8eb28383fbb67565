// Package lz77 finds DEFLATE back-references in a sliding window.
//
// Positions are indexed by a multiplicative hash of their next three bytes.
// Each hash bucket heads a chain of earlier positions threaded through a
// window-sized prev table. A second window-sized table records where the
// run of identical bytes starting at each position ends, which lets the
// chain walk skip comparing long same-byte prefixes and keeps repeated-byte
// input linear.
package lz77

import (
	"math"

	"github.com/deepteams/png/internal/buffer"
	"github.com/deepteams/png/internal/oops"
)

const (
	// MaxWindowSize is the largest DEFLATE back-reference distance.
	MaxWindowSize = 32768
	// MinMatchLength is the shortest DEFLATE match.
	MinMatchLength = 3
	// MaxMatchLength is the longest DEFLATE match.
	MaxMatchLength = 258

	hashBits       = 16
	hashSize       = 1 << hashBits
	hashMultiplier = uint32(0x1e35a7bd)
)

// Options controls the matcher.
type Options struct {
	// WindowSize is the history size, a power of two in [256, 32768].
	// Matches reach back at most WindowSize-1 bytes.
	WindowSize int
	// MinMatch is the shortest match worth emitting, in [3, 258].
	MinMatch int
	// NiceMatch stops the chain walk once a match this long is found.
	NiceMatch int
	// SearchDepth bounds the number of chain candidates examined per
	// position.
	SearchDepth int
	// Lazy defers a match by one byte when the next position has a longer one.
	Lazy bool
	// LiteralsOnly turns matching off: every byte becomes a literal token,
	// leaving only Huffman coding to compress.
	LiteralsOnly bool
}

// DefaultOptions returns the default matcher configuration.
func DefaultOptions() Options {
	return Options{
		WindowSize:  MaxWindowSize,
		MinMatch:    MinMatchLength,
		NiceMatch:   MaxMatchLength,
		SearchDepth: 128,
		Lazy:        true,
	}
}

// Validate checks the option ranges.
func (o Options) Validate() error {
	if o.WindowSize < 256 || o.WindowSize > MaxWindowSize || o.WindowSize&(o.WindowSize-1) != 0 {
		return oops.New(oops.CodeInvalidArgument, nil, "window size %d is not a power of two in [256, %d]", o.WindowSize, MaxWindowSize)
	}
	if o.MinMatch < MinMatchLength || o.MinMatch > MaxMatchLength {
		return oops.New(oops.CodeInvalidArgument, nil, "minimum match %d out of range", o.MinMatch)
	}
	if o.NiceMatch < o.MinMatch || o.NiceMatch > MaxMatchLength {
		return oops.New(oops.CodeInvalidArgument, nil, "nice match %d out of range", o.NiceMatch)
	}
	if o.SearchDepth < 1 {
		return oops.New(oops.CodeInvalidArgument, nil, "search depth %d", o.SearchDepth)
	}
	return nil
}

// Matcher holds the hash chains of one compression call. Successive Encode
// calls over the same buffer keep earlier positions reachable, so later
// blocks can reference data from earlier ones.
type Matcher struct {
	opts Options
	mask int

	head   []int32 // hash -> most recent position, -1 when empty
	prev   []int32 // position&mask -> previous position with the same hash
	runEnd []int32 // position&mask -> end of the identical-byte run at position

	lastRunPos int
	lastRunEnd int32
}

// NewMatcher creates a matcher for one compression call.
func NewMatcher(opts Options) (*Matcher, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.LiteralsOnly {
		return &Matcher{opts: opts}, nil
	}
	m := &Matcher{
		opts:       opts,
		mask:       opts.WindowSize - 1,
		head:       make([]int32, hashSize),
		prev:       make([]int32, opts.WindowSize),
		runEnd:     make([]int32, opts.WindowSize),
		lastRunPos: -1,
	}
	for i := range m.head {
		m.head[i] = -1
	}
	return m, nil
}

func hash3(b []byte) uint32 {
	key := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
	return (key * hashMultiplier) >> (32 - hashBits)
}

// insert threads pos into its hash chain and records its run end. Positions
// with fewer than three bytes left are not hashed.
func (m *Matcher) insert(data []byte, pos int) {
	if pos+MinMatchLength > len(data) {
		return
	}
	h := hash3(data[pos:])
	m.prev[pos&m.mask] = m.head[h]
	m.head[h] = int32(pos)

	if m.lastRunPos == pos-1 && pos > 0 && data[pos] == data[pos-1] {
		m.lastRunPos = pos
	} else {
		e := pos + 1
		for e < len(data) && data[e] == data[pos] {
			e++
		}
		m.lastRunPos, m.lastRunEnd = pos, int32(e)
	}
	m.runEnd[pos&m.mask] = m.lastRunEnd
}

// findMatch returns the longest match for pos not exceeding limit bytes.
// Candidates are visited from the most recent, and only a strictly longer
// match replaces the current best, so the closest of equal-length matches
// wins.
func (m *Matcher) findMatch(data []byte, pos, limit int) (bestLen, bestDist int) {
	if limit > MaxMatchLength {
		limit = MaxMatchLength
	}
	if limit < m.opts.MinMatch || pos+MinMatchLength > len(data) {
		return 0, 0
	}
	runP := int(m.runEnd[pos&m.mask]) - pos
	cur := data[pos:]
	c := int(m.prev[pos&m.mask])
	for depth := 0; c >= 0 && depth < m.opts.SearchDepth; depth++ {
		dist := pos - c
		// A candidate a full window back shares its table slots with pos.
		if dist <= 0 || dist >= m.opts.WindowSize {
			break
		}
		cand := data[c:]
		if bestLen < limit && cand[bestLen] != cur[bestLen] {
			c = m.next(c)
			continue
		}
		l := 0
		if cand[0] == cur[0] {
			runC := int(m.runEnd[c&m.mask]) - c
			if runC != runP {
				// One run ends before the other, so the match is exactly
				// the shorter run.
				l = min(runC, runP, limit)
			} else {
				l = min(runC, limit)
				for l < limit && cand[l] == cur[l] {
					l++
				}
			}
		}
		if l > bestLen {
			bestLen, bestDist = l, dist
			if l >= m.opts.NiceMatch || l >= limit {
				break
			}
		}
		c = m.next(c)
	}
	if bestLen < m.opts.MinMatch {
		return 0, 0
	}
	return bestLen, bestDist
}

// next follows the chain from c, stopping on entries that do not point
// strictly backwards.
func (m *Matcher) next(c int) int {
	n := int(m.prev[c&m.mask])
	if n >= c {
		return -1
	}
	return n
}

// Encode appends the tokens for data[start:end] to out. data must be the same
// buffer across calls on one Matcher, and blocks must be encoded in order.
// Matches never extend past end.
func (m *Matcher) Encode(data []byte, start, end int, out *buffer.Words) error {
	if start < 0 || end < start || end > len(data) {
		return oops.New(oops.CodeInvalidArgument, nil, "block [%d, %d) outside %d bytes", start, end, len(data))
	}
	if len(data) > math.MaxInt32 {
		return oops.New(oops.CodeTooLarge, nil, "%d bytes exceed the matcher limit", len(data))
	}
	switch {
	case m.opts.LiteralsOnly:
		for _, b := range data[start:end] {
			out.Push(uint32(LiteralToken(b)))
		}
	case m.opts.Lazy:
		m.encodeLazy(data, start, end, out)
	default:
		m.encodeGreedy(data, start, end, out)
	}
	return nil
}

func (m *Matcher) encodeGreedy(data []byte, start, end int, out *buffer.Words) {
	for p := start; p < end; {
		m.insert(data, p)
		l, d := m.findMatch(data, p, end-p)
		if l == 0 {
			out.Push(uint32(LiteralToken(data[p])))
			p++
			continue
		}
		out.Push(uint32(MatchToken(l, d)))
		for q := p + 1; q < p+l; q++ {
			m.insert(data, q)
		}
		p += l
	}
}

// encodeLazy emits a match found at p only if p+1 does not have a longer one;
// otherwise data[p] goes out as a literal and the search moves on.
func (m *Matcher) encodeLazy(data []byte, start, end int, out *buffer.Words) {
	pending := false
	prevLen, prevDist := 0, 0
	p := start
	for p < end {
		m.insert(data, p)
		curLen, curDist := 0, 0
		if !pending || prevLen < m.opts.NiceMatch {
			curLen, curDist = m.findMatch(data, p, end-p)
		}
		if pending && prevLen > 0 && curLen <= prevLen {
			out.Push(uint32(MatchToken(prevLen, prevDist)))
			matchEnd := p - 1 + prevLen
			for q := p + 1; q < matchEnd; q++ {
				m.insert(data, q)
			}
			p = matchEnd
			pending = false
			prevLen = 0
			continue
		}
		if pending {
			out.Push(uint32(LiteralToken(data[p-1])))
		}
		prevLen, prevDist = curLen, curDist
		pending = true
		p++
	}
	if pending {
		if prevLen > 0 {
			out.Push(uint32(MatchToken(prevLen, prevDist)))
		} else {
			out.Push(uint32(LiteralToken(data[p-1])))
		}
	}
}
