// Package deflate implements the DEFLATE block format (RFC 1951): stored,
// fixed-Huffman and dynamic-Huffman blocks on the compression side, and a
// complete inflater on the decompression side.
package deflate

import (
	"fmt"
	"strings"

	"github.com/deepteams/png/internal/lz77"
	"github.com/deepteams/png/internal/oops"
)

// BlockType selects how compressed blocks are coded.
type BlockType int

const (
	// BlockAuto codes each block in whichever of the three kinds is
	// smallest, preferring dynamic on ties.
	BlockAuto BlockType = iota
	// BlockStored copies the input verbatim.
	BlockStored
	// BlockFixed uses the fixed Huffman tables.
	BlockFixed
	// BlockDynamic transmits per-block Huffman tables.
	BlockDynamic
)

// Block header type values.
const (
	btypeStored  = 0
	btypeFixed   = 1
	btypeDynamic = 2
)

var blockTypeNames = [...]string{"auto", "stored", "fixed", "dynamic"}

func (b BlockType) String() string {
	if b >= 0 && int(b) < len(blockTypeNames) {
		return blockTypeNames[b]
	}
	return fmt.Sprintf("BlockType(%d)", int(b))
}

// ParseBlockType parses a block type name as printed by String.
func ParseBlockType(s string) (BlockType, error) {
	for i, n := range blockTypeNames {
		if strings.EqualFold(s, n) {
			return BlockType(i), nil
		}
	}
	return 0, oops.New(oops.CodeInvalidArgument, nil, "unknown block type %q", s)
}

const (
	// DefaultBlockSize is the number of input bytes coded per block.
	DefaultBlockSize = 1 << 17
	// MaxStoredLen is the payload limit of one stored block.
	MaxStoredLen = 65535
)

// Options controls compression.
type Options struct {
	BlockType BlockType
	LZ77      lz77.Options
	// BlockSize is the number of input bytes per block. Zero means
	// DefaultBlockSize.
	BlockSize int
}

// DefaultOptions returns automatic block selection with default matching.
func DefaultOptions() Options {
	return Options{
		BlockType: BlockAuto,
		LZ77:      lz77.DefaultOptions(),
		BlockSize: DefaultBlockSize,
	}
}

func (o Options) blockSize() int {
	if o.BlockSize <= 0 {
		return DefaultBlockSize
	}
	return o.BlockSize
}

// codeLengthOrder is the transmission order of the code-length code lengths.
var codeLengthOrder = [19]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

const numCodeLengthSymbols = 19
