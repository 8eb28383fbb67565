package container

import (
	"github.com/deepteams/png/internal/buffer"
	"github.com/deepteams/png/internal/checksum"
	"github.com/deepteams/png/internal/oops"
)

// Type is a four-letter chunk type. Bit 5 of each letter is a property flag.
type Type [4]byte

// TypeOf converts a four-character string to a Type.
func TypeOf(s string) Type {
	var t Type
	copy(t[:], s)
	return t
}

func (t Type) String() string { return string(t[:]) }

// IsCritical reports whether a decoder must understand the chunk.
func (t Type) IsCritical() bool { return t[0]&0x20 == 0 }

// IsPublic reports whether the type is registered rather than private.
func (t Type) IsPublic() bool { return t[1]&0x20 == 0 }

// IsReservedValid reports whether the reserved bit is clear, as required.
func (t Type) IsReservedValid() bool { return t[2]&0x20 == 0 }

// IsSafeToCopy reports whether editors may copy the chunk unchanged after
// modifying critical chunks.
func (t Type) IsSafeToCopy() bool { return t[3]&0x20 != 0 }

// Valid reports whether all four bytes are ASCII letters.
func (t Type) Valid() bool {
	for _, c := range t {
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}

// Chunk is one chunk of a PNG stream. Data excludes the length, type and CRC.
type Chunk struct {
	Type Type
	Data []byte
}

// ReadChunkHeader reads a chunk's length and type from data.
func ReadChunkHeader(data []byte) (length int, typ Type, err error) {
	if len(data) < ChunkHeaderSize {
		return 0, Type{}, oops.New(oops.CodeTruncated, nil, "chunk header needs %d bytes, have %d", ChunkHeaderSize, len(data))
	}
	n := ReadBE32(data)
	copy(typ[:], data[4:8])
	if n > MaxChunkLength {
		return 0, typ, oops.New(oops.CodeMalformedChunk, nil, "%v chunk length %d", typ, n)
	}
	if !typ.Valid() {
		return 0, typ, oops.New(oops.CodeMalformedChunk, nil, "chunk type %q", typ[:])
	}
	return int(n), typ, nil
}

// ReadChunk reads the chunk at the start of data and returns it with the
// number of bytes consumed. Data aliases the input. The CRC is verified
// unless ignoreCRC is set.
func ReadChunk(data []byte, crc *checksum.Table, ignoreCRC bool) (Chunk, int, error) {
	c, n, _, err := readChunk(data, crc, ignoreCRC)
	return c, n, err
}

// readChunk additionally reports whether the stored CRC matched.
func readChunk(data []byte, crc *checksum.Table, ignoreCRC bool) (Chunk, int, bool, error) {
	length, typ, err := ReadChunkHeader(data)
	if err != nil {
		return Chunk{}, 0, false, err
	}
	total := ChunkOverhead + length
	if len(data) < total {
		return Chunk{}, 0, false, oops.New(oops.CodeTruncated, nil, "%v chunk needs %d bytes, have %d", typ, total, len(data))
	}
	body := data[ChunkHeaderSize : ChunkHeaderSize+length]
	want := ReadBE32(data[ChunkHeaderSize+length:])
	got := crc.Checksum(data[4 : ChunkHeaderSize+length])
	if got != want && !ignoreCRC {
		return Chunk{}, 0, false, oops.New(oops.CodeChecksumCRC, nil, "%v chunk has %08x, data has %08x", typ, want, got)
	}
	return Chunk{Type: typ, Data: body}, total, got == want, nil
}

// AppendChunk frames data as a chunk of type typ and appends it to dst.
func AppendChunk(dst *buffer.Bytes, typ Type, data []byte, crc *checksum.Table) error {
	if len(data) > MaxChunkLength {
		return oops.New(oops.CodeTooLarge, nil, "%v chunk of %d bytes", typ, len(data))
	}
	var hdr [ChunkHeaderSize]byte
	PutBE32(hdr[:4], uint32(len(data)))
	copy(hdr[4:], typ[:])
	dst.Append(hdr[:]...)
	dst.Append(data...)
	h := checksum.NewCRC32(crc)
	h.Write(typ[:])
	h.Write(data)
	dst.Append(h.Sum(nil)...)
	return nil
}
