package container

import (
	"bytes"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/deepteams/png/internal/colormode"
	"github.com/deepteams/png/internal/deflate"
	"github.com/deepteams/png/internal/oops"
	"github.com/deepteams/png/internal/zlib"
)

// Info holds the ancillary metadata of an image.
type Info struct {
	// Background is the bKGD color, in samples of the image's bit depth.
	// Palette images store the entry index in R.
	Background *Background

	Phys *Phys

	// Time is the last modification time from tIME, in UTC.
	Time *time.Time

	// Texts holds tEXt and zTXt entries in file order.
	Texts []Text

	ITexts []IText

	// Gamma is the gAMA value times 100000.
	Gamma *uint32

	Chromaticities *Chromaticities

	// RenderingIntent is the sRGB chunk, one of the Intent constants.
	RenderingIntent *uint8

	ICCProfile      *ICCProfile
	SignificantBits *SignificantBits

	// Unknown holds unrecognized ancillary chunks by position: before PLTE,
	// between PLTE and IDAT, and after IDAT.
	Unknown [3][]Chunk
}

// Background is a bKGD color.
type Background struct {
	R, G, B uint16
}

// Phys is the pHYs pixel density.
type Phys struct {
	X, Y uint32
	Unit uint8
}

// Text is a Latin-1 keyword/value pair, stored as tEXt or, when Compressed,
// zTXt.
type Text struct {
	Keyword    string
	Text       string
	Compressed bool
}

// IText is a UTF-8 iTXt entry.
type IText struct {
	Keyword           string
	Language          string
	TranslatedKeyword string
	Text              string
	Compressed        bool
}

// Chromaticities holds cHRM values times 100000.
type Chromaticities struct {
	WhiteX, WhiteY uint32
	RedX, RedY     uint32
	GreenX, GreenY uint32
	BlueX, BlueY   uint32
}

// ICCProfile is an embedded iCCP profile.
type ICCProfile struct {
	Name    string
	Profile []byte
}

// SignificantBits holds sBIT values in channel order: grey, grey+alpha, RGB
// (also for palette images) or RGBA. Unused trailing entries are zero.
type SignificantBits [4]uint8

// sigBitsLen is the number of sBIT entries for a color type.
func sigBitsLen(ct colormode.ColorType) int {
	if ct == colormode.Palette {
		return 3
	}
	return ct.Channels()
}

func latin1(b []byte) string {
	s, _ := charmap.ISO8859_1.NewDecoder().Bytes(b)
	return string(s)
}

func toLatin1(s string) ([]byte, error) {
	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, oops.New(oops.CodeInvalidArgument, err, "text %q is not Latin-1", s)
	}
	return b, nil
}

func checkKeyword(k []byte) error {
	if len(k) == 0 || len(k) > MaxKeywordLength {
		return oops.New(oops.CodeMalformedText, nil, "keyword of %d bytes", len(k))
	}
	return nil
}

// splitKeyword splits a NUL-terminated keyword off the front of data.
func splitKeyword(data []byte) ([]byte, []byte, error) {
	i := bytes.IndexByte(data, 0)
	if i < 0 {
		return nil, nil, oops.New(oops.CodeMalformedText, nil, "keyword is not terminated")
	}
	if err := checkKeyword(data[:i]); err != nil {
		return nil, nil, err
	}
	return data[:i], data[i+1:], nil
}

func inflate(data []byte) ([]byte, error) {
	return zlib.Decompress(data, zlib.Options{MaxOutput: maxTextSize})
}

func compress(data []byte) ([]byte, error) {
	return zlib.Compress(data, deflate.DefaultOptions())
}

func decodeText(data []byte) (Text, error) {
	k, v, err := splitKeyword(data)
	if err != nil {
		return Text{}, err
	}
	return Text{Keyword: latin1(k), Text: latin1(v)}, nil
}

func decodeZText(data []byte) (Text, error) {
	k, rest, err := splitKeyword(data)
	if err != nil {
		return Text{}, err
	}
	if len(rest) == 0 {
		return Text{}, oops.New(oops.CodeMalformedText, nil, "zTXt has no compression method")
	}
	if rest[0] != 0 {
		return Text{}, oops.New(oops.CodeUnsupportedCompression, nil, "zTXt compression method %d", rest[0])
	}
	v, err := inflate(rest[1:])
	if err != nil {
		return Text{}, err
	}
	return Text{Keyword: latin1(k), Text: latin1(v), Compressed: true}, nil
}

func encodeText(t Text, forceCompress bool) (Type, []byte, error) {
	k, err := toLatin1(t.Keyword)
	if err != nil {
		return Type{}, nil, err
	}
	if err := checkKeyword(k); err != nil {
		return Type{}, nil, err
	}
	v, err := toLatin1(t.Text)
	if err != nil {
		return Type{}, nil, err
	}
	out := append(k, 0)
	if !t.Compressed && !forceCompress {
		return TypeTEXT, append(out, v...), nil
	}
	z, err := compress(v)
	if err != nil {
		return Type{}, nil, err
	}
	out = append(out, 0)
	return TypeZTXT, append(out, z...), nil
}

func decodeIText(data []byte) (IText, error) {
	k, rest, err := splitKeyword(data)
	if err != nil {
		return IText{}, err
	}
	if len(rest) < 2 {
		return IText{}, oops.New(oops.CodeMalformedText, nil, "iTXt too short")
	}
	compressed, method := rest[0], rest[1]
	rest = rest[2:]
	if compressed > 1 {
		return IText{}, oops.New(oops.CodeMalformedText, nil, "iTXt compression flag %d", compressed)
	}
	if compressed == 1 && method != 0 {
		return IText{}, oops.New(oops.CodeUnsupportedCompression, nil, "iTXt compression method %d", method)
	}
	i := bytes.IndexByte(rest, 0)
	if i < 0 {
		return IText{}, oops.New(oops.CodeMalformedText, nil, "iTXt language tag is not terminated")
	}
	lang := rest[:i]
	rest = rest[i+1:]
	j := bytes.IndexByte(rest, 0)
	if j < 0 {
		return IText{}, oops.New(oops.CodeMalformedText, nil, "iTXt translated keyword is not terminated")
	}
	tk, v := rest[:j], rest[j+1:]
	if compressed == 1 {
		if v, err = inflate(v); err != nil {
			return IText{}, err
		}
	}
	return IText{
		Keyword:           latin1(k),
		Language:          string(lang),
		TranslatedKeyword: string(tk),
		Text:              string(v),
		Compressed:        compressed == 1,
	}, nil
}

func encodeIText(t IText, forceCompress bool) ([]byte, error) {
	k, err := toLatin1(t.Keyword)
	if err != nil {
		return nil, err
	}
	if err := checkKeyword(k); err != nil {
		return nil, err
	}
	compressed := t.Compressed || forceCompress
	out := append(k, 0)
	if compressed {
		out = append(out, 1, 0)
	} else {
		out = append(out, 0, 0)
	}
	out = append(out, t.Language...)
	out = append(out, 0)
	out = append(out, t.TranslatedKeyword...)
	out = append(out, 0)
	if !compressed {
		return append(out, t.Text...), nil
	}
	z, err := compress([]byte(t.Text))
	if err != nil {
		return nil, err
	}
	return append(out, z...), nil
}

func decodeBackground(data []byte, ct colormode.ColorType, paletteLen int) (*Background, error) {
	switch ct {
	case colormode.Palette:
		if len(data) != 1 {
			return nil, oops.New(oops.CodeMalformedChunk, nil, "bKGD has %d bytes", len(data))
		}
		if int(data[0]) >= paletteLen {
			return nil, oops.New(oops.CodePaletteIndex, nil, "bKGD index %d with %d palette entries", data[0], paletteLen)
		}
		return &Background{R: uint16(data[0])}, nil
	case colormode.Grey, colormode.GreyAlpha:
		if len(data) != 2 {
			return nil, oops.New(oops.CodeMalformedChunk, nil, "bKGD has %d bytes", len(data))
		}
		v := ReadBE16(data)
		return &Background{R: v, G: v, B: v}, nil
	}
	if len(data) != 6 {
		return nil, oops.New(oops.CodeMalformedChunk, nil, "bKGD has %d bytes", len(data))
	}
	return &Background{R: ReadBE16(data), G: ReadBE16(data[2:]), B: ReadBE16(data[4:])}, nil
}

func (b Background) encode(ct colormode.ColorType) []byte {
	switch ct {
	case colormode.Palette:
		return []byte{byte(b.R)}
	case colormode.Grey, colormode.GreyAlpha:
		out := make([]byte, 2)
		PutBE16(out, b.R)
		return out
	}
	out := make([]byte, 6)
	PutBE16(out, b.R)
	PutBE16(out[2:], b.G)
	PutBE16(out[4:], b.B)
	return out
}

func decodePhys(data []byte) (*Phys, error) {
	if len(data) != 9 {
		return nil, oops.New(oops.CodeMalformedChunk, nil, "pHYs has %d bytes", len(data))
	}
	return &Phys{X: ReadBE32(data), Y: ReadBE32(data[4:]), Unit: data[8]}, nil
}

func (p Phys) encode() []byte {
	out := make([]byte, 9)
	PutBE32(out, p.X)
	PutBE32(out[4:], p.Y)
	out[8] = p.Unit
	return out
}

func decodeTime(data []byte) (*time.Time, error) {
	if len(data) != 7 {
		return nil, oops.New(oops.CodeMalformedChunk, nil, "tIME has %d bytes", len(data))
	}
	year := int(ReadBE16(data))
	mon, day, hour, minute, sec := data[2], data[3], data[4], data[5], data[6]
	if mon < 1 || mon > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || sec > 60 {
		return nil, oops.New(oops.CodeMalformedChunk, nil, "tIME %d-%d-%d %d:%d:%d", year, mon, day, hour, minute, sec)
	}
	t := time.Date(year, time.Month(mon), int(day), int(hour), int(minute), int(sec), 0, time.UTC)
	return &t, nil
}

func encodeTime(t time.Time) []byte {
	t = t.UTC()
	out := make([]byte, 7)
	PutBE16(out, uint16(t.Year()))
	out[2] = byte(t.Month())
	out[3] = byte(t.Day())
	out[4] = byte(t.Hour())
	out[5] = byte(t.Minute())
	out[6] = byte(t.Second())
	return out
}

func decodeGamma(data []byte) (*uint32, error) {
	if len(data) != 4 {
		return nil, oops.New(oops.CodeMalformedChunk, nil, "gAMA has %d bytes", len(data))
	}
	g := ReadBE32(data)
	return &g, nil
}

func decodeChromaticities(data []byte) (*Chromaticities, error) {
	if len(data) != 32 {
		return nil, oops.New(oops.CodeMalformedChunk, nil, "cHRM has %d bytes", len(data))
	}
	v := func(i int) uint32 { return ReadBE32(data[4*i:]) }
	return &Chromaticities{
		WhiteX: v(0), WhiteY: v(1),
		RedX: v(2), RedY: v(3),
		GreenX: v(4), GreenY: v(5),
		BlueX: v(6), BlueY: v(7),
	}, nil
}

func (c Chromaticities) encode() []byte {
	out := make([]byte, 32)
	for i, v := range [8]uint32{c.WhiteX, c.WhiteY, c.RedX, c.RedY, c.GreenX, c.GreenY, c.BlueX, c.BlueY} {
		PutBE32(out[4*i:], v)
	}
	return out
}

func decodeIntent(data []byte) (*uint8, error) {
	if len(data) != 1 || data[0] > IntentAbsolute {
		return nil, oops.New(oops.CodeMalformedChunk, nil, "sRGB payload %v", data)
	}
	v := data[0]
	return &v, nil
}

func decodeICCProfile(data []byte) (*ICCProfile, error) {
	name, rest, err := splitKeyword(data)
	if err != nil {
		return nil, oops.New(oops.CodeMalformedChunk, err, "iCCP profile name")
	}
	if len(rest) == 0 || rest[0] != 0 {
		return nil, oops.New(oops.CodeUnsupportedCompression, nil, "iCCP compression method")
	}
	profile, err := inflate(rest[1:])
	if err != nil {
		return nil, err
	}
	return &ICCProfile{Name: latin1(name), Profile: profile}, nil
}

func (p ICCProfile) encode() ([]byte, error) {
	name, err := toLatin1(p.Name)
	if err != nil {
		return nil, err
	}
	if err := checkKeyword(name); err != nil {
		return nil, err
	}
	z, err := compress(p.Profile)
	if err != nil {
		return nil, err
	}
	out := append(name, 0, 0)
	return append(out, z...), nil
}

func decodeSignificantBits(data []byte, h Header) (*SignificantBits, error) {
	n := sigBitsLen(h.ColorType)
	if len(data) != n {
		return nil, oops.New(oops.CodeMalformedChunk, nil, "sBIT has %d bytes, want %d", len(data), n)
	}
	depth := h.BitDepth
	if h.ColorType == colormode.Palette {
		depth = 8
	}
	var s SignificantBits
	for i, v := range data {
		if v == 0 || int(v) > depth {
			return nil, oops.New(oops.CodeMalformedChunk, nil, "sBIT value %d at depth %d", v, depth)
		}
		s[i] = v
	}
	return &s, nil
}

func (s SignificantBits) encode(ct colormode.ColorType) []byte {
	n := sigBitsLen(ct)
	out := make([]byte, n)
	copy(out, s[:n])
	return out
}
