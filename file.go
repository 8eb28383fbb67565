package png

import (
	"os"

	"github.com/deepteams/png/internal/oops"
)

// LoadFile reads the whole file at path.
func LoadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.New(oops.CodeInvalidArgument, err, "reading %s", path)
	}
	return data, nil
}

// SaveFile writes data to path, replacing any existing file.
func SaveFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return oops.New(oops.CodeInvalidArgument, err, "writing %s", path)
	}
	return nil
}

// DecodeFile loads and decodes the PNG file at path.
func DecodeFile(path string, opts *DecoderOptions) (*Image, error) {
	data, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data, opts)
}

// EncodeFile encodes pix and saves the result to path.
func EncodeFile(path string, pix []byte, w, h int, mode ColorMode, opts *EncoderOptions) error {
	data, err := Encode(pix, w, h, mode, opts)
	if err != nil {
		return err
	}
	return SaveFile(path, data)
}
