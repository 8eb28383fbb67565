// Package oops defines the numeric error codes reported by every codec stage
// and an error type that carries the code together with the call stack at
// the point of violation.
package oops

import (
	"errors"
	"fmt"

	"github.com/go-stack/stack"
	"github.com/rs/zerolog"
)

// Code is a discrete numeric error code. The hundreds digit selects the
// category (see Category).
type Code int

const (
	CodeOK Code = 0

	// Malformed container or stream.
	CodeBadSignature         Code = 101
	CodeChunkOrder           Code = 102
	CodeMissingChunk         Code = 103
	CodeDuplicateChunk       Code = 104
	CodeUnknownCriticalChunk Code = 105
	CodeMalformedChunk       Code = 106
	CodeMalformedZlibHeader  Code = 107
	CodeMalformedDeflate     Code = 108
	CodeMalformedHuffman     Code = 109
	CodePaletteIndex         Code = 110
	CodeMalformedText        Code = 111

	// Checksum failures.
	CodeChecksumCRC   Code = 201
	CodeChecksumAdler Code = 202

	// Unsupported format.
	CodeUnsupportedColor       Code = 301
	CodeUnsupportedInterlace   Code = 302
	CodeUnsupportedFilter      Code = 303
	CodeUnsupportedCompression Code = 304
	CodeUnsupportedDictionary  Code = 305
	CodeColorNotInPalette      Code = 306

	// Truncated or overrun input.
	CodeTruncated Code = 401

	// Resource exhaustion.
	CodeTooLarge Code = 501

	// Invalid caller arguments.
	CodeInvalidArgument Code = 601
)

// Category groups codes by the kind of failure.
type Category int

const (
	CategoryNone Category = iota
	CategoryMalformed
	CategoryChecksum
	CategoryUnsupported
	CategoryTruncated
	CategoryResource
	CategoryArgument
)

// Category returns the category the code belongs to.
func (c Code) Category() Category {
	switch c / 100 {
	case 1:
		return CategoryMalformed
	case 2:
		return CategoryChecksum
	case 3:
		return CategoryUnsupported
	case 4:
		return CategoryTruncated
	case 5:
		return CategoryResource
	case 6:
		return CategoryArgument
	}
	return CategoryNone
}

var codeText = map[Code]string{
	CodeOK:                     "no error",
	CodeBadSignature:           "bad PNG signature",
	CodeChunkOrder:             "chunk out of order",
	CodeMissingChunk:           "missing critical chunk",
	CodeDuplicateChunk:         "duplicate chunk",
	CodeUnknownCriticalChunk:   "unknown critical chunk",
	CodeMalformedChunk:         "malformed chunk",
	CodeMalformedZlibHeader:    "malformed zlib header",
	CodeMalformedDeflate:       "malformed deflate stream",
	CodeMalformedHuffman:       "invalid Huffman code",
	CodePaletteIndex:           "palette index out of range",
	CodeMalformedText:          "malformed text chunk",
	CodeChecksumCRC:            "CRC-32 mismatch",
	CodeChecksumAdler:          "Adler-32 mismatch",
	CodeUnsupportedColor:       "unsupported color type or bit depth",
	CodeUnsupportedInterlace:   "unsupported interlace method",
	CodeUnsupportedFilter:      "unsupported filter",
	CodeUnsupportedCompression: "unsupported compression method",
	CodeUnsupportedDictionary:  "preset dictionary not supported",
	CodeColorNotInPalette:      "color not in palette",
	CodeTruncated:              "truncated input",
	CodeTooLarge:               "image too large",
	CodeInvalidArgument:        "invalid argument",
}

func (c Code) String() string {
	if s, ok := codeText[c]; ok {
		return s
	}
	return fmt.Sprintf("error code %d", int(c))
}

type Error struct {
	Code    Code
	Message string
	Wrapped error
	Stack   CallStack
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("png: %s (%d): %v", msg, int(e.Code), e.Wrapped)
	}
	return fmt.Sprintf("png: %s (%d)", msg, int(e.Code))
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is lets errors.Is match two *Error values by code alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

type CallStack []StackFrame

func (s CallStack) MarshalZerologArray(a *zerolog.Array) {
	for _, frame := range s {
		a.Object(frame)
	}
}

type StackFrame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

func (f StackFrame) MarshalZerologObject(e *zerolog.Event) {
	e.
		Str("file", f.File).
		Int("line", f.Line).
		Str("function", f.Function)
}

// StackOf returns the call stack captured by New for the first *Error in
// err's chain, or nil.
func StackOf(err error) CallStack {
	var asOops *Error
	if errors.As(err, &asOops) {
		return asOops.Stack
	}
	return nil
}

// ZerologStackMarshaler can be installed as zerolog.ErrorStackMarshaler so
// that .Stack() on a log event prints the frames captured by New.
var ZerologStackMarshaler = func(err error) interface{} {
	if st := StackOf(err); st != nil {
		return st
	}
	return nil
}

func trace(skip int) CallStack {
	calls := stack.Trace().TrimRuntime()
	if len(calls) > skip {
		calls = calls[skip:]
	}
	frames := make(CallStack, len(calls))
	for i, call := range calls {
		callFrame := call.Frame()
		frames[i] = StackFrame{
			File:     callFrame.File,
			Line:     callFrame.Line,
			Function: callFrame.Function,
		}
	}
	return frames
}

// New creates an *Error with the given code. The format may be empty, in
// which case the code's description is used as the message.
func New(code Code, wrapped error, format string, args ...interface{}) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{
		Code:    code,
		Message: msg,
		Wrapped: wrapped,
		Stack:   trace(2),
	}
}

// Sentinel returns a comparison value for errors.Is that matches any error
// carrying code.
func Sentinel(code Code) error {
	return &Error{Code: code}
}

// CodeOf extracts the code of the first *Error in err's chain. Non-nil errors
// without a code report CodeInvalidArgument; nil reports CodeOK.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInvalidArgument
}

// Is reports whether err carries code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
