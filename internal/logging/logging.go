// Package logging builds the zerolog loggers used by the codec and the gpng
// command.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/deepteams/png/internal/oops"
)

// New returns a logger writing to w at the given level. Pretty selects a
// human-readable console format instead of JSON lines.
func New(w io.Writer, level zerolog.Level, pretty bool) zerolog.Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything. It is the library default.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// ParseLevel parses a level name such as "debug" or "warn". An empty string
// means info.
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	l, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, oops.New(oops.CodeInvalidArgument, err, "log level %q", s)
	}
	return l, nil
}

// Err logs err with its call stack when it carries one. The stack is
// attached directly, so zerolog.ErrorStackMarshaler is left alone.
func Err(l *zerolog.Logger, err error) *zerolog.Event {
	e := l.Error().Err(err).Int("code", int(oops.CodeOf(err)))
	if st := oops.StackOf(err); st != nil {
		e = e.Array(zerolog.ErrorStackFieldName, st)
	}
	return e
}
