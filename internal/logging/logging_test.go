package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/deepteams/png/internal/oops"
)

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.DebugLevel, false)
	l.Debug().Int("width", 4).Msg("decoded")
	var fields map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &fields); err != nil {
		t.Fatalf("log line is not JSON: %v: %q", err, buf.String())
	}
	if fields["message"] != "decoded" || fields["width"] != float64(4) {
		t.Fatalf("fields = %v", fields)
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.WarnLevel, false)
	l.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}
}

func TestErrCarriesStack(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.DebugLevel, false)
	Err(&l, oops.New(oops.CodeTruncated, nil, "short")).Msg("failed")
	var fields map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &fields); err != nil {
		t.Fatal(err)
	}
	if fields["code"] != float64(oops.CodeTruncated) {
		t.Fatalf("code = %v", fields["code"])
	}
	if _, ok := fields[zerolog.ErrorStackFieldName].([]interface{}); !ok {
		t.Fatalf("no stack in %v", fields)
	}
}

func TestGlobalsUntouched(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.DebugLevel, true)
	Err(&l, oops.New(oops.CodeTruncated, nil, "short")).Msg("failed")
	if zerolog.ErrorStackMarshaler != nil {
		t.Fatal("zerolog.ErrorStackMarshaler was set")
	}
}

func TestParseLevel(t *testing.T) {
	if l, err := ParseLevel("WARN"); err != nil || l != zerolog.WarnLevel {
		t.Fatalf("ParseLevel(WARN) = %v, %v", l, err)
	}
	if l, _ := ParseLevel(""); l != zerolog.InfoLevel {
		t.Fatalf("empty level = %v", l)
	}
	if _, err := ParseLevel("loud"); !oops.Is(err, oops.CodeInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}
