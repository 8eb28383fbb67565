// Command gpng encodes, decodes and inspects PNG images from the command line.
//
// Usage:
//
//	gpng encode [options] <input>       PNG/JPEG/GIF/BMP/TIFF/WebP → PNG (use "-" for stdin)
//	gpng decode [options] <input.png>   PNG → PNG/BMP/TIFF/raw pixels (-o - for stdout)
//	gpng info <input.png>               Display header, metadata and chunk list
//	gpng recompress [options] <in.png>  Re-encode a PNG, keeping its metadata
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/deepteams/png"
	"github.com/deepteams/png/internal/logging"
	"github.com/deepteams/png/internal/oops"
)

func main() {
	zerolog.ErrorStackMarshaler = oops.ZerologStackMarshaler
	root := newRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gpng: %v\n", err)
		os.Exit(1)
	}
}

// app is the state shared by all subcommands.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	logLevel   string
	pretty     bool
	configPath string

	log zerolog.Logger
}

func (a *app) codec() *png.Codec {
	return png.NewCodec(png.WithLogger(a.log))
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, log: logging.Nop()}

	root := &cobra.Command{
		Use:           "gpng",
		Short:         "Encode, decode and inspect PNG images",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.configPath != "" {
				raw, err := png.LoadFile(a.configPath)
				if err != nil {
					return err
				}
				if err := setFlagsFromYAML(cmd.Flags(), raw); err != nil {
					return err
				}
			}
			level, err := logging.ParseLevel(a.logLevel)
			if err != nil {
				return err
			}
			a.log = logging.New(a.stderr, level, a.pretty)
			return nil
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.BoolVar(&a.pretty, "pretty", false, "human-readable log output instead of JSON")
	pf.StringVar(&a.configPath, "config", "", "YAML file supplying defaults for unset flags")

	root.AddCommand(
		newEncodeCommand(a),
		newDecodeCommand(a),
		newInfoCommand(a),
		newRecompressCommand(a),
	)
	return root
}

// readInput reads path, or stdin when path is "-".
func (a *app) readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	return png.LoadFile(path)
}

// writeOutput writes data to path, or stdout when path is "-".
func (a *app) writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := a.stdout.Write(data)
		return err
	}
	if err := png.SaveFile(path, data); err != nil {
		return err
	}
	a.log.Info().Str("path", path).Int("bytes", len(data)).Msg("wrote")
	return nil
}
