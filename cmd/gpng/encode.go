package main

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/deepteams/png"
)

// encoderFlags mirrors png.EncoderOptions on the command line.
type encoderFlags struct {
	autoConvert  bool
	forcePalette bool
	stripAlpha   bool
	compressText bool
	interlace    bool
	lazy         bool
	noLZ77       bool
	addID        bool

	color      string
	filter     string
	filterType string
	block      string

	window      int
	minMatch    int
	niceMatch   int
	searchDepth int
	maxIDAT     int
}

func (f *encoderFlags) register(fs *pflag.FlagSet) {
	d := png.DefaultEncoderOptions()
	fs.BoolVar(&f.autoConvert, "auto-convert", d.AutoConvert, "store the image in its smallest lossless color mode")
	fs.BoolVar(&f.forcePalette, "force-palette", d.ForcePalette, "require a palette color mode")
	fs.BoolVar(&f.stripAlpha, "strip-alpha", d.StripOpaqueAlpha, "drop an alpha channel that is fully opaque")
	fs.BoolVar(&f.compressText, "compress-text", d.CompressText, "write text chunks compressed")
	fs.BoolVar(&f.interlace, "interlace", d.Interlace, "write Adam7 interlaced")
	fs.BoolVar(&f.lazy, "lazy", d.LazyMatching, "lazy LZ77 matching")
	fs.BoolVar(&f.noLZ77, "no-lz77", d.DisableLZ77, "Huffman coding only, no LZ77 matching")
	fs.BoolVar(&f.addID, "add-id", d.AddID, "add a Software text chunk naming the encoder")
	fs.StringVar(&f.color, "color", "", `stored color mode, e.g. "rgb8" or "grey4" (default: automatic)`)
	fs.StringVar(&f.filter, "filter", d.FilterStrategy.String(), "filter strategy: auto, minsum, entropy, fixed")
	fs.StringVar(&f.filterType, "filter-type", d.FilterType.String(), "filter used by --filter=fixed: none, sub, up, average, paeth")
	fs.StringVar(&f.block, "block", d.BlockType.String(), "DEFLATE block type: auto, stored, fixed, dynamic")
	fs.IntVar(&f.window, "window", d.WindowSize, "LZ77 window size, a power of two in [256, 32768]")
	fs.IntVar(&f.minMatch, "min-match", d.MinMatch, "shortest LZ77 match")
	fs.IntVar(&f.niceMatch, "nice-match", d.NiceMatch, "match length that ends the search")
	fs.IntVar(&f.searchDepth, "search-depth", d.SearchDepth, "hash chain candidates per position")
	fs.IntVar(&f.maxIDAT, "max-idat", d.MaxIDATSize, "largest IDAT chunk in bytes")
}

func (f *encoderFlags) options() (*png.EncoderOptions, error) {
	opts := &png.EncoderOptions{
		AutoConvert:      f.autoConvert,
		ForcePalette:     f.forcePalette,
		StripOpaqueAlpha: f.stripAlpha,
		CompressText:     f.compressText,
		Interlace:        f.interlace,
		LazyMatching:     f.lazy,
		DisableLZ77:      f.noLZ77,
		AddID:            f.addID,
		WindowSize:       f.window,
		MinMatch:         f.minMatch,
		NiceMatch:        f.niceMatch,
		SearchDepth:      f.searchDepth,
		MaxIDATSize:      f.maxIDAT,
	}
	var err error
	if opts.FilterStrategy, err = png.ParseFilterStrategy(f.filter); err != nil {
		return nil, err
	}
	if opts.FilterType, err = png.ParseFilterType(f.filterType); err != nil {
		return nil, err
	}
	if opts.BlockType, err = png.ParseBlockType(f.block); err != nil {
		return nil, err
	}
	if f.color != "" {
		m, err := png.ParseColorMode(f.color)
		if err != nil {
			return nil, err
		}
		opts.OutputMode = &m
	}
	return opts, nil
}

// outputPath derives the default output name from the input.
func outputPath(input, flag, ext string) string {
	if flag != "" {
		return flag
	}
	if input == "-" {
		return "output" + ext
	}
	return strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ext
}

func newEncodeCommand(a *app) *cobra.Command {
	var ef encoderFlags
	var output string
	cmd := &cobra.Command{
		Use:   "encode [options] <input>",
		Short: "Encode PNG, JPEG, GIF, BMP, TIFF or WebP to PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := ef.options()
			if err != nil {
				return err
			}
			data, err := a.readInput(args[0])
			if err != nil {
				return err
			}

			c := a.codec()
			var out []byte
			if bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")) {
				img, err := c.Decode(data, &png.DecoderOptions{KeepUnknownChunks: true})
				if err != nil {
					return err
				}
				opts.Info = img.Info
				out, err = c.Encode(img.Pix, img.Width, img.Height, img.Mode, opts)
				if err != nil {
					return err
				}
			} else {
				src, format, err := image.Decode(bytes.NewReader(data))
				if err != nil {
					return fmt.Errorf("decoding input: %w", err)
				}
				a.log.Debug().Str("format", format).Stringer("bounds", src.Bounds()).Msg("read input")
				pix, w, h, mode := png.FromImage(src)
				out, err = c.Encode(pix, w, h, mode, opts)
				if err != nil {
					return err
				}
			}

			path := outputPath(args[0], output, ".png")
			if err := a.writeOutput(path, out); err != nil {
				return err
			}
			if path != "-" {
				fmt.Fprintf(a.stderr, "Encoded %s → %s (%d bytes)\n", args[0], path, len(out))
			}
			return nil
		},
	}
	ef.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "", `output path (default: <input>.png, "-" for stdout)`)
	return cmd
}

func newRecompressCommand(a *app) *cobra.Command {
	var ef encoderFlags
	var output string
	var ignoreCRC bool
	cmd := &cobra.Command{
		Use:   "recompress [options] <input.png>",
		Short: "Decode and re-encode a PNG, keeping its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := ef.options()
			if err != nil {
				return err
			}
			data, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			c := a.codec()
			img, err := c.Decode(data, &png.DecoderOptions{KeepUnknownChunks: true, IgnoreCRC: ignoreCRC})
			if err != nil {
				return err
			}
			opts.Info = img.Info
			out, err := c.Encode(img.Pix, img.Width, img.Height, img.Mode, opts)
			if err != nil {
				return err
			}

			path := output
			if path == "" {
				path = args[0]
			}
			if err := a.writeOutput(path, out); err != nil {
				return err
			}
			if path != "-" {
				saved := 100 * (1 - float64(len(out))/float64(len(data)))
				fmt.Fprintf(a.stderr, "Recompressed %s: %d → %d bytes (%.1f%% saved)\n", args[0], len(data), len(out), saved)
			}
			return nil
		},
	}
	ef.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "", `output path (default: overwrite the input, "-" for stdout)`)
	cmd.Flags().BoolVar(&ignoreCRC, "ignore-crc", false, "accept chunks with bad CRCs")
	return cmd
}
