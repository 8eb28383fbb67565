package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/deepteams/png"
)

func newDecodeCommand(a *app) *cobra.Command {
	var (
		output      string
		format      string
		color       string
		ignoreCRC   bool
		ignoreAdler bool
		maxPixels   int
	)
	cmd := &cobra.Command{
		Use:   "decode [options] <input.png>",
		Short: "Decode a PNG to PNG, BMP, TIFF or raw pixels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			if format == "" {
				format = strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")
				if format == "" || output == "-" {
					format = "raw"
				}
			}
			opts := &png.DecoderOptions{IgnoreCRC: ignoreCRC, IgnoreAdler: ignoreAdler, MaxPixels: maxPixels}
			if format == "raw" {
				m, err := png.ParseColorMode(color)
				if err != nil {
					return err
				}
				opts.OutputMode = &m
			}

			c := a.codec()
			img, err := c.Decode(data, opts)
			if err != nil {
				return err
			}

			var out []byte
			switch format {
			case "raw":
				out = img.Pix
			case "png":
				out, err = c.Encode(img.Pix, img.Width, img.Height, img.Mode, &png.EncoderOptions{Info: img.Info})
			case "bmp", "tif", "tiff":
				m, cerr := img.ToImage()
				if cerr != nil {
					return cerr
				}
				var buf bytes.Buffer
				if format == "bmp" {
					err = bmp.Encode(&buf, m)
				} else {
					err = tiff.Encode(&buf, m, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
				}
				out = buf.Bytes()
			default:
				return fmt.Errorf("unknown output format %q (use png, bmp, tiff or raw)", format)
			}
			if err != nil {
				return err
			}

			path := outputPath(args[0], output, "."+format)
			if err := a.writeOutput(path, out); err != nil {
				return err
			}
			if path != "-" {
				fmt.Fprintf(a.stderr, "Decoded %s → %s (%dx%d %v)\n", args[0], path, img.Width, img.Height, img.Mode)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", `output path (default: <input>.raw, "-" for stdout)`)
	f.StringVar(&format, "format", "", "output format: png, bmp, tiff or raw (default: from the output extension)")
	f.StringVar(&color, "color", "rgba8", "color mode of raw output, e.g. rgba8, rgb16, grey8")
	f.BoolVar(&ignoreCRC, "ignore-crc", false, "accept chunks with bad CRCs")
	f.BoolVar(&ignoreAdler, "ignore-adler", false, "accept image data with a bad Adler-32")
	f.IntVar(&maxPixels, "max-pixels", 0, "reject images with more pixels (0: no limit)")
	return cmd
}
