package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/deepteams/png/internal/container"
)

var intentNames = [...]string{"perceptual", "relative colorimetric", "saturation", "absolute colorimetric"}

func newInfoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <input.png>",
		Short: "Display header, metadata and chunk list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			// CRC mismatches are reported per chunk rather than failing.
			f, err := container.Parse(data, container.ParseOptions{IgnoreCRC: true, KeepUnknown: true})
			if err != nil {
				return err
			}
			printInfo(a.stdout, args[0], len(data), f)
			return nil
		},
	}
}

func printInfo(w io.Writer, name string, size int, f *container.File) {
	h := f.Header
	fmt.Fprintf(w, "File:       %s (%d bytes)\n", name, size)
	fmt.Fprintf(w, "Dimensions: %dx%d\n", h.Width, h.Height)
	fmt.Fprintf(w, "Color:      %v\n", f.Mode())
	interlace := "none"
	if h.Interlaced() {
		interlace = "adam7"
	}
	fmt.Fprintf(w, "Interlace:  %s\n", interlace)
	if len(f.Palette) > 0 {
		fmt.Fprintf(w, "Palette:    %d entries\n", len(f.Palette))
	}
	if k := f.Key; k != nil {
		fmt.Fprintf(w, "Key:        %d %d %d\n", k.R, k.G, k.B)
	}

	info := &f.Info
	if bg := info.Background; bg != nil {
		fmt.Fprintf(w, "Background: %d %d %d\n", bg.R, bg.G, bg.B)
	}
	if p := info.Phys; p != nil {
		unit := "unknown unit"
		if p.Unit == container.UnitMeter {
			unit = "per meter"
		}
		fmt.Fprintf(w, "Physical:   %d x %d %s\n", p.X, p.Y, unit)
	}
	if t := info.Time; t != nil {
		fmt.Fprintf(w, "Modified:   %s\n", t.Format(time.RFC3339))
	}
	if g := info.Gamma; g != nil {
		fmt.Fprintf(w, "Gamma:      %.5f\n", float64(*g)/100000)
	}
	if c := info.Chromaticities; c != nil {
		fmt.Fprintf(w, "Chroma:     white %d,%d red %d,%d green %d,%d blue %d,%d\n",
			c.WhiteX, c.WhiteY, c.RedX, c.RedY, c.GreenX, c.GreenY, c.BlueX, c.BlueY)
	}
	if ri := info.RenderingIntent; ri != nil && int(*ri) < len(intentNames) {
		fmt.Fprintf(w, "sRGB:       %s\n", intentNames[*ri])
	}
	if p := info.ICCProfile; p != nil {
		fmt.Fprintf(w, "ICC:        %s (%d bytes)\n", p.Name, len(p.Profile))
	}
	if s := info.SignificantBits; s != nil {
		fmt.Fprintf(w, "sBIT:       %v\n", s[:])
	}
	for _, t := range info.Texts {
		fmt.Fprintf(w, "Text:       %s = %q\n", t.Keyword, t.Text)
	}
	for _, t := range info.ITexts {
		fmt.Fprintf(w, "Text:       %s [%s] = %q\n", t.Keyword, t.Language, t.Text)
	}

	fmt.Fprintf(w, "Chunks:\n")
	for _, e := range f.Entries {
		crc := "ok"
		if !e.CRCOK {
			crc = "BAD"
		}
		fmt.Fprintf(w, "  %-4s offset %8d length %8d crc %s\n", e.Type, e.Offset, e.Length, crc)
	}
}
