// This tool prints the bext chunk, format and chunk layout of a wav file and
// decodes its TimeReference back to a timecode.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/cwbudde/bwf"
	"github.com/cwbudde/bwf/internal/config"
)

const missingPathMessage = "You must pass the path of the file to inspect"

var (
	errMissingPath = errors.New("missing path argument")
	errMismatch    = errors.New("timecode mismatch")
)

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, errMissingPath):
		fmt.Println(missingPathMessage)
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "bwfinfo:", err)
	}

	os.Exit(1)
}

func run(args []string, out, stderr io.Writer) error {
	fs := flag.NewFlagSet("bwfinfo", flag.ContinueOnError)
	fs.SetOutput(stderr)

	shared := config.Register(fs)

	var (
		flagExpected = fs.String("expected", "", "fail unless the decoded timecode equals this HH:MM:SS:FF")
		flagFileRate = fs.Bool("file-rate", false, "decode with the sample rate of the fmt chunk instead of the preset's")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return errMissingPath
	}

	cfg, err := shared.Resolve()
	if err != nil {
		return err
	}

	preset, err := cfg.Preset()
	if err != nil {
		return err
	}

	path := fs.Arg(0)

	info, err := bwf.ScanFile(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "File: %s\n", path)
	fmt.Fprintf(out, "RIFF size: %d\n", info.RIFFSize)

	if fmtChunk := info.FormatChunk(); fmtChunk != nil {
		fmt.Fprintf(out, "Format: %s\n", formatName(fmtChunk))
	}

	if format := info.Format(); format != nil {
		fmt.Fprintf(out, "Sample rate: %d Hz\n", format.SampleRate)
		fmt.Fprintf(out, "Channels: %d\n", format.NumChannels)
		fmt.Fprintf(out, "Bits per sample: %d\n", info.FmtChunk.BitsPerSample)
	}

	if dur, err := info.Duration(); err == nil {
		fmt.Fprintf(out, "Duration: %s\n", dur)
	}

	fmt.Fprintln(out, "Chunks:")

	for i, h := range info.ChunkHeaders() {
		fmt.Fprintf(out, "\tchunk [%d]:\t%s\n", i, h)
	}

	bext := info.Bext()
	if bext == nil {
		fmt.Fprintln(out, "No bext chunk present")
		return nil
	}

	if info.BextCount > 1 {
		fmt.Fprintf(out, "Warning: %d bext chunks, showing the first\n", info.BextCount)
	}

	fmt.Fprintf(out, "Description: %s\n", bext.Description)
	fmt.Fprintf(out, "Originator: %s\n", bext.Originator)
	fmt.Fprintf(out, "OriginatorReference: %s\n", bext.OriginatorReference)
	fmt.Fprintf(out, "OriginationDate: %s\n", bext.OriginationDate)
	fmt.Fprintf(out, "OriginationTime: %s\n", bext.OriginationTime)
	fmt.Fprintf(out, "TimeReference: %d\n", bext.TimeReference)
	fmt.Fprintf(out, "Version: %d\n", bext.Version)

	if bext.Loudness != nil {
		fmt.Fprintf(out, "Loudness: %+v\n", *bext.Loudness)
	}

	if bext.CodingHistory != "" {
		fmt.Fprintf(out, "CodingHistory: %s\n", bext.CodingHistory)
	}

	dec := preset.Decoder()
	if *flagFileRate {
		dec.SampleRate = 0
	}

	tc, err := info.Timecode(dec)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Timecode: %s (preset %s)\n", tc.Format(preset.DropFrame), preset.Name)

	if *flagExpected == "" {
		return nil
	}

	want, err := bwf.ParseTimecode(*flagExpected)
	if err != nil {
		return err
	}

	if tc != want {
		return fmt.Errorf("%w: expected %s, decoded %s", errMismatch, want, tc)
	}

	fmt.Fprintln(out, "Expected timecode matches")

	return nil
}

// formatName names the sample encoding of f, resolving extensible chunks to
// their sub format.
func formatName(f *bwf.FmtChunk) string {
	var name string

	switch tag := f.EffectiveFormatTag(); tag {
	case 1:
		name = "PCM"
	case 3:
		name = "IEEE float"
	case 6:
		name = "A-law"
	case 7:
		name = "mu-law"
	default:
		name = fmt.Sprintf("0x%04X", tag)
	}

	if f.FormatTag == 0xFFFE {
		name += " (extensible)"
	}

	return name
}
