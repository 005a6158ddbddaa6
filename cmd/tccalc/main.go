// This tool converts between SMPTE timecode and bext TimeReference values.
//
//	tccalc [flags] HH:MM:SS:FF
//	tccalc [flags] -timeref samples
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cwbudde/bwf"
	"github.com/cwbudde/bwf/internal/config"
)

var (
	errMissingTimecode = errors.New("missing timecode argument")
	errVerifyMismatch  = errors.New("decoded timecode does not match")
)

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	if err == nil {
		return
	}

	if errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	}

	fmt.Fprintln(os.Stderr, "tccalc:", err)
	os.Exit(1)
}

func run(args []string, out, stderr io.Writer) error {
	fs := flag.NewFlagSet("tccalc", flag.ContinueOnError)
	fs.SetOutput(stderr)

	shared := config.Register(fs)

	var (
		flagVerify     = fs.Bool("verify", false, "decode the result back to timecode")
		flagTimeRef    = fs.String("timeref", "", "decode this TimeReference instead of encoding a timecode")
		flagFrameRate  = fs.Float64("frame-rate", 0, "override the preset frame rate")
		flagMultiplier = fs.Float64("multiplier", 0, "override the preset samples per frame")
		flagSampleRate = fs.Float64("sample-rate", 0, "override the preset sample rate")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := shared.Resolve()
	if err != nil {
		return err
	}

	preset, err := cfg.Preset()
	if err != nil {
		return err
	}

	if *flagFrameRate != 0 {
		preset.FrameRate = *flagFrameRate
	}

	if *flagMultiplier != 0 {
		preset.SamplesPerFrame = *flagMultiplier
	}

	if *flagSampleRate != 0 {
		preset.SampleRate = *flagSampleRate
	}

	if err := preset.Validate(); err != nil {
		return err
	}

	if *flagTimeRef != "" {
		timeRef, err := strconv.ParseUint(*flagTimeRef, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid -timeref %q: %w", *flagTimeRef, err)
		}

		tc, err := preset.Decoder().Timecode(timeRef)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "TimeReference: %d @ %v Hz\n", timeRef, preset.SampleRate)
		fmt.Fprintf(out, "Timecode: %s (%s, %s)\n", tc.Format(preset.DropFrame), preset.Name, preset.Rounding)

		return nil
	}

	if fs.NArg() < 1 {
		return errMissingTimecode
	}

	tc, err := bwf.ParseTimecode(fs.Arg(0))
	if err != nil {
		return err
	}

	if err := tc.Validate(preset.FrameRate); err != nil {
		return err
	}

	timeRef, err := preset.Encoder().TimeReference(tc)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Timecode: %s @ %v fps (%s, %s)\n", tc.Format(preset.DropFrame), preset.FrameRate, preset.Name, preset.Strategy)
	fmt.Fprintf(out, "TimeReference: %d\n", timeRef)

	if !*flagVerify {
		return nil
	}

	decoded, err := preset.Decoder().Timecode(timeRef)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Verify: %s @ %v Hz (%s)\n", decoded.Format(preset.DropFrame), preset.SampleRate, preset.Rounding)

	if decoded != tc {
		return fmt.Errorf("%w: %s decodes to %s", errVerifyMismatch, tc, decoded)
	}

	return nil
}
