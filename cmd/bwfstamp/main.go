// This tool stamps a wav file with a bext chunk whose TimeReference places
// the audio at a given start timecode. Other media can be converted to wav
// with ffmpeg first.
//
//	bwfstamp [flags] input [output]
//
// Without output the input file is rewritten in place.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"

	"github.com/cwbudde/bwf"
	"github.com/cwbudde/bwf/internal/config"
	"github.com/cwbudde/bwf/internal/stamp"
	"github.com/cwbudde/bwf/internal/transcode"
)

var (
	errMissingPath = errors.New("missing path argument")
	errNoSource    = errors.New("one of -tc, -probe or -timeref is required")
	errManySources = errors.New("-tc, -probe and -timeref are mutually exclusive")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)

	stop()

	switch {
	case err == nil:
		return
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	}

	fmt.Fprintln(os.Stderr, "bwfstamp:", err)
	os.Exit(1)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("bwfstamp", flag.ContinueOnError)
	fs.SetOutput(stderr)

	shared := config.Register(fs)

	var (
		flagTimecode    = fs.String("tc", "", "start timecode HH:MM:SS:FF")
		flagProbe       = fs.Bool("probe", false, "read the start timecode from the input with ffprobe")
		flagTimeRef     = fs.String("timeref", "", "TimeReference in samples, written as given")
		flagDescription = fs.String("description", "", "bext description (default: the timecode)")
		flagReplace     = fs.Bool("replace", false, "drop existing bext chunks instead of keeping them")
		flagLossy       = fs.Bool("lossy", false, "strip non-ASCII characters from text fields instead of failing")
		flagTranscode   = fs.Bool("transcode", false, "convert the input to PCM wav first (ffmpeg, or natively for matching aiff)")
		flagRate        = fs.Int("rate", 0, "sample rate of the transcoded wav (default: the preset's sample rate)")
		flagChannels    = fs.Int("channels", transcode.DefaultChannels, "channel count of the transcoded wav")
	)

	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: bwfstamp [flags] input [output]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return errMissingPath
	}

	input, output := fs.Arg(0), fs.Arg(0)
	if fs.NArg() > 1 {
		output = fs.Arg(1)
	}

	sources := 0

	for _, set := range []bool{*flagTimecode != "", *flagProbe, *flagTimeRef != ""} {
		if set {
			sources++
		}
	}

	switch {
	case sources == 0:
		return errNoSource
	case sources > 1:
		return errManySources
	}

	cfg, err := shared.Resolve()
	if err != nil {
		return err
	}

	log := cfg.Logger(stderr)

	preset, err := cfg.Preset()
	if err != nil {
		return err
	}

	job := stamp.Job{
		Input:  input,
		Output: output,
		Preset: preset,
		Insert: bwf.InsertOptions{ReplaceExisting: *flagReplace},
		Logger: log.Logger,
	}

	var ff *transcode.FFmpeg

	if *flagProbe || *flagTranscode {
		ff, err = transcode.New(cfg.FFmpeg, cfg.FFprobe, log.Logger)

		switch {
		case err == nil:
		case *flagProbe:
			return err
		default:
			// aiff input that already matches the target needs no ffmpeg
			log.WithError(err).Warn("ffmpeg not available")
		}
	}

	switch {
	case *flagTimecode != "":
		tc, err := bwf.ParseTimecode(*flagTimecode)
		if err != nil {
			return err
		}

		job.Timecode = &tc
	case *flagProbe:
		tc, err := ff.ProbeTimecode(ctx, input)
		if err != nil {
			return err
		}

		log.Info("probed start timecode", "timecode", tc.String())

		job.Timecode = &tc
	default:
		timeRef, err := strconv.ParseUint(*flagTimeRef, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid -timeref %q: %w", *flagTimeRef, err)
		}

		job.TimeReference = &timeRef
	}

	description := *flagDescription
	if description == "" && job.Timecode != nil {
		description = job.Timecode.Format(preset.DropFrame)
	}

	job.Bext = bwf.BextOptions{
		Description: description,
		Originator:  cfg.Originator,
		Lossy:       *flagLossy,
	}

	if *flagTranscode {
		rate := *flagRate
		if rate == 0 {
			rate = int(math.Round(preset.SampleRate))
		}

		job.Transcode = &transcode.Target{SampleRate: rate, Channels: *flagChannels}
		job.Transcoder = &transcode.Auto{FFmpeg: ff, Logger: log.Logger}
	}

	res, err := stamp.Run(ctx, job)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, "Stamped file available at", res.Output)
	fmt.Fprintf(stdout, "TimeReference: %d\n", res.TimeReference)

	if res.Timecode != nil {
		fmt.Fprintf(stdout, "Timecode: %s (preset %s)\n", res.Timecode.Format(preset.DropFrame), preset.Name)
	}

	return nil
}
