package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"

	"github.com/cwbudde/bwf"
)

// ErrUnsupportedInput is returned by the native converter for input it
// can't rewrap without resampling.
var ErrUnsupportedInput = errors.New("input can't be converted natively")

// AIFF rewraps uncompressed AIFF audio as PCM wav. It never resamples: the
// target must match the source once defaults are applied.
type AIFF struct{}

// Transcode converts input to a wav file at output.
func (AIFF) Transcode(ctx context.Context, input, output string, target Target) error {
	in, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", input, err)
	}
	defer in.Close()

	dec := aiff.NewDecoder(in)
	if !dec.IsValidFile() {
		return fmt.Errorf("%w: %s is not a valid aiff file", ErrUnsupportedInput, input)
	}

	if err := matchSource(dec, target); err != nil {
		return err
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", input, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return writeWav(output, buf, int(dec.BitDepth))
}

func matchSource(dec *aiff.Decoder, target Target) error {
	target = target.withDefaults()

	bits, ok := codecBits(target.Codec)

	switch {
	case !ok:
		return fmt.Errorf("%w: codec %s", ErrUnsupportedInput, target.Codec)
	case dec.SampleRate != target.SampleRate:
		return fmt.Errorf("%w: source rate %d Hz, target %d Hz", ErrUnsupportedInput, dec.SampleRate, target.SampleRate)
	case int(dec.NumChans) != target.Channels:
		return fmt.Errorf("%w: source has %d channels, target %d", ErrUnsupportedInput, dec.NumChans, target.Channels)
	case int(dec.BitDepth) != bits:
		return fmt.Errorf("%w: source is %d bit, target %d bit", ErrUnsupportedInput, dec.BitDepth, bits)
	}

	return nil
}

// codecBits maps an ffmpeg PCM codec name to its sample width.
func codecBits(codec string) (int, bool) {
	switch codec {
	case "pcm_u8":
		return 8, true
	case "pcm_s16le":
		return 16, true
	case "pcm_s24le":
		return 24, true
	case "pcm_s32le":
		return 32, true
	}

	return 0, false
}

func writeWav(path string, buf *audio.IntBuffer, bitDepth int) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	return bwf.WritePCM(out, buf, bitDepth)
}

// Auto rewraps AIFF input natively when no sample conversion is needed and
// hands everything else to FFmpeg.
type Auto struct {
	FFmpeg *FFmpeg
	Logger *slog.Logger
}

// Transcode picks a converter for input.
func (a *Auto) Transcode(ctx context.Context, input, output string, target Target) error {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if isAIFF(input) {
		err := AIFF{}.Transcode(ctx, input, output, target)
		if !errors.Is(err, ErrUnsupportedInput) {
			return err
		}

		logger.Debug("native aiff conversion not possible", slog.String("input", input), slog.String("reason", err.Error()))
	}

	if a.FFmpeg == nil {
		return fmt.Errorf("%w: ffmpeg is required to convert %s", ErrNotFound, input)
	}

	return a.FFmpeg.Transcode(ctx, input, output, target)
}

func isAIFF(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".aif", ".aiff", ".aifc":
	default:
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	var hdr [12]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		return false
	}

	form := string(hdr[8:12])

	return string(hdr[0:4]) == "FORM" && (form == "AIFF" || form == "AIFC")
}
