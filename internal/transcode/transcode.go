// Package transcode converts media to PCM WAV and probes source timecode by
// running ffmpeg and ffprobe.
package transcode

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/cwbudde/bwf"
)

const (
	// DefaultSampleRate is used when a Target leaves SampleRate unset.
	DefaultSampleRate = 48000
	// DefaultChannels is the output channel count.
	DefaultChannels = 2
	// DefaultCodec writes 24-bit little endian PCM.
	DefaultCodec = "pcm_s24le"

	maxStderr = 4096
)

var (
	// ErrNoTimecode is returned when the probed file carries no timecode tag.
	ErrNoTimecode = errors.New("no timecode found")
	// ErrNotFound is returned when a binary can't be located.
	ErrNotFound = errors.New("binary not found")
)

// Target describes the WAV to produce.
type Target struct {
	SampleRate int
	Channels   int
	Codec      string
}

func (t Target) withDefaults() Target {
	if t.SampleRate == 0 {
		t.SampleRate = DefaultSampleRate
	}

	if t.Channels == 0 {
		t.Channels = DefaultChannels
	}

	if t.Codec == "" {
		t.Codec = DefaultCodec
	}

	return t
}

// Transcoder converts input to a WAV file at output.
type Transcoder interface {
	Transcode(ctx context.Context, input, output string, target Target) error
}

// Prober reads the start timecode of a media file.
type Prober interface {
	ProbeTimecode(ctx context.Context, path string) (bwf.Timecode, error)
}

// ProcessError reports a failed external process with the tail of its
// diagnostics.
type ProcessError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("%s failed (exit code %d)", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}

	return msg
}

func (e *ProcessError) Unwrap() error { return e.Err }

// FFmpeg runs the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	FFmpegPath  string
	FFprobePath string
	Logger      *slog.Logger
}

// New resolves both binaries on PATH. A name containing a path separator
// is used as given.
func New(ffmpeg, ffprobe string, logger *slog.Logger) (*FFmpeg, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ffmpegPath, err := exec.LookPath(ffmpeg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, ffmpeg, err)
	}

	f := &FFmpeg{FFmpegPath: ffmpegPath, Logger: logger}

	// ffprobe is only needed for timecode probing
	if ffprobePath, err := exec.LookPath(ffprobe); err == nil {
		f.FFprobePath = ffprobePath
	} else {
		logger.Debug("ffprobe not found, timecode probing disabled", slog.String("ffprobe", ffprobe))
	}

	return f, nil
}

func (f *FFmpeg) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}

	return f.Logger
}

// Args returns the ffmpeg arguments converting input to target.
func Args(input, output string, target Target) []string {
	target = target.withDefaults()

	return []string{
		"-y",
		"-i", input,
		"-vn",
		"-ar", strconv.Itoa(target.SampleRate),
		"-ac", strconv.Itoa(target.Channels),
		"-c:a", target.Codec,
		output,
	}
}

// Transcode runs ffmpeg. A non-zero exit returns a *ProcessError carrying
// the end of ffmpeg's stderr.
func (f *FFmpeg) Transcode(ctx context.Context, input, output string, target Target) error {
	args := Args(input, output, target)

	f.logger().Debug("running ffmpeg", slog.String("input", input), slog.String("output", output), slog.Any("args", args))

	cmd := exec.CommandContext(ctx, f.FFmpegPath, args...) //nolint:gosec // path resolved by exec.LookPath

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return processError("ffmpeg", err, stderr.Bytes())
	}

	return nil
}

// ProbeTimecode runs ffprobe on path and parses the first timecode tag of
// the container or its streams.
func (f *FFmpeg) ProbeTimecode(ctx context.Context, path string) (bwf.Timecode, error) {
	if f.FFprobePath == "" {
		return bwf.Timecode{}, fmt.Errorf("%w: ffprobe", ErrNotFound)
	}

	cmd := exec.CommandContext(ctx, f.FFprobePath, //nolint:gosec // path resolved by exec.LookPath
		"-v", "quiet",
		"-show_entries", "format_tags:stream_tags",
		path,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return bwf.Timecode{}, processError("ffprobe", err, stderr.Bytes())
	}

	tc, err := ParseProbeOutput(output)
	if err != nil {
		return bwf.Timecode{}, fmt.Errorf("%s: %w", path, err)
	}

	f.logger().Debug("probed timecode", slog.String("path", path), slog.String("timecode", tc.String()))

	return tc, nil
}

// ParseProbeOutput finds the first "timecode=" line of ffprobe output.
func ParseProbeOutput(output []byte) (bwf.Timecode, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))

	for scanner.Scan() {
		line := scanner.Text()

		_, value, ok := strings.Cut(line, "timecode=")
		if !ok {
			continue
		}

		return bwf.ParseTimecode(strings.TrimSpace(value))
	}

	if err := scanner.Err(); err != nil {
		return bwf.Timecode{}, fmt.Errorf("failed to read ffprobe output: %w", err)
	}

	return bwf.Timecode{}, ErrNoTimecode
}

func processError(command string, err error, stderr []byte) error {
	perr := &ProcessError{Command: command, ExitCode: -1, Err: err}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		perr.ExitCode = exitErr.ExitCode()
	}

	stderr = bytes.TrimSpace(stderr)
	if len(stderr) > maxStderr {
		stderr = stderr[len(stderr)-maxStderr:]
	}

	perr.Stderr = string(stderr)

	return perr
}
