// Package stamp runs a complete stamping job: an optional transcode to WAV
// followed by the bext insertion.
package stamp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cwbudde/bwf"
	"github.com/cwbudde/bwf/internal/transcode"
)

var (
	// ErrNoTimeReference is returned when a job names neither a timecode nor
	// a TimeReference.
	ErrNoTimeReference = errors.New("no timecode or time reference given")
	// ErrNoTranscoder is returned when a job asks for a transcode without a
	// transcoder.
	ErrNoTranscoder = errors.New("no transcoder configured")
)

// Job describes one stamping run.
type Job struct {
	Input  string
	Output string

	// Timecode is converted with Preset. TimeReference is used as given
	// when Timecode is nil.
	Timecode      *bwf.Timecode
	TimeReference *uint64
	Preset        bwf.Preset

	Bext   bwf.BextOptions
	Insert bwf.InsertOptions

	// Transcode, when set, converts Input to a WAV with these parameters
	// before stamping.
	Transcode  *transcode.Target
	Transcoder transcode.Transcoder

	Logger *slog.Logger
}

// Result reports what was written.
type Result struct {
	Output        string
	TimeReference uint64
	Timecode      *bwf.Timecode
}

func (j *Job) timeReference() (uint64, error) {
	if j.Timecode != nil {
		if err := j.Timecode.Validate(j.Preset.FrameRate); err != nil {
			return 0, err
		}

		tr, err := j.Preset.Encoder().TimeReference(*j.Timecode)
		if err != nil {
			return 0, fmt.Errorf("failed to convert %s with preset %s: %w", j.Timecode, j.Preset.Name, err)
		}

		return tr, nil
	}

	if j.TimeReference != nil {
		return *j.TimeReference, nil
	}

	return 0, ErrNoTimeReference
}

// Run executes the job. On failure Output is not created or modified and
// any intermediate file is removed.
func Run(ctx context.Context, job Job) (*Result, error) {
	log := job.Logger
	if log == nil {
		log = slog.Default()
	}

	timeRef, err := job.timeReference()
	if err != nil {
		return nil, err
	}

	bext, err := bwf.NewBroadcastExtension(timeRef, job.Bext)
	if err != nil {
		return nil, err
	}

	source := job.Input

	if job.Transcode != nil {
		if job.Transcoder == nil {
			return nil, ErrNoTranscoder
		}

		tmp, err := tempWav(job.Output)
		if err != nil {
			return nil, err
		}
		defer os.Remove(tmp)

		log.Info("transcoding",
			slog.String("input", job.Input),
			slog.Int("sample_rate", job.Transcode.SampleRate),
			slog.Int("channels", job.Transcode.Channels))

		if err := job.Transcoder.Transcode(ctx, job.Input, tmp, *job.Transcode); err != nil {
			return nil, fmt.Errorf("failed to transcode %s: %w", job.Input, err)
		}

		source = tmp
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := bwf.PatchFile(source, job.Output, bext, job.Insert); err != nil {
		return nil, err
	}

	log.Info("stamped",
		slog.String("output", job.Output),
		slog.Uint64("time_reference", timeRef),
		slog.String("preset", job.Preset.Name))

	return &Result{Output: job.Output, TimeReference: timeRef, Timecode: job.Timecode}, nil
}

// tempWav reserves an intermediate file in the directory of output.
func tempWav(output string) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(output), "."+filepath.Base(output)+".*.transcode.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create intermediate file: %w", err)
	}

	name := f.Name()

	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("failed to create intermediate file: %w", err)
	}

	return name, nil
}
