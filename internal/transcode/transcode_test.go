package transcode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/bwf"
	"github.com/cwbudde/bwf/internal/logger"
)

// fakeBinary writes an executable shell script standing in for ffmpeg or
// ffprobe.
func fakeBinary(t *testing.T, name, script string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))

	return path
}

func TestArgs(t *testing.T) {
	got := Args("in.mov", "out.wav", Target{})
	assert.Equal(t, []string{
		"-y", "-i", "in.mov", "-vn",
		"-ar", "48000", "-ac", "2", "-c:a", "pcm_s24le",
		"out.wav",
	}, got)

	got = Args("in.mov", "out.wav", Target{SampleRate: 96000, Channels: 6, Codec: "pcm_s16le"})
	assert.Equal(t, []string{"-ar", "96000", "-ac", "6", "-c:a", "pcm_s16le"}, got[4:10])
}

func TestParseProbeOutput(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   bwf.Timecode
		err    error
	}{
		{
			name:   "format tag",
			output: "[FORMAT]\nTAG:major_brand=qt\nTAG:timecode=10:00:00:00\n[/FORMAT]\n",
			want:   bwf.Timecode{Hours: 10},
		},
		{
			name:   "drop frame separator",
			output: "[STREAM]\nTAG:timecode=01:02:03;04\n[/STREAM]\n",
			want:   bwf.Timecode{Hours: 1, Minutes: 2, Seconds: 3, Frames: 4},
		},
		{
			name:   "first tag wins",
			output: "TAG:timecode=13:20:20:05\nTAG:timecode=00:00:00:00\n",
			want:   bwf.Timecode{Hours: 13, Minutes: 20, Seconds: 20, Frames: 5},
		},
		{
			name:   "none",
			output: "[FORMAT]\nTAG:encoder=Lavf\n[/FORMAT]\n",
			err:    ErrNoTimecode,
		},
		{
			name:   "garbage",
			output: "TAG:timecode=later\n",
			err:    bwf.ErrInvalidTimecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProbeOutput([]byte(tt.output))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewMissingBinary(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "no-ffmpeg"), "ffprobe", logger.Discard().Logger)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTranscode(t *testing.T) {
	ffmpeg := fakeBinary(t, "ffmpeg", `for last; do :; done
printf 'RIFF' > "$last"
`)

	f, err := New(ffmpeg, filepath.Join(t.TempDir(), "no-ffprobe"), logger.Discard().Logger)
	require.NoError(t, err)
	assert.Empty(t, f.FFprobePath)

	out := filepath.Join(t.TempDir(), "out.wav")
	require.NoError(t, f.Transcode(context.Background(), "in.mov", out, Target{}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data))

	_, err = f.ProbeTimecode(context.Background(), "in.mov")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTranscodeFailure(t *testing.T) {
	ffmpeg := fakeBinary(t, "ffmpeg", `echo "in.mov: Invalid data found when processing input" >&2
exit 1
`)

	f, err := New(ffmpeg, "", logger.Discard().Logger)
	require.NoError(t, err)

	err = f.Transcode(context.Background(), "in.mov", filepath.Join(t.TempDir(), "out.wav"), Target{})

	var perr *ProcessError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "ffmpeg", perr.Command)
	assert.Equal(t, 1, perr.ExitCode)
	assert.Contains(t, perr.Stderr, "Invalid data found")
	assert.Contains(t, err.Error(), "exit code 1")
}

func TestTranscodeCancelled(t *testing.T) {
	ffmpeg := fakeBinary(t, "ffmpeg", "sleep 10\n")

	f, err := New(ffmpeg, "", logger.Discard().Logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = f.Transcode(ctx, "in.mov", filepath.Join(t.TempDir(), "out.wav"), Target{})
	require.Error(t, err)
}

func TestProbeTimecode(t *testing.T) {
	ffprobe := fakeBinary(t, "ffprobe", `case "$*" in
*"-show_entries format_tags:stream_tags"*) ;;
*) echo "unexpected arguments: $*" >&2; exit 2 ;;
esac
echo "[FORMAT]"
echo "TAG:timecode=13:20:20:05"
echo "[/FORMAT]"
`)
	ffmpeg := fakeBinary(t, "ffmpeg", "exit 0\n")

	f, err := New(ffmpeg, ffprobe, logger.Discard().Logger)
	require.NoError(t, err)

	tc, err := f.ProbeTimecode(context.Background(), "take.mov")
	require.NoError(t, err)
	assert.Equal(t, "13:20:20:05", tc.String())
}

func TestProbeTimecodeMissing(t *testing.T) {
	ffprobe := fakeBinary(t, "ffprobe", "echo '[FORMAT]'\necho '[/FORMAT]'\n")
	ffmpeg := fakeBinary(t, "ffmpeg", "exit 0\n")

	f, err := New(ffmpeg, ffprobe, logger.Discard().Logger)
	require.NoError(t, err)

	_, err = f.ProbeTimecode(context.Background(), "take.mov")
	assert.ErrorIs(t, err, ErrNoTimecode)
	assert.True(t, strings.Contains(err.Error(), "take.mov"))
}
