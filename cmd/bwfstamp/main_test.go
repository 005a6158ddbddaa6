package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"

	"github.com/cwbudde/bwf"
	"github.com/cwbudde/bwf/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		config.EnvPreset, config.EnvPresetsFile, config.EnvOriginator,
		config.EnvLogLevel, config.EnvEnvironment, config.EnvFFmpeg, config.EnvFFprobe,
	} {
		t.Setenv(key, "")
	}
}

func writeWav(t *testing.T, path string) {
	t.Helper()

	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:2], 1)
	binary.LittleEndian.PutUint16(fmtChunk[2:4], 2)
	binary.LittleEndian.PutUint32(fmtChunk[4:8], 48000)
	binary.LittleEndian.PutUint32(fmtChunk[8:12], 48000*4)
	binary.LittleEndian.PutUint16(fmtChunk[12:14], 4)
	binary.LittleEndian.PutUint16(fmtChunk[14:16], 16)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	cw := bwf.NewChunkWriter(f)
	if err := cw.WriteHeader(); err != nil {
		t.Fatalf("write header: %v", err)
	}

	if err := cw.WriteChunk(bwf.CIDFmt, fmtChunk); err != nil {
		t.Fatalf("write fmt: %v", err)
	}

	if err := cw.WriteChunk(bwf.CIDData, make([]byte, 16)); err != nil {
		t.Fatalf("write data: %v", err)
	}

	if err := cw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRunRequiresPath(t *testing.T) {
	clearEnv(t)

	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"-tc", "01:00:00:00"}, &stdout, &stderr)
	if !errors.Is(err, errMissingPath) {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stderr.String(), "Usage: bwfstamp") {
		t.Fatalf("expected usage on stderr, got:\n%s", stderr.String())
	}
}

func TestRunTimecodeSources(t *testing.T) {
	clearEnv(t)

	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"in.wav"}, &stdout, &stderr)
	if !errors.Is(err, errNoSource) {
		t.Fatalf("expected errNoSource, got %v", err)
	}

	err = run(context.Background(), []string{"-tc", "01:00:00:00", "-timeref", "5", "in.wav"}, &stdout, &stderr)
	if !errors.Is(err, errManySources) {
		t.Fatalf("expected errManySources, got %v", err)
	}
}

func TestRunStampsTimecode(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	in := filepath.Join(dir, "take.wav")
	out := filepath.Join(dir, "take_bwf.wav")
	writeWav(t, in)

	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"-tc", "13:20:20:05", "-log-level", "error", in, out}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, stderr.String())
	}

	for _, want := range []string{
		"Stamped file available at " + out,
		"TimeReference: 2307276429",
		"Timecode: 13:20:20:05 (preset ntsc-film-frame)",
	} {
		if !strings.Contains(stdout.String(), want) {
			t.Fatalf("expected output to contain %q\nfull output:\n%s", want, stdout.String())
		}
	}

	info, err := bwf.ScanFile(out)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	bext := info.Bext()
	if bext == nil {
		t.Fatal("expected a bext chunk")
	}

	if bext.Description != "13:20:20:05" || bext.Originator != config.DefaultOriginator {
		t.Fatalf("description=%q originator=%q", bext.Description, bext.Originator)
	}
}

func TestRunInPlaceReplace(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvOriginator, "Conform")

	in := filepath.Join(t.TempDir(), "take.wav")
	writeWav(t, in)

	var stdout, stderr bytes.Buffer

	for _, timeRef := range []string{"1000", "2000"} {
		err := run(context.Background(), []string{"-timeref", timeRef, "-replace", "-preset", "pal", in}, &stdout, &stderr)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
	}

	info, err := bwf.ScanFile(in)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if info.BextCount != 1 {
		t.Fatalf("bext count = %d, want 1", info.BextCount)
	}

	if info.BroadcastExtension.TimeReference != 2000 || info.BroadcastExtension.Originator != "Conform" {
		t.Fatalf("bext = %+v", info.BroadcastExtension)
	}
}

func TestRunRejectsBadArguments(t *testing.T) {
	clearEnv(t)

	in := filepath.Join(t.TempDir(), "take.wav")
	writeWav(t, in)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{name: "bad timecode", args: []string{"-tc", "1:00:00", in}, want: bwf.ErrInvalidTimecode},
		{name: "unknown preset", args: []string{"-tc", "01:00:00:00", "-preset", "ntsc-drop", in}, want: bwf.ErrUnknownPreset},
		{name: "non ascii", args: []string{"-tc", "01:00:00:00", "-description", "Café", in}, want: bwf.ErrNonASCII},
		{name: "bad log level", args: []string{"-tc", "01:00:00:00", "-log-level", "loud", in}, want: config.ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer

			err := run(context.Background(), tt.args, &stdout, &stderr)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	info, err := bwf.ScanFile(in)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if info.BextCount != 0 {
		t.Fatal("failed runs must leave the input untouched")
	}
}

func TestRunLossyDescription(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	in := filepath.Join(dir, "take.wav")
	out := filepath.Join(dir, "out.wav")
	writeWav(t, in)

	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"-tc", "01:00:00:00", "-description", "Café", "-lossy", in, out}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	info, err := bwf.ScanFile(out)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if info.BroadcastExtension.Description != "Cafe" {
		t.Fatalf("description = %q", info.BroadcastExtension.Description)
	}
}

func TestRunTranscodesAIFFWithoutFFmpeg(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	t.Setenv(config.EnvFFmpeg, filepath.Join(dir, "no-ffmpeg"))

	in := filepath.Join(dir, "take.aif")

	f, err := os.Create(in)
	if err != nil {
		t.Fatal(err)
	}

	enc := aiff.NewEncoder(f, 48000, 24, 2)
	if err := enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 48000},
		SourceBitDepth: 24,
		Data:           []int{0, 0, 100, -100},
	}); err != nil {
		t.Fatalf("write aiff: %v", err)
	}

	if err := enc.Close(); err != nil {
		t.Fatalf("close aiff: %v", err)
	}

	f.Close()

	out := filepath.Join(dir, "take.wav")

	var stdout, stderr bytes.Buffer

	err = run(context.Background(), []string{"-transcode", "-tc", "10:00:00:00", "-preset", "pal", in, out}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, stderr.String())
	}

	info, err := bwf.ScanFile(out)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if info.BroadcastExtension.TimeReference != 1728000000 {
		t.Fatalf("time reference = %d", info.BroadcastExtension.TimeReference)
	}

	if info.FmtChunk.SampleRate != 48000 || info.FmtChunk.BitsPerSample != 24 {
		t.Fatalf("fmt = %+v", info.FmtChunk)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected the source and the output only, found %d entries", len(entries))
	}
}

// fakeFFmpeg installs a shell script as ffmpeg that records its arguments
// and copies a valid wav to the output path.
func fakeFFmpeg(t *testing.T, dir string) (argsFile string) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a POSIX shell")
	}

	src := filepath.Join(dir, "transcoded.wav")
	writeWav(t, src)

	argsFile = filepath.Join(dir, "ffmpeg.args")
	script := fmt.Sprintf("#!/bin/sh\necho \"$@\" > %q\nfor last; do :; done\ncp %q \"$last\"\n", argsFile, src)

	bin := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	t.Setenv(config.EnvFFmpeg, bin)

	return argsFile
}

func TestRunTranscodeRateFollowsPreset(t *testing.T) {
	tests := []struct {
		name string
		args []string
		rate string
	}{
		{"frame-based default", nil, "-ar 48048 "},
		{"seconds-based preset", []string{"-preset", "pal"}, "-ar 48000 "},
		{"explicit rate", []string{"-rate", "44100"}, "-ar 44100 "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			dir := t.TempDir()
			argsFile := fakeFFmpeg(t, dir)

			in := filepath.Join(dir, "take.mov")
			if err := os.WriteFile(in, []byte("not audio"), 0o644); err != nil {
				t.Fatal(err)
			}

			args := append([]string{"-transcode", "-tc", "10:00:00:00"}, tt.args...)
			args = append(args, in, filepath.Join(dir, "take.wav"))

			var stdout, stderr bytes.Buffer

			if err := run(context.Background(), args, &stdout, &stderr); err != nil {
				t.Fatalf("run failed: %v\n%s", err, stderr.String())
			}

			recorded, err := os.ReadFile(argsFile)
			if err != nil {
				t.Fatalf("ffmpeg was not called: %v", err)
			}

			if !strings.Contains(string(recorded), tt.rate) {
				t.Fatalf("ffmpeg args %q do not contain %q", recorded, tt.rate)
			}
		})
	}
}
