package bwf

import (
	"fmt"

	"github.com/go-audio/audio"
)

// FormatChunk returns a copy of the parsed fmt chunk, if available.
func (i *Info) FormatChunk() *FmtChunk {
	if i == nil || i.FmtChunk == nil {
		return nil
	}

	return i.FmtChunk.Clone()
}

// Bext returns a copy of the first bext chunk, if available.
func (i *Info) Bext() *BroadcastExtension {
	if i == nil {
		return nil
	}

	return i.BroadcastExtension.Clone()
}

// ChunkHeaders returns a copy of the chunk inventory.
func (i *Info) ChunkHeaders() []ChunkHeader {
	if i == nil {
		return nil
	}

	return cloneChunkHeaders(i.Chunks)
}

// Format returns the audio format described by the fmt chunk.
func (i *Info) Format() *audio.Format {
	if i == nil || i.FmtChunk == nil {
		return nil
	}

	return &audio.Format{
		NumChannels: int(i.FmtChunk.NumChannels),
		SampleRate:  int(i.FmtChunk.SampleRate),
	}
}

// Timecode decodes the bext TimeReference. Both a bext and a fmt chunk
// must be present. A zero d.SampleRate is replaced by the rate of the fmt
// chunk.
func (i *Info) Timecode(d Decoder) (Timecode, error) {
	if i == nil || i.BroadcastExtension == nil {
		return Timecode{}, ErrBextNotFound
	}

	if i.FmtChunk == nil {
		return Timecode{}, ErrFmtNotFound
	}

	if d.SampleRate == 0 {
		d.SampleRate = float64(i.FmtChunk.SampleRate)
	}

	tc, err := d.Timecode(i.BroadcastExtension.TimeReference)
	if err != nil {
		return Timecode{}, fmt.Errorf("failed to decode time reference %d: %w", i.BroadcastExtension.TimeReference, err)
	}

	return tc, nil
}

// ReadTimecode scans the file at path and decodes its TimeReference with
// the decoder of preset.
func ReadTimecode(path string, preset Preset) (Timecode, error) {
	info, err := ScanFile(path)
	if err != nil {
		return Timecode{}, err
	}

	tc, err := info.Timecode(preset.Decoder())
	if err != nil {
		return Timecode{}, fmt.Errorf("%s: %w", path, err)
	}

	return tc, nil
}
