package bwf

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-audio/riff"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE

	fmtBaseLen = 16
)

// FmtChunk stores the parsed WAV fmt chunk. Only the fields needed to
// describe the audio are decoded; the rest stays in ExtraData.
type FmtChunk struct {
	FormatTag      uint16
	NumChannels    uint16
	SampleRate     uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	ExtraData      []byte
	Extensible     *FmtExtensible
}

// FmtExtensible stores WAVE_FORMAT_EXTENSIBLE extra fields.
type FmtExtensible struct {
	ValidBitsPerSample uint16
	ChannelMask        uint32
	SubFormat          [16]byte
}

func (f *FmtChunk) Clone() *FmtChunk {
	if f == nil {
		return nil
	}

	out := *f

	out.ExtraData = append([]byte(nil), f.ExtraData...)
	if f.Extensible != nil {
		ext := *f.Extensible
		out.Extensible = &ext
	}

	return &out
}

// EffectiveFormatTag resolves the format tag of an extensible chunk to the
// tag carried by its sub format.
func (f *FmtChunk) EffectiveFormatTag() uint16 {
	if f == nil {
		return 0
	}

	if f.FormatTag == wavFormatExtensible && f.Extensible != nil {
		return binary.LittleEndian.Uint16(f.Extensible.SubFormat[:2])
	}

	return f.FormatTag
}

// NewPCMFmtChunk describes integer PCM audio.
func NewPCMFmtChunk(sampleRate, channels, bitDepth int) *FmtChunk {
	blockAlign := channels * bytesPerSample(bitDepth)

	return &FmtChunk{
		FormatTag:      wavFormatPCM,
		NumChannels:    uint16(channels),
		SampleRate:     uint32(sampleRate),
		AvgBytesPerSec: uint32(sampleRate * blockAlign),
		BlockAlign:     uint16(blockAlign),
		BitsPerSample:  uint16(bitDepth),
	}
}

// MarshalBinary encodes the fmt payload. An extensible chunk carries its
// 22 byte extension; other chunks keep ExtraData as the extension.
func (f *FmtChunk) MarshalBinary() ([]byte, error) {
	if f == nil {
		return nil, errNilChunk
	}

	out := make([]byte, 0, fmtBaseLen+2+22)
	out = binary.LittleEndian.AppendUint16(out, f.FormatTag)
	out = binary.LittleEndian.AppendUint16(out, f.NumChannels)
	out = binary.LittleEndian.AppendUint32(out, f.SampleRate)
	out = binary.LittleEndian.AppendUint32(out, f.AvgBytesPerSec)
	out = binary.LittleEndian.AppendUint16(out, f.BlockAlign)
	out = binary.LittleEndian.AppendUint16(out, f.BitsPerSample)

	switch {
	case f.FormatTag == wavFormatExtensible && f.Extensible != nil:
		out = binary.LittleEndian.AppendUint16(out, 22)
		out = binary.LittleEndian.AppendUint16(out, f.Extensible.ValidBitsPerSample)
		out = binary.LittleEndian.AppendUint32(out, f.Extensible.ChannelMask)
		out = append(out, f.Extensible.SubFormat[:]...)
	case len(f.ExtraData) > 0:
		if len(f.ExtraData) > math.MaxUint16 {
			return nil, fmt.Errorf("%w: fmt extension of %d bytes", ErrRange, len(f.ExtraData))
		}

		out = binary.LittleEndian.AppendUint16(out, uint16(len(f.ExtraData)))
		out = append(out, f.ExtraData...)
	}

	return out, nil
}

// DecodeFmtChunk reads the fmt payload of chunk.
func DecodeFmtChunk(chunk *riff.Chunk) (*FmtChunk, error) {
	if chunk == nil {
		return nil, errNilChunk
	}

	if chunk.Size < fmtBaseLen {
		return nil, fmt.Errorf("%w: fmt chunk of %d bytes", ErrMalformedContainer, chunk.Size)
	}

	fmtChunk := &FmtChunk{}

	fields := []struct {
		name string
		dst  any
	}{
		{"wav format", &fmtChunk.FormatTag},
		{"channels", &fmtChunk.NumChannels},
		{"sample rate", &fmtChunk.SampleRate},
		{"avg bytes/sec", &fmtChunk.AvgBytesPerSec},
		{"block align", &fmtChunk.BlockAlign},
		{"bit depth", &fmtChunk.BitsPerSample},
	}

	for _, f := range fields {
		if err := chunk.ReadLE(f.dst); err != nil {
			return nil, fmt.Errorf("%w: failed to read %s: %w", ErrTruncatedChunk, f.name, err)
		}
	}

	if chunk.Size < fmtBaseLen+2 {
		return fmtChunk, nil
	}

	var extraSize uint16

	err := chunk.ReadLE(&extraSize)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read fmt extension size: %w", ErrTruncatedChunk, err)
	}

	// some writers overstate the extension size; keep what the chunk holds
	extraLen := min(int(extraSize), chunk.Size-fmtBaseLen-2)

	fmtChunk.ExtraData = make([]byte, extraLen)
	if extraLen > 0 {
		err := chunk.ReadLE(fmtChunk.ExtraData)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read fmt extension data: %w", ErrTruncatedChunk, err)
		}
	}

	if fmtChunk.FormatTag == wavFormatExtensible && extraLen >= 22 {
		ext := &FmtExtensible{}
		ext.ValidBitsPerSample = binary.LittleEndian.Uint16(fmtChunk.ExtraData[0:2])
		ext.ChannelMask = binary.LittleEndian.Uint32(fmtChunk.ExtraData[2:6])
		copy(ext.SubFormat[:], fmtChunk.ExtraData[6:22])
		fmtChunk.Extensible = ext
	}

	return fmtChunk, nil
}
