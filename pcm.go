package bwf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
)

var (
	errNilBuffer               = errors.New("can't write a nil buffer")
	errUnsupportedFrameBitSize = errors.New("can't add frames of bit size")
)

func bytesPerSample(bitDepth int) int {
	return (bitDepth + 7) / 8
}

// EncodePCM lays interleaved samples out as little endian wav PCM. 8 bit
// wav is unsigned.
func EncodePCM(samples []int, bitDepth int) ([]byte, error) {
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d", errUnsupportedFrameBitSize, bitDepth)
	}

	out := make([]byte, 0, len(samples)*bytesPerSample(bitDepth))

	for _, v := range samples {
		switch bitDepth {
		case 8:
			out = append(out, byte(v+128))
		case 16:
			out = binary.LittleEndian.AppendUint16(out, uint16(int16(v)))
		case 24:
			out = append(out, audio.Int32toInt24LEBytes(int32(v))...)
		case 32:
			out = binary.LittleEndian.AppendUint32(out, uint32(int32(v)))
		}
	}

	return out, nil
}

// WritePCM writes buf as a complete PCM wav file (RIFF header, fmt and
// data) to w.
func WritePCM(w io.WriteSeeker, buf *audio.IntBuffer, bitDepth int) error {
	if buf == nil || buf.Format == nil {
		return errNilBuffer
	}

	data, err := EncodePCM(buf.Data, bitDepth)
	if err != nil {
		return err
	}

	fmtPayload, err := NewPCMFmtChunk(buf.Format.SampleRate, buf.Format.NumChannels, bitDepth).MarshalBinary()
	if err != nil {
		return err
	}

	cw := NewChunkWriter(w)
	if err := cw.WriteHeader(); err != nil {
		return err
	}

	if err := cw.WriteChunk(CIDFmt, fmtPayload); err != nil {
		return err
	}

	if err := cw.WriteChunk(CIDData, data); err != nil {
		return err
	}

	return cw.Close()
}
