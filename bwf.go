package bwf

import (
	"bytes"
	"errors"
)

var (
	// ErrMalformedContainer indicates a stream that is not a well-formed RIFF/WAVE file.
	ErrMalformedContainer = errors.New("malformed RIFF/WAVE container")
	// ErrTruncatedChunk is returned when a chunk payload ends before its declared length.
	ErrTruncatedChunk = subError(ErrMalformedContainer, "truncated chunk")
	// ErrSizeMismatch is returned when the declared RIFF size disagrees with the stream.
	ErrSizeMismatch = subError(ErrMalformedContainer, "RIFF size inconsistent with stream length")

	// ErrMalformedBext indicates a bext payload shorter than the fixed 602 byte region.
	ErrMalformedBext = errors.New("malformed bext chunk")

	// ErrChunkNotFound indicates that a chunk required by a read operation is absent.
	ErrChunkNotFound = errors.New("chunk not present")
	// ErrBextNotFound is returned when a file carries no bext chunk.
	ErrBextNotFound = subError(ErrChunkNotFound, "bext")
	// ErrFmtNotFound is returned when a file carries no fmt chunk.
	ErrFmtNotFound = subError(ErrChunkNotFound, "fmt")
	// ErrDataNotFound is returned when a file carries no data chunk.
	ErrDataNotFound = subError(ErrChunkNotFound, "data")

	// ErrNonASCII is returned when metadata text can't be stored in an ASCII field.
	ErrNonASCII = errors.New("text is not ASCII")
	// ErrRange reports a numeric value outside of what a field or formula can hold.
	ErrRange = errors.New("value out of range")
	// ErrInvalidTimecode is returned for timecode text that can't be parsed.
	ErrInvalidTimecode = errors.New("invalid timecode")
	// ErrUnknownPreset is returned when a preset name can't be resolved.
	ErrUnknownPreset = errors.New("unknown preset")
	// ErrInvalidPreset is returned when a preset fails validation.
	ErrInvalidPreset = errors.New("invalid preset")

	errNilBext  = errors.New("nil bext record")
	errNilChunk = errors.New("nil chunk")
)

// wrappedError lets a sentinel carry its own text while matching its parent with errors.Is.
type wrappedError struct {
	msg    string
	parent error
}

func (e *wrappedError) Error() string { return e.parent.Error() + ": " + e.msg }

func (e *wrappedError) Unwrap() error { return e.parent }

func subError(parent error, msg string) error {
	return &wrappedError{msg: msg, parent: parent}
}

// trimField drops the NUL padding and trailing spaces of a fixed-width text field.
func trimField(b []byte) []byte {
	return bytes.TrimRight(b, "\x00 ")
}

// fieldString decodes a fixed-width field as tolerant ASCII.
func fieldString(b []byte) string {
	return decodeASCII(trimField(b))
}
