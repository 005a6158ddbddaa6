package bwf

import (
	"fmt"

	"github.com/go-audio/riff"
)

var (
	// CIDBext is the chunk ID for the broadcast extension chunk.
	CIDBext = [4]byte{'b', 'e', 'x', 't'}
	// CIDFmt is the chunk ID for the fmt chunk.
	CIDFmt = riff.FmtID
	// CIDData is the chunk ID for the data chunk.
	CIDData = riff.DataFormatID
)

const (
	chunkHeaderLen = 8
	riffHeaderLen  = 12
)

// ChunkHeader locates a chunk inside a RIFF stream.
type ChunkHeader struct {
	ID [4]byte
	// Size is the payload length, without the pad byte.
	Size uint32
	// Offset is the position of the chunk ID from the start of the stream.
	Offset int64
}

// Padded reports whether the payload is followed by a pad byte.
func (h ChunkHeader) Padded() bool {
	return h.Size%2 == 1
}

// StoredLen is the number of bytes the chunk occupies in the stream.
func (h ChunkHeader) StoredLen() int64 {
	n := int64(chunkHeaderLen) + int64(h.Size)
	if h.Padded() {
		n++
	}

	return n
}

func (h ChunkHeader) String() string {
	return fmt.Sprintf("%q size=%d offset=%d", h.ID[:], h.Size, h.Offset)
}

func cloneChunkHeaders(headers []ChunkHeader) []ChunkHeader {
	if len(headers) == 0 {
		return nil
	}

	return append([]ChunkHeader(nil), headers...)
}
