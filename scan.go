package bwf

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Info is what a single pass over a RIFF/WAVE stream learns about it.
type Info struct {
	// RIFFSize is the size declared in the RIFF header.
	RIFFSize uint32
	// Chunks lists every chunk in stream order.
	Chunks []ChunkHeader
	// FmtChunk is the first fmt chunk, nil if there is none.
	FmtChunk *FmtChunk
	// BroadcastExtension is the first bext chunk, nil if there is none.
	BroadcastExtension *BroadcastExtension
	// BextCount is the number of bext chunks in the stream.
	BextCount int
}

var defaultRegistry = NewChunkRegistry()

// Scan reads a RIFF/WAVE stream once and decodes its fmt and bext chunks.
func Scan(r io.Reader) (*Info, error) {
	return defaultRegistry.Scan(r)
}

// Scan reads a RIFF/WAVE stream once, handing each chunk to the registered
// handlers. Chunks without a handler are skipped.
func (r *ChunkRegistry) Scan(src io.Reader) (*Info, error) {
	walker := NewWalker(src)
	info := &Info{}

	for chunk, err := range walker.All() {
		if err != nil {
			return nil, err
		}

		header := walker.Header()
		info.Chunks = append(info.Chunks, header)

		if _, err := r.Decode(info, chunk); err != nil {
			return nil, fmt.Errorf("chunk %q at %d: %w", header.ID[:], header.Offset, err)
		}
	}

	info.RIFFSize = walker.RIFFSize()

	return info, nil
}

// ScanFile scans the file at path.
func ScanFile(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := Scan(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}

	return info, nil
}
