package bwf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/riff"
)

var (
	errHeaderNotWritten = errors.New("RIFF header not written")
	errAlreadyWroteHdr  = errors.New("already wrote header")
)

// ChunkWriter writes a RIFF/WAVE stream chunk by chunk and fixes up the
// RIFF size on Close.
type ChunkWriter struct {
	w io.WriteSeeker

	// WrittenBytes counts every byte emitted, RIFF header included.
	WrittenBytes int64

	start       int64
	wroteHeader bool
}

// NewChunkWriter returns a writer emitting to w from its current offset.
func NewChunkWriter(w io.WriteSeeker) *ChunkWriter {
	return &ChunkWriter{w: w}
}

// AddLE serializes and adds the passed value using little endian.
func (c *ChunkWriter) AddLE(src any) error {
	c.WrittenBytes += int64(binary.Size(src))

	err := binary.Write(c.w, binary.LittleEndian, src)
	if err != nil {
		return fmt.Errorf("failed to write little endian: %w", err)
	}

	return nil
}

// AddBE serializes and adds the passed value using big endian.
func (c *ChunkWriter) AddBE(src any) error {
	c.WrittenBytes += int64(binary.Size(src))

	err := binary.Write(c.w, binary.BigEndian, src)
	if err != nil {
		return fmt.Errorf("failed to write big endian: %w", err)
	}

	return nil
}

// WriteHeader writes "RIFF", a size placeholder and "WAVE".
func (c *ChunkWriter) WriteHeader() error {
	if c.wroteHeader {
		return errAlreadyWroteHdr
	}

	start, err := c.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("failed to locate RIFF header: %w", err)
	}

	c.start = start

	if err := c.AddBE(riff.RiffID); err != nil {
		return fmt.Errorf("%w when writing RIFF tag", err)
	}

	if err := c.AddLE(uint32(0)); err != nil {
		return fmt.Errorf("%w when writing RIFF size placeholder", err)
	}

	if err := c.AddBE(riff.WavFormatID); err != nil {
		return fmt.Errorf("%w when writing WAVE tag", err)
	}

	c.wroteHeader = true

	return nil
}

// WriteChunk writes a complete chunk and its pad byte.
func (c *ChunkWriter) WriteChunk(id [4]byte, payload []byte) error {
	if uint64(len(payload)) > math.MaxUint32 {
		return fmt.Errorf("%w: chunk %q payload of %d bytes", ErrRange, id[:], len(payload))
	}

	if err := c.writeChunkHeader(id, uint32(len(payload))); err != nil {
		return err
	}

	if len(payload) > 0 {
		n, err := c.w.Write(payload)
		c.WrittenBytes += int64(n)

		if err != nil {
			return fmt.Errorf("failed to write chunk payload %q: %w", id[:], err)
		}
	}

	return c.writePad(id, uint32(len(payload)))
}

// CopyChunk streams size bytes of payload from r and writes the pad byte as
// zero.
func (c *ChunkWriter) CopyChunk(id [4]byte, size uint32, r io.Reader) error {
	if err := c.writeChunkHeader(id, size); err != nil {
		return err
	}

	n, err := io.CopyN(c.w, r, int64(size))
	c.WrittenBytes += n

	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %q declares %d bytes, got %d", ErrTruncatedChunk, id[:], size, n)
		}

		return fmt.Errorf("failed to copy chunk payload %q: %w", id[:], err)
	}

	return c.writePad(id, size)
}

func (c *ChunkWriter) writeChunkHeader(id [4]byte, size uint32) error {
	if !c.wroteHeader {
		return errHeaderNotWritten
	}

	err := c.AddBE(id)
	if err != nil {
		return fmt.Errorf("failed to write chunk id %q: %w", id[:], err)
	}

	err = c.AddLE(size)
	if err != nil {
		return fmt.Errorf("failed to write chunk size %q: %w", id[:], err)
	}

	return nil
}

func (c *ChunkWriter) writePad(id [4]byte, size uint32) error {
	if size%2 == 0 {
		return nil
	}

	n, err := c.w.Write([]byte{0})
	c.WrittenBytes += int64(n)

	if err != nil {
		return fmt.Errorf("failed to write chunk padding %q: %w", id[:], err)
	}

	return nil
}

// Close backpatches the RIFF size. The underlying writer is NOT closed.
func (c *ChunkWriter) Close() error {
	if c == nil || c.w == nil {
		return nil
	}

	if !c.wroteHeader {
		return errHeaderNotWritten
	}

	size := c.WrittenBytes - 8
	if size > math.MaxUint32 {
		return fmt.Errorf("%w: RIFF size %d exceeds 32 bits", ErrRange, size)
	}

	// go back and write total size in header
	if _, err := c.w.Seek(c.start+4, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to file size position: %w", err)
	}

	err := binary.Write(c.w, binary.LittleEndian, uint32(size))
	if err != nil {
		return fmt.Errorf("%w when writing the total written bytes", err)
	}

	// jump back to the end of the file.
	if _, err := c.w.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end of file: %w", err)
	}

	if f, ok := c.w.(*os.File); ok {
		return f.Sync()
	}

	return nil
}
