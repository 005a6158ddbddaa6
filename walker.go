package bwf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"

	"github.com/go-audio/riff"
)

// Walker reads the chunks of a RIFF/WAVE stream one at a time. Payloads are
// not buffered: each chunk's reader is valid until the next call to Next,
// which skips whatever the caller left unread.
type Walker struct {
	r io.Reader

	started  bool
	riffSize uint32
	// pos is the number of stream bytes consumed so far.
	pos int64

	cur        *riff.Chunk
	curHeader  ChunkHeader
	payload    *io.LimitedReader
	missingPad bool

	err error
}

// NewWalker returns a walker over r. The RIFF header is checked on the
// first call to Next.
func NewWalker(r io.Reader) *Walker {
	return &Walker{r: r}
}

// RIFFSize returns the size declared in the RIFF header.
func (w *Walker) RIFFSize() uint32 {
	return w.riffSize
}

// Header returns the header of the chunk last returned by Next.
func (w *Walker) Header() ChunkHeader {
	return w.curHeader
}

// Next returns the next chunk. It returns io.EOF once fewer than 8 bytes
// are left in the stream.
func (w *Walker) Next() (*riff.Chunk, error) {
	if w.err != nil {
		return nil, w.err
	}

	if !w.started {
		w.started = true

		if err := w.readRIFFHeader(); err != nil {
			return nil, w.fail(err)
		}
	}

	if err := w.skip(); err != nil {
		return nil, w.fail(err)
	}

	var hdr [chunkHeaderLen]byte

	n, err := io.ReadFull(w.r, hdr[:])
	w.pos += int64(n)

	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, w.finish()
		}

		return nil, w.fail(fmt.Errorf("failed to read chunk header: %w", err))
	}

	var id [4]byte

	copy(id[:], hdr[:4])
	size := binary.LittleEndian.Uint32(hdr[4:])

	w.curHeader = ChunkHeader{ID: id, Size: size, Offset: w.pos - chunkHeaderLen}
	w.payload = &io.LimitedReader{R: w.r, N: int64(size)}
	w.cur = &riff.Chunk{
		ID:   id,
		Size: int(size),
		R:    w.payload,
	}

	return w.cur, nil
}

// All iterates over the remaining chunks. Iteration stops after the first
// error, which is yielded with a nil chunk.
func (w *Walker) All() iter.Seq2[*riff.Chunk, error] {
	return func(yield func(*riff.Chunk, error) bool) {
		for {
			chunk, err := w.Next()
			if errors.Is(err, io.EOF) {
				return
			}

			if !yield(chunk, err) || err != nil {
				return
			}
		}
	}
}

func (w *Walker) readRIFFHeader() error {
	var hdr [riffHeaderLen]byte

	n, err := io.ReadFull(w.r, hdr[:])
	w.pos += int64(n)

	if err != nil {
		return fmt.Errorf("%w: short RIFF header: %w", ErrMalformedContainer, err)
	}

	var id, form [4]byte

	copy(id[:], hdr[0:4])
	copy(form[:], hdr[8:12])

	if id != riff.RiffID {
		return fmt.Errorf("%w: %q is not a RIFF tag", ErrMalformedContainer, id[:])
	}

	if form != riff.WavFormatID {
		return fmt.Errorf("%w: %q is not a WAVE form", ErrMalformedContainer, form[:])
	}

	w.riffSize = binary.LittleEndian.Uint32(hdr[4:8])

	return nil
}

// skip drains the rest of the current payload and its pad byte.
func (w *Walker) skip() error {
	if w.cur == nil {
		return nil
	}

	chunk, header := w.cur, w.curHeader
	w.cur = nil

	if _, err := io.Copy(io.Discard, w.payload); err != nil {
		return fmt.Errorf("failed to skip chunk %q: %w", chunk.ID[:], err)
	}

	w.pos += int64(header.Size) - w.payload.N

	if w.payload.N > 0 {
		return fmt.Errorf("%w: %q declares %d bytes, %d missing", ErrTruncatedChunk, chunk.ID[:], header.Size, w.payload.N)
	}

	if !header.Padded() {
		return nil
	}

	var pad [1]byte

	n, err := io.ReadFull(w.r, pad[:])
	w.pos += int64(n)

	switch {
	case errors.Is(err, io.EOF):
		w.missingPad = true
	case err != nil:
		return fmt.Errorf("failed to read pad byte of %q: %w", chunk.ID[:], err)
	}

	return nil
}

// finish ends the walk and checks the declared RIFF size against the bytes
// seen. Streaming writers leave 0 or 0xFFFFFFFF in the size field; both are
// accepted.
func (w *Walker) finish() error {
	w.cur = nil

	observed := w.pos - 8
	if w.missingPad {
		observed++
	}

	if w.riffSize != 0 && w.riffSize != math.MaxUint32 && int64(w.riffSize) > observed {
		return w.fail(fmt.Errorf("%w: declared %d bytes, found %d", ErrSizeMismatch, w.riffSize, observed))
	}

	w.err = io.EOF

	return io.EOF
}

func (w *Walker) fail(err error) error {
	w.cur = nil
	w.err = err

	return err
}
