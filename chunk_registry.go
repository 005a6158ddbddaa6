package bwf

import (
	"fmt"
	"io"

	"github.com/go-audio/riff"
)

// ChunkHandler decodes one kind of chunk into an Info.
type ChunkHandler interface {
	CanHandle(chunkID [4]byte) bool
	Decode(info *Info, ch *riff.Chunk) error
}

// ChunkRegistry resolves chunks to handlers.
type ChunkRegistry struct {
	handlers []ChunkHandler
}

// NewChunkRegistry returns a registry decoding fmt and bext chunks.
func NewChunkRegistry() *ChunkRegistry {
	return &ChunkRegistry{
		handlers: []ChunkHandler{
			&fmtChunkHandler{},
			&bextChunkHandler{},
		},
	}
}

// Register appends a handler to the registry.
func (r *ChunkRegistry) Register(handler ChunkHandler) {
	if r == nil || handler == nil {
		return
	}

	r.handlers = append(r.handlers, handler)
}

// Decode dispatches a chunk to the first matching handler.
func (r *ChunkRegistry) Decode(info *Info, chnk *riff.Chunk) (bool, error) {
	if r == nil || chnk == nil {
		return false, nil
	}

	for _, handler := range r.handlers {
		if handler.CanHandle(chnk.ID) {
			err := handler.Decode(info, chnk)
			if err != nil {
				return true, fmt.Errorf("chunk handler decode failed: %w", err)
			}

			return true, nil
		}
	}

	return false, nil
}

type fmtChunkHandler struct{}

func (h *fmtChunkHandler) CanHandle(chunkID [4]byte) bool {
	return chunkID == CIDFmt
}

func (h *fmtChunkHandler) Decode(info *Info, ch *riff.Chunk) error {
	if info.FmtChunk != nil {
		return nil
	}

	fmtChunk, err := DecodeFmtChunk(ch)
	if err != nil {
		return err
	}

	info.FmtChunk = fmtChunk

	return nil
}

type bextChunkHandler struct{}

func (h *bextChunkHandler) CanHandle(chunkID [4]byte) bool {
	return chunkID == CIDBext
}

// Decode keeps the first bext of the stream, which is the one written by
// InsertBroadcastExtension, and counts the others.
func (h *bextChunkHandler) Decode(info *Info, ch *riff.Chunk) error {
	info.BextCount++

	if info.BroadcastExtension != nil {
		return nil
	}

	// the declared size is untrusted; read no more than the stream holds
	buf, err := io.ReadAll(io.LimitReader(ch, int64(ch.Size)))
	if err != nil {
		return fmt.Errorf("failed to read the bext chunk - %w", err)
	}

	if len(buf) < ch.Size {
		return fmt.Errorf("%w: bext declares %d bytes, got %d", ErrTruncatedChunk, ch.Size, len(buf))
	}

	bext, err := DecodeBroadcastExtension(buf)
	if err != nil {
		return err
	}

	info.BroadcastExtension = bext

	return nil
}
