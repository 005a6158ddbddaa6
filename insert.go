package bwf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// InsertOptions controls how an existing bext chunk is treated.
type InsertOptions struct {
	// ReplaceExisting drops every bext chunk of the source. By default
	// existing bext chunks are copied like any other chunk, so the output
	// carries more than one.
	ReplaceExisting bool
}

// InsertBroadcastExtension copies the RIFF/WAVE stream src to dst with bext
// written as the first chunk. Every other chunk is copied unchanged, except
// for pad bytes which are always written as zero.
//
// dst is written as src is read: on error it may hold a partial, invalid
// stream. Use PatchFile to replace a file atomically.
func InsertBroadcastExtension(dst io.WriteSeeker, src io.Reader, bext *BroadcastExtension, opts InsertOptions) error {
	payload, err := bext.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode bext: %w", err)
	}

	walker := NewWalker(src)

	// The RIFF header is checked before anything is written.
	chunk, err := walker.Next()
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	cw := NewChunkWriter(dst)

	if err := cw.WriteHeader(); err != nil {
		return err
	}

	if err := cw.WriteChunk(CIDBext, payload); err != nil {
		return err
	}

	for chunk != nil {
		if !opts.ReplaceExisting || chunk.ID != CIDBext {
			if err := cw.CopyChunk(chunk.ID, uint32(chunk.Size), chunk.R); err != nil {
				return err
			}
		}

		chunk, err = walker.Next()
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	}

	return cw.Close()
}

// PatchFile writes inPath with bext inserted to outPath. The output is
// built in a temporary file next to outPath and renamed into place, so on
// failure outPath is left untouched. inPath and outPath may be the same.
func PatchFile(inPath, outPath string, bext *BroadcastExtension, opts InsertOptions) (err error) {
	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", inPath, err)
	}

	defer func() {
		if in != nil {
			in.Close()
		}
	}()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", inPath, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(outPath), "."+filepath.Base(outPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary output: %w", err)
	}

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	err = InsertBroadcastExtension(tmp, bufio.NewReader(in), bext, opts)
	if err != nil {
		return fmt.Errorf("failed to patch %s: %w", inPath, err)
	}

	err = tmp.Chmod(info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to set output mode: %w", err)
	}

	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("failed to close temporary output: %w", err)
	}

	err = in.Close()
	in = nil

	if err != nil {
		return fmt.Errorf("failed to close %s: %w", inPath, err)
	}

	err = os.Rename(tmp.Name(), outPath)
	if err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}

	return nil
}
