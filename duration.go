package bwf

import (
	"fmt"
	"math"
	"time"
)

// SampleFrames returns the number of sample frames held by the first data
// chunk.
func (i *Info) SampleFrames() (uint64, error) {
	if i == nil || i.FmtChunk == nil {
		return 0, ErrFmtNotFound
	}

	data, ok := i.firstChunk(CIDData)
	if !ok {
		return 0, ErrDataNotFound
	}

	if i.FmtChunk.BlockAlign == 0 {
		return 0, fmt.Errorf("%w: fmt block align is 0", ErrMalformedContainer)
	}

	return uint64(data.Size) / uint64(i.FmtChunk.BlockAlign), nil
}

// Duration is the play time of the first data chunk.
func (i *Info) Duration() (time.Duration, error) {
	frames, err := i.SampleFrames()
	if err != nil {
		return 0, err
	}

	return framesDuration(frames, i.FmtChunk.SampleRate), nil
}

func (i *Info) firstChunk(id [4]byte) (ChunkHeader, bool) {
	for _, h := range i.Chunks {
		if h.ID == id {
			return h, true
		}
	}

	return ChunkHeader{}, false
}

func framesDuration(frames uint64, sampleRate uint32) time.Duration {
	if sampleRate == 0 {
		return 0
	}

	return time.Duration(math.Round(float64(frames) / float64(sampleRate) * float64(time.Second)))
}
