package bwf

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Timecode is an HH:MM:SS:FF position. Components are signed so that bad
// input can be reported instead of silently wrapping.
type Timecode struct {
	Hours   int
	Minutes int
	Seconds int
	Frames  int
}

// ParseTimecode parses HH:MM:SS:FF. A ';' separator (drop-frame display)
// is accepted anywhere a ':' is.
func ParseTimecode(s string) (Timecode, error) {
	parts := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return r == ':' || r == ';'
	})
	if len(parts) != 4 || strings.Count(s, ":")+strings.Count(s, ";") != 3 {
		return Timecode{}, fmt.Errorf("%w: %q", ErrInvalidTimecode, s)
	}

	var vals [4]int

	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return Timecode{}, fmt.Errorf("%w: %q: %w", ErrInvalidTimecode, s, err)
		}

		vals[i] = v
	}

	return Timecode{Hours: vals[0], Minutes: vals[1], Seconds: vals[2], Frames: vals[3]}, nil
}

// String renders the timecode as HH:MM:SS:FF.
func (tc Timecode) String() string {
	return tc.Format(false)
}

// Format renders the timecode, using ';' before the frame field for
// drop-frame display. The values themselves are identical.
func (tc Timecode) Format(dropFrame bool) string {
	sep := ":"
	if dropFrame {
		sep = ";"
	}

	return fmt.Sprintf("%02d:%02d:%02d%s%02d", tc.Hours, tc.Minutes, tc.Seconds, sep, tc.Frames)
}

// Validate checks that every component is in its display range for the
// given frame rate: hours 0-23, minutes and seconds 0-59 and frames below
// ceil(frameRate).
func (tc Timecode) Validate(frameRate float64) error {
	if frameRate <= 0 || math.IsNaN(frameRate) || math.IsInf(frameRate, 0) {
		return fmt.Errorf("%w: frame rate %v", ErrRange, frameRate)
	}

	maxFrames := int(math.Ceil(frameRate))

	switch {
	case tc.Hours < 0 || tc.Hours > 23:
		return fmt.Errorf("%w: hours must be 0-23, got %d", ErrRange, tc.Hours)
	case tc.Minutes < 0 || tc.Minutes > 59:
		return fmt.Errorf("%w: minutes must be 0-59, got %d", ErrRange, tc.Minutes)
	case tc.Seconds < 0 || tc.Seconds > 59:
		return fmt.Errorf("%w: seconds must be 0-59, got %d", ErrRange, tc.Seconds)
	case tc.Frames < 0 || tc.Frames >= maxFrames:
		return fmt.Errorf("%w: frames must be 0-%d at %v fps, got %d", ErrRange, maxFrames-1, frameRate, tc.Frames)
	}

	return nil
}

func (tc Timecode) negative() bool {
	return tc.Hours < 0 || tc.Minutes < 0 || tc.Seconds < 0 || tc.Frames < 0
}
