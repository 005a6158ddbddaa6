package bwf

import (
	"fmt"
	"math"
	"strings"
)

// Rounding selects how the fractional frame is resolved when decoding a
// TimeReference. Truncate and Round disagree near frame boundaries.
type Rounding int

const (
	// Truncate drops the fractional frame.
	Truncate Rounding = iota
	// Round rounds the fractional frame half to even.
	Round
)

func (r Rounding) String() string {
	switch r {
	case Truncate:
		return "truncate"
	case Round:
		return "round"
	default:
		return fmt.Sprintf("Rounding(%d)", int(r))
	}
}

// ParseRounding parses "truncate" or "round".
func ParseRounding(s string) (Rounding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "truncate", "trunc":
		return Truncate, nil
	case "round":
		return Round, nil
	default:
		return 0, fmt.Errorf("%w: rounding %q", ErrRange, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Rounding) MarshalText() ([]byte, error) {
	if r != Truncate && r != Round {
		return nil, fmt.Errorf("%w: rounding %d", ErrRange, int(r))
	}

	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rounding) UnmarshalText(text []byte) error {
	v, err := ParseRounding(string(text))
	if err != nil {
		return err
	}

	*r = v

	return nil
}

// Encoder maps a timecode to a TimeReference.
type Encoder interface {
	TimeReference(tc Timecode) (uint64, error)
}

// FrameBased converts through a total frame count and a calibrated
// samples-per-frame multiplier. FrameRate and SamplesPerFrame are a matched
// pair: the multiplier only makes sense for the frame rate it was
// calibrated against.
type FrameBased struct {
	FrameRate       float64
	SamplesPerFrame float64
}

// TimeReference returns floor(total_frames * SamplesPerFrame).
func (e FrameBased) TimeReference(tc Timecode) (uint64, error) {
	if tc.negative() {
		return 0, fmt.Errorf("%w: negative timecode %s", ErrRange, tc)
	}

	if err := checkRate("frame rate", e.FrameRate); err != nil {
		return 0, err
	}

	if err := checkRate("samples per frame", e.SamplesPerFrame); err != nil {
		return 0, err
	}

	fr := e.FrameRate

	// explicit float64 conversions forbid fused multiply-add
	totalFrames := float64(float64(tc.Hours)*60*60*fr) +
		float64(float64(tc.Minutes)*60*fr) +
		float64(float64(tc.Seconds)*fr) +
		float64(tc.Frames)

	return toSamples(float64(totalFrames * e.SamplesPerFrame))
}

// SecondsBased converts through elapsed seconds and a sample rate.
type SecondsBased struct {
	FrameRate  float64
	SampleRate float64
}

// TimeReference returns floor((h*3600 + m*60 + s + f/FrameRate) * SampleRate).
func (e SecondsBased) TimeReference(tc Timecode) (uint64, error) {
	if tc.negative() {
		return 0, fmt.Errorf("%w: negative timecode %s", ErrRange, tc)
	}

	if err := checkRate("frame rate", e.FrameRate); err != nil {
		return 0, err
	}

	if err := checkRate("sample rate", e.SampleRate); err != nil {
		return 0, err
	}

	whole := float64(tc.Hours)*3600 + float64(tc.Minutes)*60 + float64(tc.Seconds)
	totalSeconds := whole + float64(float64(tc.Frames)/e.FrameRate)

	return toSamples(float64(totalSeconds * e.SampleRate))
}

// Decoder maps a TimeReference back to a timecode.
type Decoder struct {
	SampleRate float64
	FrameRate  float64
	Rounding   Rounding
}

// Timecode decodes tr. Frames are not clamped: parameters that don't match
// the encoder can yield a frame value at or above the frame rate.
func (d Decoder) Timecode(tr uint64) (Timecode, error) {
	if err := checkRate("sample rate", d.SampleRate); err != nil {
		return Timecode{}, err
	}

	if err := checkRate("frame rate", d.FrameRate); err != nil {
		return Timecode{}, err
	}

	total := float64(tr) / d.SampleRate
	hours, rem := floorDivMod(total, 3600)
	minutes, secTotal := floorDivMod(rem, 60)
	_, frac := floorDivMod(secTotal, 1)

	raw := float64(frac * d.FrameRate)

	var frames float64

	switch d.Rounding {
	case Truncate:
		frames = math.Trunc(raw)
	case Round:
		frames = math.RoundToEven(raw)
	default:
		return Timecode{}, fmt.Errorf("%w: rounding %d", ErrRange, int(d.Rounding))
	}

	return Timecode{
		Hours:   int(hours),
		Minutes: int(minutes),
		Seconds: int(math.Trunc(secTotal)),
		Frames:  int(frames),
	}, nil
}

// floorDivMod mirrors floor division on floats: the remainder comes from
// fmod and the quotient is derived from it, so the two always agree.
func floorDivMod(a, b float64) (float64, float64) {
	mod := math.Mod(a, b)
	div := (a - mod) / b

	if mod != 0 {
		if (b < 0) != (mod < 0) {
			mod += b
			div--
		}
	} else {
		mod = math.Copysign(0, b)
	}

	if div == 0 {
		return math.Copysign(0, a/b), mod
	}

	floorDiv := math.Floor(div)
	if div-floorDiv > 0.5 {
		floorDiv++
	}

	return floorDiv, mod
}

const maxSamples = 1 << 64

func toSamples(v float64) (uint64, error) {
	if math.IsNaN(v) || v < 0 || v >= maxSamples {
		return 0, fmt.Errorf("%w: %v samples does not fit a 64-bit TimeReference", ErrRange, v)
	}

	return uint64(math.Floor(v)), nil
}

func checkRate(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %v", ErrRange, name, v)
	}

	return nil
}
