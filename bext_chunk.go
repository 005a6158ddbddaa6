package bwf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

const (
	bextDescriptionLen         = 256
	bextOriginatorLen          = 32
	bextOriginatorReferenceLen = 32
	bextOriginationDateLen     = 10
	bextOriginationTimeLen     = 8
	bextUMIDLen                = 64
	bextLoudnessLen            = 10
	bextReservedLen            = 180
	bextLegacyReservedLen      = bextLoudnessLen + bextReservedLen

	// BextFixedLen is the length of the fixed region of a bext payload.
	// CodingHistory, when present, follows it.
	BextFixedLen = 602

	// BextVersion is the version written by NewBroadcastExtension.
	BextVersion = 1

	// OriginationDateLayout and OriginationTimeLayout are the time layouts of
	// the origination fields.
	OriginationDateLayout = "2006-01-02"
	OriginationTimeLayout = "15:04:05"
)

// BroadcastExtension is the content of a bext chunk.
type BroadcastExtension struct {
	Description         string
	Originator          string
	OriginatorReference string
	OriginationDate     string
	OriginationTime     string
	// TimeReference is the sample count since midnight of the first sample.
	TimeReference uint64
	Version       uint16
	UMID          [bextUMIDLen]byte
	// Loudness is only stored for Version 2 and above.
	Loudness *Loudness
	// Reserved holds the bytes following the loudness fields: 180 bytes for
	// Version 2 and above, 190 bytes (loudness region included) below that.
	Reserved      []byte
	CodingHistory string
}

// Loudness holds the EBU R128 values introduced with bext version 2.
type Loudness struct {
	Value                uint16
	Range                uint16
	MaxTruePeakLevel     uint16
	MaxMomentaryLoudness uint16
	MaxShortTermLoudness uint16
}

func (l Loudness) appendLE(out []byte) []byte {
	for _, v := range [...]uint16{l.Value, l.Range, l.MaxTruePeakLevel, l.MaxMomentaryLoudness, l.MaxShortTermLoudness} {
		out = binary.LittleEndian.AppendUint16(out, v)
	}

	return out
}

func decodeLoudness(b []byte) *Loudness {
	return &Loudness{
		Value:                binary.LittleEndian.Uint16(b[0:2]),
		Range:                binary.LittleEndian.Uint16(b[2:4]),
		MaxTruePeakLevel:     binary.LittleEndian.Uint16(b[4:6]),
		MaxMomentaryLoudness: binary.LittleEndian.Uint16(b[6:8]),
		MaxShortTermLoudness: binary.LittleEndian.Uint16(b[8:10]),
	}
}

// BextOptions carries the optional text of a new bext record.
type BextOptions struct {
	Description         string
	Originator          string
	OriginatorReference string
	// OriginationDate and OriginationTime default to the local wall clock.
	OriginationDate string
	OriginationTime string
	CodingHistory   string
	// Lossy strips non-ASCII runes instead of rejecting the text.
	Lossy bool
	// Now overrides the clock used for the default origination fields.
	Now func() time.Time
}

// NewBroadcastExtension builds a version 1 record for timeRef. The UMID,
// loudness and reserved regions stay zero.
func NewBroadcastExtension(timeRef uint64, opts BextOptions) (*BroadcastExtension, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	bext := &BroadcastExtension{
		Description:         opts.Description,
		Originator:          opts.Originator,
		OriginatorReference: opts.OriginatorReference,
		OriginationDate:     opts.OriginationDate,
		OriginationTime:     opts.OriginationTime,
		TimeReference:       timeRef,
		Version:             BextVersion,
		CodingHistory:       opts.CodingHistory,
	}

	if bext.OriginationDate == "" || bext.OriginationTime == "" {
		t := now()
		if bext.OriginationDate == "" {
			bext.OriginationDate = t.Format(OriginationDateLayout)
		}

		if bext.OriginationTime == "" {
			bext.OriginationTime = t.Format(OriginationTimeLayout)
		}
	}

	if opts.Lossy {
		for _, s := range bext.textFields() {
			*s.value = StripNonASCII(*s.value)
		}
	}

	if err := bext.checkText(); err != nil {
		return nil, err
	}

	return bext, nil
}

type textField struct {
	name  string
	value *string
}

func (b *BroadcastExtension) textFields() []textField {
	return []textField{
		{"description", &b.Description},
		{"originator", &b.Originator},
		{"originator reference", &b.OriginatorReference},
		{"origination date", &b.OriginationDate},
		{"origination time", &b.OriginationTime},
		{"coding history", &b.CodingHistory},
	}
}

func (b *BroadcastExtension) checkText() error {
	for _, f := range b.textFields() {
		if err := checkASCII(f.name, *f.value); err != nil {
			return err
		}
	}

	return nil
}

// MarshalBinary encodes the record as a bext payload: the 602 byte fixed
// region followed by CodingHistory. Text longer than its field is cut at
// the field width.
func (b *BroadcastExtension) MarshalBinary() ([]byte, error) {
	if b == nil {
		return nil, errNilBext
	}

	if err := b.checkText(); err != nil {
		return nil, err
	}

	if b.Loudness != nil && b.Version < 2 {
		return nil, fmt.Errorf("%w: loudness needs bext version 2, have %d", ErrRange, b.Version)
	}

	payload := make([]byte, 0, BextFixedLen+len(b.CodingHistory))
	appendFixedString := func(s string, n int) {
		raw := make([]byte, n)
		copy(raw, s)
		payload = append(payload, raw...)
	}

	appendFixedString(b.Description, bextDescriptionLen)
	appendFixedString(b.Originator, bextOriginatorLen)
	appendFixedString(b.OriginatorReference, bextOriginatorReferenceLen)
	appendFixedString(b.OriginationDate, bextOriginationDateLen)
	appendFixedString(b.OriginationTime, bextOriginationTimeLen)

	payload = binary.LittleEndian.AppendUint64(payload, b.TimeReference)
	payload = binary.LittleEndian.AppendUint16(payload, b.Version)
	payload = append(payload, b.UMID[:]...)

	reservedLen := bextLegacyReservedLen
	if b.Version >= 2 {
		var loudness Loudness
		if b.Loudness != nil {
			loudness = *b.Loudness
		}

		payload = loudness.appendLE(payload)
		reservedLen = bextReservedLen
	}

	reserved := make([]byte, reservedLen)
	copy(reserved, b.Reserved)
	payload = append(payload, reserved...)
	payload = append(payload, b.CodingHistory...)

	return payload, nil
}

// DecodeBroadcastExtension decodes a bext payload. Text fields are trimmed
// of NUL padding and trailing spaces and reduced to ASCII like
// StripNonASCII does.
func DecodeBroadcastExtension(buf []byte) (*BroadcastExtension, error) {
	if len(buf) < BextFixedLen {
		return nil, fmt.Errorf("%w: %d byte payload, need at least %d", ErrMalformedBext, len(buf), BextFixedLen)
	}

	bext := &BroadcastExtension{}
	offset := 0

	take := func(n int) []byte {
		out := buf[offset : offset+n]
		offset += n

		return out
	}

	bext.Description = fieldString(take(bextDescriptionLen))
	bext.Originator = fieldString(take(bextOriginatorLen))
	bext.OriginatorReference = fieldString(take(bextOriginatorReferenceLen))
	bext.OriginationDate = fieldString(take(bextOriginationDateLen))
	bext.OriginationTime = fieldString(take(bextOriginationTimeLen))

	bext.TimeReference = binary.LittleEndian.Uint64(take(8))
	bext.Version = binary.LittleEndian.Uint16(take(2))

	copy(bext.UMID[:], take(bextUMIDLen))

	if bext.Version >= 2 {
		bext.Loudness = decodeLoudness(take(bextLoudnessLen))
		bext.Reserved = bytes.Clone(take(bextReservedLen))
	} else {
		bext.Reserved = bytes.Clone(take(bextLegacyReservedLen))
	}

	if offset < len(buf) {
		bext.CodingHistory = decodeASCII(bytes.TrimRight(buf[offset:], "\x00"))
	}

	return bext, nil
}

// Clone returns a deep copy of the record.
func (b *BroadcastExtension) Clone() *BroadcastExtension {
	if b == nil {
		return nil
	}

	out := *b
	out.Reserved = bytes.Clone(b.Reserved)

	if b.Loudness != nil {
		loudness := *b.Loudness
		out.Loudness = &loudness
	}

	return &out
}
