package bwf

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Strategy names the conversion used by a preset.
type Strategy string

const (
	// StrategyFrame selects FrameBased conversion.
	StrategyFrame Strategy = "frame"
	// StrategySeconds selects SecondsBased conversion.
	StrategySeconds Strategy = "seconds"
)

// Preset keeps a frame rate, multiplier, sample rate and rounding policy
// together. The values are calibrated as a set and must not be mixed with
// the values of another preset.
type Preset struct {
	Name            string   `yaml:"name" validate:"required"`
	Strategy        Strategy `yaml:"strategy" validate:"required,oneof=frame seconds"`
	FrameRate       float64  `yaml:"frame_rate" validate:"gt=0"`
	SamplesPerFrame float64  `yaml:"samples_per_frame,omitempty" validate:"required_if=Strategy frame,gte=0"`
	SampleRate      float64  `yaml:"sample_rate" validate:"gt=0"`
	Rounding        Rounding `yaml:"rounding" validate:"oneof=0 1"`
	DropFrame       bool     `yaml:"drop_frame,omitempty"`
}

// DefaultPreset is the calibrated 23.976 fps frame-based conversion,
// decoded with truncation at 48048 Hz.
var DefaultPreset = Preset{
	Name:            "ntsc-film-frame",
	Strategy:        StrategyFrame,
	FrameRate:       23.976,
	SamplesPerFrame: 2004.005263,
	SampleRate:      48048,
	Rounding:        Truncate,
}

var builtinPresets = []Preset{
	DefaultPreset,
	{
		Name:       "ntsc-film-seconds",
		Strategy:   StrategySeconds,
		FrameRate:  23.976,
		SampleRate: 48000,
		Rounding:   Round,
	},
	{
		Name:       "pal",
		Strategy:   StrategySeconds,
		FrameRate:  25,
		SampleRate: 48000,
		Rounding:   Round,
	},
}

var presetValidator = validator.New(validator.WithRequiredStructEnabled())

// BuiltinPresets returns a copy of the presets shipped with the package.
func BuiltinPresets() []Preset {
	return append([]Preset(nil), builtinPresets...)
}

// Validate reports the first inconsistent field of the preset.
func (p Preset) Validate() error {
	err := presetValidator.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w %q: %w", ErrInvalidPreset, p.Name, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}

	return fmt.Errorf("%w %q: %s", ErrInvalidPreset, p.Name, strings.Join(msgs, ", "))
}

// Encoder returns the conversion selected by the preset.
func (p Preset) Encoder() Encoder {
	if p.Strategy == StrategySeconds {
		return SecondsBased{FrameRate: p.FrameRate, SampleRate: p.SampleRate}
	}

	return FrameBased{FrameRate: p.FrameRate, SamplesPerFrame: p.SamplesPerFrame}
}

// Decoder returns the decoder matched with the preset's encoder.
func (p Preset) Decoder() Decoder {
	return Decoder{SampleRate: p.SampleRate, FrameRate: p.FrameRate, Rounding: p.Rounding}
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// ParsePresets decodes and validates a YAML preset document of the form
//
//	presets:
//	  - name: ntsc-film-frame
//	    strategy: frame
//	    frame_rate: 23.976
//	    samples_per_frame: 2004.005263
//	    sample_rate: 48048
//	    rounding: truncate
func ParsePresets(data []byte) ([]Preset, error) {
	var doc presetFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}

	seen := make(map[string]bool, len(doc.Presets))

	for _, p := range doc.Presets {
		if err := p.Validate(); err != nil {
			return nil, err
		}

		if seen[p.Name] {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidPreset, p.Name)
		}

		seen[p.Name] = true
	}

	return doc.Presets, nil
}

// LoadPresets reads a YAML preset file.
func LoadPresets(path string) ([]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load presets %q: %w", path, err)
	}

	presets, err := ParsePresets(data)
	if err != nil {
		return nil, fmt.Errorf("load presets %q: %w", path, err)
	}

	return presets, nil
}

// LookupPreset resolves name against extra first and the built-in presets
// second. An empty name resolves to DefaultPreset.
func LookupPreset(name string, extra []Preset) (Preset, error) {
	if name == "" {
		return DefaultPreset, nil
	}

	for _, p := range extra {
		if p.Name == name {
			return p, nil
		}
	}

	for _, p := range builtinPresets {
		if p.Name == name {
			return p, nil
		}
	}

	return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}
