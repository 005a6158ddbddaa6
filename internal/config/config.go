// Package config resolves the settings shared by the command line tools.
//
// Every setting can come from a command line flag, an environment variable
// or a default, in that order of priority.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cwbudde/bwf"
	"github.com/cwbudde/bwf/internal/logger"
)

// Environment variables read by Resolve.
const (
	EnvPreset      = "BWF_PRESET"
	EnvPresetsFile = "BWF_PRESETS_FILE"
	EnvOriginator  = "BWF_ORIGINATOR"
	EnvLogLevel    = "BWF_LOG_LEVEL"
	EnvEnvironment = "BWF_ENV"
	EnvFFmpeg      = "BWF_FFMPEG"
	EnvFFprobe     = "BWF_FFPROBE"
)

// Defaults.
const (
	DefaultOriginator  = "Transkoder"
	DefaultLogLevel    = "info"
	DefaultEnvironment = "development"
	DefaultFFmpeg      = "ffmpeg"
	DefaultFFprobe     = "ffprobe"
)

// ErrInvalid is returned when a resolved setting fails validation.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the resolved settings.
type Config struct {
	PresetName  string `validate:"required,printascii"`
	PresetsFile string `validate:"omitempty,file"`
	Originator  string
	LogLevel    string `validate:"oneof=debug info warn warning error"`
	Environment string `validate:"oneof=development staging production"`
	FFmpeg      string `validate:"required"`
	FFprobe     string `validate:"required"`
}

// Flags are the raw flag values registered on a tool's flag set.
type Flags struct {
	preset      *string
	presetsFile *string
	originator  *string
	logLevel    *string
	environment *string
	ffmpeg      *string
	ffprobe     *string
}

// Register adds the shared flags to fs.
func Register(fs *flag.FlagSet) *Flags {
	return &Flags{
		preset:      fs.String("preset", "", "conversion preset (default: "+bwf.DefaultPreset.Name+", env "+EnvPreset+")"),
		presetsFile: fs.String("presets", "", "YAML file with additional presets (env "+EnvPresetsFile+")"),
		originator:  fs.String("originator", "", "bext originator (default: "+DefaultOriginator+", env "+EnvOriginator+")"),
		logLevel:    fs.String("log-level", "", "log level: debug, info, warn, error (env "+EnvLogLevel+")"),
		environment: fs.String("env", "", "environment: development, staging, production (env "+EnvEnvironment+")"),
		ffmpeg:      fs.String("ffmpeg", "", "ffmpeg binary (env "+EnvFFmpeg+")"),
		ffprobe:     fs.String("ffprobe", "", "ffprobe binary (env "+EnvFFprobe+")"),
	}
}

// Resolve applies flag, environment and default values in that order and
// validates the result.
func (f *Flags) Resolve() (*Config, error) {
	cfg := &Config{
		PresetName:  getConfigValue(*f.preset, EnvPreset, bwf.DefaultPreset.Name),
		PresetsFile: getConfigValue(*f.presetsFile, EnvPresetsFile, ""),
		Originator:  getConfigValue(*f.originator, EnvOriginator, DefaultOriginator),
		LogLevel:    strings.ToLower(getConfigValue(*f.logLevel, EnvLogLevel, DefaultLogLevel)),
		Environment: strings.ToLower(getConfigValue(*f.environment, EnvEnvironment, DefaultEnvironment)),
		FFmpeg:      getConfigValue(*f.ffmpeg, EnvFFmpeg, DefaultFFmpeg),
		FFprobe:     getConfigValue(*f.ffprobe, EnvFFprobe, DefaultFFprobe),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every setting and reports all failures at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		msgs = append(msgs, fmt.Sprintf("%s %s", e.Field(), friendlyMessage(e)))
	}

	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", e.Param(), e.Value())
	case "file":
		return fmt.Sprintf("must be an existing file, got %q", e.Value())
	case "printascii":
		return "must be printable ASCII"
	default:
		return fmt.Sprintf("failed %q", e.Tag())
	}
}

// Preset resolves the configured preset, consulting the presets file first.
func (c *Config) Preset() (bwf.Preset, error) {
	var extra []bwf.Preset

	if c.PresetsFile != "" {
		loaded, err := bwf.LoadPresets(c.PresetsFile)
		if err != nil {
			return bwf.Preset{}, err
		}

		extra = loaded
	}

	return bwf.LookupPreset(c.PresetName, extra)
}

// Logger builds the logger for the configured level and environment.
// Colors are enabled when w is a terminal.
func (c *Config) Logger(w io.Writer) *logger.Logger {
	return logger.New(logger.Config{
		Writer:      w,
		Environment: c.Environment,
		Level:       logger.ParseLevel(c.LogLevel),
		Color:       isTerminal(w),
	})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	info, err := f.Stat()
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeCharDevice != 0
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	return defaultValue
}
