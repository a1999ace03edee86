package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/deploy-repack/internal/model"
)

// EnvPrefix prefixes every environment variable read by this package.
const EnvPrefix = "DEPLOY_REPACK_"

var (
	// ErrInvalidDescriptorPath is returned when the descriptor path is not a
	// clean relative path inside the archive.
	ErrInvalidDescriptorPath = errors.New("descriptor path must be a relative path inside the archive")

	// ErrEmptyOutputDir is returned when the output directory resolves to "".
	ErrEmptyOutputDir = errors.New("output directory must not be empty")
)

// Settings controls a repackaging run. The positional inputs (override
// file, source archive, suffix) are not settings; they are always given on
// the command line.
type Settings struct {
	// ConfigFile is the YAML settings file. It is never read from the file
	// itself.
	ConfigFile string `yaml:"-" env:"CONFIG"`

	// Workspace is a caller-provided workspace root. Empty means an
	// ephemeral temporary directory.
	Workspace string `yaml:"workspace" env:"WORKSPACE"`

	// KeepWorkspace leaves an ephemeral workspace on disk after the run.
	KeepWorkspace bool `yaml:"keepWorkspace" env:"KEEP_WORKSPACE"`

	// OutputDir is where the new archive is written.
	OutputDir string `yaml:"outputDir" env:"OUTPUT_DIR"`

	// Descriptor is the slash-separated descriptor path inside the archive.
	Descriptor string `yaml:"descriptor" env:"DESCRIPTOR"`

	// Strict turns override names that match no descriptor property into
	// an error.
	Strict bool `yaml:"strict" env:"STRICT"`

	// TempDir is the parent directory for ephemeral workspaces.
	TempDir string `yaml:"tempDir" env:"TEMP_DIR"`
}

// Defaults returns the built-in settings.
func Defaults() *Settings {
	return &Settings{
		OutputDir:  ".",
		Descriptor: model.DefaultDescriptorPath,
	}
}

// Validate checks the merged settings.
func (s *Settings) Validate() error {
	if s.OutputDir == "" {
		return ErrEmptyOutputDir
	}

	d := s.Descriptor
	if d == "" || strings.Contains(d, `\`) || path.IsAbs(d) || path.Clean(d) != d ||
		d == ".." || strings.HasPrefix(d, "../") || d == "." {
		return fmt.Errorf("%w: %q", ErrInvalidDescriptorPath, d)
	}
	return nil
}

// Options selects the inputs of Load.
type Options struct {
	// Flags holds the values of explicitly set command-line flags; unset
	// flags must be left at their zero value.
	Flags *Settings

	// Environ overrides the process environment, mainly for tests.
	// Nil means os.Environ.
	Environ map[string]string
}

// Load resolves settings from all layers and validates the result.
func Load(opts Options) (*Settings, error) {
	return newBuilder().
		withDefaults().
		withEnv(opts.Environ).
		withFlags(opts.Flags).
		withFile().
		build()
}

// ParseFile reads a YAML settings file. Unknown keys are rejected so that
// typos do not silently fall back to defaults. An empty file is valid.
func ParseFile(p string) (*Settings, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var s Settings
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", p, err)
	}
	return &s, nil
}

// parseEnv populates a Settings from DEPLOY_REPACK_* variables using the
// caarlos0/env library.
func parseEnv(environ map[string]string) (*Settings, error) {
	var s Settings
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&s, opts); err != nil {
		return nil, fmt.Errorf("error getting env settings: %w", err)
	}
	return &s, nil
}
