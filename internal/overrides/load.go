package overrides

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/deploy-repack/internal/model"
)

// Format identifies an override file syntax.
type Format string

const (
	// FormatProperties is the line-oriented name=value format.
	FormatProperties Format = "properties"

	// FormatJSON is a flat JSON object; JSONC comments are allowed.
	FormatJSON Format = "json"

	// FormatYAML is a flat YAML mapping.
	FormatYAML Format = "yaml"
)

// DetectFormat picks the syntax from the file extension. Anything that is
// not recognizably JSON or YAML is treated as a properties file.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatProperties
	}
}

// Load reads the override file at path.
func Load(path string) (*model.OverrideSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("override file not found: %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to read override file %s: %w", path, err)
	}

	switch DetectFormat(path) {
	case FormatJSON:
		return ParseJSON(data, path)
	case FormatYAML:
		return ParseYAML(data, path)
	default:
		return ParseProperties(bytes.NewReader(data), path)
	}
}
