package overrides

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/deploy-repack/internal/model"
)

// ParseJSON decodes a flat JSON (or JSONC) object into an OverrideSet.
func ParseJSON(data []byte, source string) (*model.OverrideSet, error) {
	// UseNumber keeps the literal digits of numbers a float64 cannot hold.
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s as JSON: %w", source, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s as JSON: unexpected data after top-level object", source)
	}
	return fromMap(raw, source)
}

// ParseYAML decodes a flat YAML mapping into an OverrideSet.
func ParseYAML(data []byte, source string) (*model.OverrideSet, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s as YAML: %w", source, err)
	}
	return fromMap(raw, source)
}

// fromMap converts decoded scalar values to strings. Nested objects and
// arrays have no meaning for a descriptor attribute and are rejected.
func fromMap(raw map[string]interface{}, source string) (*model.OverrideSet, error) {
	set := model.NewOverrideSet()
	for name, v := range raw {
		s, err := scalarString(v)
		if err != nil {
			return nil, fmt.Errorf("%s: override %q: %w", source, name, err)
		}
		set.Set(name, s, 0)
	}
	return set, nil
}

func scalarString(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("value must be a scalar, got %T", v)
	}
}
