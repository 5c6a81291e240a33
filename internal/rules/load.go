package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/solatis/formatkeeper/internal/types"
)

// Format is a rule file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", types.ErrUnsupportedRuleFormat, filepath.Ext(path))
}

// LoadFile reads, validates and compiles the rule file at path.
func LoadFile(path string) (*types.RuleSpec, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	spec, err := Load(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// Load decodes data, validates it against the rule schema and compiles it.
func Load(data []byte, format Format) (*types.RuleSpec, error) {
	raw, err := decode(data, format)
	if err != nil {
		return nil, err
	}
	if problems := validateSchema(raw); len(problems) > 0 {
		msgs := make([]string, len(problems))
		for i, p := range problems {
			msgs[i] = p.String()
		}
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidRuleSpec, strings.Join(msgs, "; "))
	}
	return Compile(raw)
}

func decode(data []byte, format Format) (map[string]any, error) {
	raw := map[string]any{}
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	case FormatTOML:
		_, err = toml.Decode(string(data), &raw)
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		err = dec.Decode(&raw)
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnsupportedRuleFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", types.ErrInvalidRuleSpec, format, err)
	}
	return raw, nil
}
