package rules

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/rulespec.schema.json
var ruleSchemaJSON []byte

const ruleSchemaID = "rulespec.schema.json"

// Schema returns the JSON Schema rule files are validated against.
func Schema() []byte {
	return slices.Clone(ruleSchemaJSON)
}

// SchemaError is a single schema violation.
type SchemaError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e SchemaError) String() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal(ruleSchemaJSON, &doc); err != nil {
		return nil, fmt.Errorf("parse embedded schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(ruleSchemaID, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return c.Compile(ruleSchemaID)
})

// validateSchema checks a decoded rule document against the embedded
// schema. The document is normalized through JSON first so values from
// every decoder share one representation.
func validateSchema(raw map[string]any) []SchemaError {
	sch, err := compiledSchema()
	if err != nil {
		return []SchemaError{{Message: err.Error()}}
	}
	data, err := json.Marshal(normalize(raw))
	if err != nil {
		return []SchemaError{{Message: fmt.Sprintf("encode rule document: %v", err)}}
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return []SchemaError{{Message: err.Error()}}
	}

	err = sch.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []SchemaError{{Message: err.Error()}}
	}
	return collectErrors(ve)
}

// collectErrors flattens a validation error tree into its leaves.
func collectErrors(ve *jsonschema.ValidationError) []SchemaError {
	if len(ve.Causes) == 0 {
		path := ""
		if len(ve.InstanceLocation) > 0 {
			path = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		return []SchemaError{{Path: path, Message: ve.Error()}}
	}
	var out []SchemaError
	for _, c := range ve.Causes {
		out = append(out, collectErrors(c)...)
	}
	return out
}

// normalize converts map[any]any nodes, which encoding/json cannot encode,
// into map[string]any.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	}
	return v
}
