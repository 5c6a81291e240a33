// internal/rules/coercion.go
package rules

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/solatis/formatkeeper/internal/types"
)

/*
 * Type coercion for rule attribute values.
 *
 * Rule files arrive from three decoders (YAML, TOML, JSON) that disagree on
 * numeric representation: yaml.v3 yields int, BurntSushi/toml yields int64,
 * encoding/json yields float64. Coerce normalizes every attribute value to
 * the type its registry entry declares, so the evaluation engine only ever
 * sees float64, bool or string.
 *
 * Type modes:
 *   - NUMERIC: Strict - coerce numeric strings to float64, reject booleans
 *   - TEXT: Lenient - auto-coerce scalars to string
 *   - BOOLEAN: Strict - boolean only, reject strings/numbers
 *   - ANY: Lenient - preserve original type
 *
 * Null values are reported separately from coercion failures: a null
 * attribute is dropped from the rule set, a failed coercion rejects the file.
 */

// FieldType is the declared type of a rule attribute.
type FieldType int

const (
	FieldTypeUnspecified FieldType = iota
	FieldTypeNumeric
	FieldTypeText
	FieldTypeBoolean
	FieldTypeAny
)

func (ft FieldType) String() string {
	switch ft {
	case FieldTypeNumeric:
		return "number"
	case FieldTypeText:
		return "string"
	case FieldTypeBoolean:
		return "boolean"
	default:
		return "any"
	}
}

// CoercionResult holds the coerced value or indicates null.
type CoercionResult struct {
	Value  any  // coerced value (valid only if !IsNull)
	IsNull bool // true if input was nil/null
}

// Coerce attempts to convert value to the expected field type.
// Returns CoercionResult with IsNull=true for nil input.
// Returns ErrCoercionFailed for impossible coercions.
func Coerce(value any, fieldType FieldType) (CoercionResult, error) {
	if value == nil {
		return CoercionResult{IsNull: true}, nil
	}

	switch fieldType {
	case FieldTypeNumeric:
		return coerceNumeric(value)
	case FieldTypeText:
		return coerceText(value)
	case FieldTypeBoolean:
		return coerceBoolean(value)
	case FieldTypeAny, FieldTypeUnspecified:
		return CoercionResult{Value: value}, nil
	default:
		return CoercionResult{}, types.ErrCoercionFailed
	}
}

// coerceNumeric converts value to float64.
// Accepts every decoder's integer and float types and numeric strings.
// Whitespace-only strings, NaN and infinities return ErrCoercionFailed.
func coerceNumeric(value any) (CoercionResult, error) {
	switch v := value.(type) {
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return CoercionResult{Value: float64(v)}, nil
	case int64:
		return CoercionResult{Value: float64(v)}, nil
	case uint64:
		return CoercionResult{Value: float64(v)}, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return CoercionResult{}, types.ErrCoercionFailed
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return CoercionResult{}, types.ErrCoercionFailed
		}
		return finite(f)
	default:
		// Booleans included: true is not 1.
		return CoercionResult{}, types.ErrCoercionFailed
	}
}

func finite(f float64) (CoercionResult, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return CoercionResult{}, types.ErrCoercionFailed
	}
	return CoercionResult{Value: f}, nil
}

// coerceText converts scalars to their string representation.
// Collections are rejected; a font name is never a list.
func coerceText(value any) (CoercionResult, error) {
	switch v := value.(type) {
	case string:
		return CoercionResult{Value: v}, nil
	case float64:
		return CoercionResult{Value: strconv.FormatFloat(v, 'f', -1, 64)}, nil
	case int:
		return CoercionResult{Value: strconv.Itoa(v)}, nil
	case int64:
		return CoercionResult{Value: strconv.FormatInt(v, 10)}, nil
	case bool:
		return CoercionResult{Value: strconv.FormatBool(v)}, nil
	case []any, map[string]any:
		return CoercionResult{}, types.ErrCoercionFailed
	default:
		return CoercionResult{Value: fmt.Sprintf("%v", v)}, nil
	}
}

// coerceBoolean validates value is boolean.
// Strict mode: no string-to-boolean coercion (avoids "true" vs 1 ambiguity).
func coerceBoolean(value any) (CoercionResult, error) {
	switch v := value.(type) {
	case bool:
		return CoercionResult{Value: v}, nil
	default:
		return CoercionResult{}, types.ErrCoercionFailed
	}
}
