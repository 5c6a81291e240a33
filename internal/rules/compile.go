// internal/rules/compile.go
package rules

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/solatis/formatkeeper/internal/types"
)

/*
 * Rule specification compilation and validation.
 *
 * Compiles a decoded rule document (map[string]any from any decoder) into
 * an immutable types.RuleSpec with every attribute coerced to its declared
 * type.
 *
 * Compilation workflow:
 *   1. Split top-level categories (fonts, spacing, section, paragraph)
 *   2. Check each attribute is registered and allowed in its category
 *   3. Coerce values; null attributes are dropped
 *   4. Extract reserved style keys (based_on, is_default, aliases)
 *   5. Enforce cross-style constraints: one is_default, unique aliases
 *
 * Every problem is collected before returning so a rule author sees the
 * whole list at once. based_on cycles and dangling references are not
 * compile errors; Repository reports them as warnings and resolution stops
 * at them.
 */

// Compile validates and converts a decoded rule document.
// Errors wrap types.ErrInvalidRuleSpec.
func Compile(raw map[string]any) (*types.RuleSpec, error) {
	spec := &types.RuleSpec{
		Fonts:     types.RuleSet{},
		Spacing:   types.RuleSet{},
		Section:   types.RuleSet{},
		Paragraph: map[string]*types.StyleRule{},
	}
	var errs []error

	for _, key := range sortedKeys(raw) {
		value := raw[key]
		switch key {
		case types.RuleCategoryFonts:
			errs = append(errs, compileCategory(key, value, spec.Fonts)...)
		case types.RuleCategorySpacing:
			errs = append(errs, compileCategory(key, value, spec.Spacing)...)
		case types.RuleCategorySection:
			errs = append(errs, compileCategory(key, value, spec.Section)...)
		case types.RuleCategoryParagraph:
			errs = append(errs, compileStyles(value, spec.Paragraph)...)
		default:
			errs = append(errs, fmt.Errorf("unknown category %q", key))
		}
	}

	errs = append(errs, checkDefaults(spec)...)
	errs = append(errs, checkAliases(spec)...)

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidRuleSpec, errors.Join(errs...))
	}
	return spec, nil
}

func compileCategory(category string, value any, into types.RuleSet) []error {
	m, ok := asMap(value)
	if !ok {
		return []error{fmt.Errorf("%s: expected a mapping, got %T", category, value)}
	}
	var errs []error
	for _, name := range sortedKeys(m) {
		if err := compileAttribute(category, categoryScope[category], name, m[name], into); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// compileAttribute coerces one attribute and stores it in into.
func compileAttribute(where string, scope Scope, key string, value any, into types.RuleSet) error {
	name := CanonicalAttribute(key)
	attr, ok := registry[name]
	if !ok {
		return fmt.Errorf("%s.%s: %w", where, key, types.ErrUnknownAttribute)
	}
	if _, dup := into[name]; dup {
		return fmt.Errorf("%s.%s: duplicates %s", where, key, name)
	}
	if attr.Scope&scope == 0 {
		return fmt.Errorf("%s.%s: attribute not allowed here", where, key)
	}
	res, err := Coerce(value, attr.Type)
	if err != nil {
		return fmt.Errorf("%s.%s: want %s, got %v: %w", where, key, attr.Type, value, err)
	}
	if res.IsNull {
		return nil
	}
	if len(attr.Enum) > 0 {
		s := strings.ToLower(strings.TrimSpace(res.Value.(string)))
		if !slices.Contains(attr.Enum, s) {
			return fmt.Errorf("%s.%s: %q not one of %s", where, key, s, strings.Join(attr.Enum, ", "))
		}
		res.Value = s
	}
	into[name] = res.Value
	return nil
}

func compileStyles(value any, into map[string]*types.StyleRule) []error {
	m, ok := asMap(value)
	if !ok {
		return []error{fmt.Errorf("paragraph: expected a mapping, got %T", value)}
	}
	var errs []error
	for _, name := range sortedKeys(m) {
		body, ok := asMap(m[name])
		if !ok {
			errs = append(errs, fmt.Errorf("paragraph.%s: expected a mapping, got %T", name, m[name]))
			continue
		}
		rule := &types.StyleRule{Name: name, Attributes: types.RuleSet{}}
		where := "paragraph." + name
		for _, key := range sortedKeys(body) {
			v := body[key]
			switch key {
			case types.KeyBasedOn:
				s, ok := v.(string)
				if !ok {
					errs = append(errs, fmt.Errorf("%s.based_on: want string, got %T", where, v))
				}
				rule.BasedOn = strings.TrimSpace(s)
			case types.KeyIsDefault:
				b, ok := v.(bool)
				if !ok {
					errs = append(errs, fmt.Errorf("%s.is_default: want boolean, got %T", where, v))
				}
				rule.IsDefault = b
			case types.KeyAliases:
				aliases, err := stringList(v)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s.aliases: %w", where, err))
				}
				rule.Aliases = aliases
			default:
				if err := compileAttribute(where, categoryScope[types.RuleCategoryParagraph], key, v, rule.Attributes); err != nil {
					errs = append(errs, err)
				}
			}
		}
		into[name] = rule
	}
	return errs
}

func checkDefaults(spec *types.RuleSpec) []error {
	var marked []string
	for _, name := range spec.StyleNames() {
		if spec.Paragraph[name].IsDefault {
			marked = append(marked, name)
		}
	}
	if len(marked) > 1 {
		return []error{fmt.Errorf("%w: %s", types.ErrDuplicateDefaultStyle, strings.Join(marked, ", "))}
	}
	return nil
}

// checkAliases rejects an alias that names another rule style or is claimed
// by two styles.
func checkAliases(spec *types.RuleSpec) []error {
	var errs []error
	owner := map[string]string{}
	for _, name := range spec.StyleNames() {
		for _, alias := range spec.Paragraph[name].Aliases {
			if _, ok := spec.Paragraph[alias]; ok && alias != name {
				errs = append(errs, fmt.Errorf("paragraph.%s.aliases: %q is itself a rule style", name, alias))
				continue
			}
			if prev, ok := owner[alias]; ok && prev != name {
				errs = append(errs, fmt.Errorf("paragraph.%s.aliases: %q already an alias of %s", name, alias, prev))
				continue
			}
			owner[alias] = name
		}
	}
	return errs
}

func stringList(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{t}, nil
	case []string:
		return sortedUnique(t), nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("want list of strings, got element %T", e)
			}
			out = append(out, s)
		}
		return sortedUnique(out), nil
	}
	return nil, fmt.Errorf("want list of strings, got %T", v)
}

// sortedUnique keeps aliases deterministic for fingerprinting.
func sortedUnique(in []string) []string {
	out := slices.Clone(in)
	sort.Strings(out)
	return slices.Compact(out)
}

// asMap accepts both map shapes the YAML decoder can produce.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
