// internal/types/rules.go
package types

import "sort"

/*
 * Domain types for the declarative rule specification.
 *
 * RuleSpec is the decoded, coerced form of a rule file: three global
 * categories (fonts, spacing, section) and a map of per-style rules keyed
 * by style name. internal/rules owns loading, validation and effective-rule
 * computation; these types are format agnostic (YAML, TOML and JSON all
 * decode into them).
 *
 * Values held in a RuleSet are already coerced: float64 for numeric
 * attributes, bool for boolean attributes, string for text attributes.
 */

// Top-level rule categories.
const (
	RuleCategoryFonts     = "fonts"
	RuleCategorySpacing   = "spacing"
	RuleCategorySection   = "section"
	RuleCategoryParagraph = "paragraph"
)

// Reserved per-style keys. Everything else in a style mapping is an attribute.
const (
	KeyBasedOn   = "based_on"
	KeyIsDefault = "is_default"
	KeyAliases   = "aliases"
)

// RuleSet maps attribute name to expected value.
type RuleSet map[string]any

// StyleRule is the rule mapping of one paragraph style.
type StyleRule struct {
	Name       string
	Attributes RuleSet
	BasedOn    string
	IsDefault  bool
	Aliases    []string
}

// RuleSpec is a loaded rule file. Immutable after load.
type RuleSpec struct {
	Fonts     RuleSet
	Spacing   RuleSet
	Section   RuleSet
	Paragraph map[string]*StyleRule
}

// Has reports whether key is present.
func (rs RuleSet) Has(key string) bool {
	_, ok := rs[key]
	return ok
}

// Float returns a numeric attribute.
func (rs RuleSet) Float(key string) (float64, bool) {
	v, ok := rs[key].(float64)
	return v, ok
}

// Bool returns a boolean attribute.
func (rs RuleSet) Bool(key string) (bool, bool) {
	v, ok := rs[key].(bool)
	return v, ok
}

// String returns a text attribute.
func (rs RuleSet) String(key string) (string, bool) {
	v, ok := rs[key].(string)
	return v, ok
}

// Keys returns the attribute names in sorted order.
func (rs RuleSet) Keys() []string {
	keys := make([]string, 0, len(rs))
	for k := range rs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge overlays other onto rs in place. Later values win.
func (rs RuleSet) Merge(other RuleSet) {
	for k, v := range other {
		rs[k] = v
	}
}

// StyleNames returns the paragraph style names in sorted order.
func (s *RuleSpec) StyleNames() []string {
	names := make([]string, 0, len(s.Paragraph))
	for name := range s.Paragraph {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
