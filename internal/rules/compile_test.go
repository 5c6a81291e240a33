// internal/rules/compile_test.go
package rules

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/solatis/formatkeeper/internal/script"
	"github.com/solatis/formatkeeper/internal/types"
)

func TestCompile_AllCategories(t *testing.T) {
	raw := map[string]any{
		"fonts":   map[string]any{"font_size_pt": 12, "chinese_font": "宋体"},
		"spacing": map[string]any{"require_space_between_cn_en": true, "space_after_chinese_punctuation": "none"},
		"section": map[string]any{"left_margin_cm": "3.17", "top_margin_cm": 2.54},
		"paragraph": map[string]any{
			"论文正文": map[string]any{
				"is_default":           true,
				"first_line_indent_pt": 24,
				"alignment":            "Justify",
				"line_spacing_rule":    "one_point_five",
				"bold":                 false,
			},
			"标题1": map[string]any{
				"based_on": "论文正文",
				"aliases":  []any{"Heading 1", "heading 1"},
				"bold":     true,
			},
		},
	}

	spec, err := Compile(raw)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if got, _ := spec.Fonts.Float(AttrFontSize); got != 12 {
		t.Errorf("fonts.font_size_pt = %v, want 12", got)
	}
	if got, _ := spec.Section.Float(AttrLeftMargin); got != 3.17 {
		t.Errorf("section.left_margin_cm = %v, want 3.17", got)
	}
	if got, _ := spec.Spacing.Bool(script.RuleSpaceCNEN); !got {
		t.Errorf("spacing.%s = false, want true", script.RuleSpaceCNEN)
	}

	body := spec.Paragraph["论文正文"]
	if body == nil || !body.IsDefault {
		t.Fatalf("论文正文 missing or not default: %+v", body)
	}
	if got, _ := body.Attributes.String(AttrAlignment); got != "justify" {
		t.Errorf("alignment = %q, want lowercased %q", got, "justify")
	}
	if body.Attributes.Has(types.KeyIsDefault) {
		t.Error("reserved key is_default leaked into attributes")
	}

	h1 := spec.Paragraph["标题1"]
	if h1.BasedOn != "论文正文" {
		t.Errorf("based_on = %q, want 论文正文", h1.BasedOn)
	}
	if want := []string{"Heading 1", "heading 1"}; !slices.Equal(h1.Aliases, want) {
		t.Errorf("aliases = %v, want %v", h1.Aliases, want)
	}
	if got := spec.StyleNames(); !slices.Equal(got, []string{"标题1", "论文正文"}) {
		t.Errorf("StyleNames() = %v", got)
	}
}

func TestCompile_NullAttributeDropped(t *testing.T) {
	spec, err := Compile(map[string]any{
		"fonts": map[string]any{"bold": nil, "italic": false},
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if spec.Fonts.Has(AttrBold) {
		t.Error("null bold should be dropped")
	}
	if !spec.Fonts.Has(AttrItalic) {
		t.Error("italic: false must be kept; false is not absence")
	}
}

func TestCompile_FontFlagSpellings(t *testing.T) {
	tests := []struct {
		name       string
		attrs      map[string]any
		wantBold   bool
		wantItalic bool
	}{
		{name: "font_ prefixed", attrs: map[string]any{"font_bold": true, "font_italic": false}, wantBold: true},
		{name: "short alias", attrs: map[string]any{"bold": true, "italic": true}, wantBold: true, wantItalic: true},
		{name: "mixed", attrs: map[string]any{"bold": false, "font_italic": true}, wantItalic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Compile(map[string]any{"paragraph": map[string]any{"Body": tt.attrs}})
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			rs := spec.Paragraph["Body"].Attributes
			if got, ok := rs.Bool(AttrBold); !ok || got != tt.wantBold {
				t.Errorf("%s = %v, %v, want %v", AttrBold, got, ok, tt.wantBold)
			}
			if got, ok := rs.Bool(AttrItalic); !ok || got != tt.wantItalic {
				t.Errorf("%s = %v, %v, want %v", AttrItalic, got, ok, tt.wantItalic)
			}
			if rs.Has("bold") || rs.Has("italic") {
				t.Errorf("attributes = %v, want only canonical names", rs)
			}
		})
	}
}

func TestCompile_FontFlagDuplicateSpelling(t *testing.T) {
	_, err := Compile(map[string]any{
		"fonts": map[string]any{"bold": true, "font_bold": false},
	})
	if err == nil || !strings.Contains(err.Error(), "duplicates font_bold") {
		t.Errorf("Compile() error = %v, want duplicate font_bold", err)
	}
}

func TestCompile_YAMLMapShape(t *testing.T) {
	raw := map[string]any{
		"paragraph": map[any]any{
			"Body": map[any]any{"space_after_pt": 6},
		},
	}
	spec, err := Compile(raw)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if got, _ := spec.Paragraph["Body"].Attributes.Float(AttrSpaceAfter); got != 6 {
		t.Errorf("space_after_pt = %v, want 6", got)
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		raw      map[string]any
		wantErr  error
		contains []string
	}{
		{
			name:     "unknown category",
			raw:      map[string]any{"tables": map[string]any{}},
			contains: []string{`unknown category "tables"`},
		},
		{
			name:     "unknown attribute",
			raw:      map[string]any{"fonts": map[string]any{"colour": "red"}},
			wantErr:  types.ErrUnknownAttribute,
			contains: []string{"fonts.colour"},
		},
		{
			name:     "attribute in wrong category",
			raw:      map[string]any{"section": map[string]any{"bold": true}},
			contains: []string{"section.bold: attribute not allowed here"},
		},
		{
			name:     "section attribute in style",
			raw:      map[string]any{"paragraph": map[string]any{"A": map[string]any{"left_margin_cm": 3}}},
			contains: []string{"paragraph.A.left_margin_cm"},
		},
		{
			name:     "numeric coercion failure",
			raw:      map[string]any{"fonts": map[string]any{"font_size_pt": "big"}},
			wantErr:  types.ErrCoercionFailed,
			contains: []string{"want number"},
		},
		{
			name:     "boolean is strict",
			raw:      map[string]any{"fonts": map[string]any{"bold": "yes"}},
			wantErr:  types.ErrCoercionFailed,
			contains: []string{"fonts.bold"},
		},
		{
			name:     "enum violation",
			raw:      map[string]any{"paragraph": map[string]any{"A": map[string]any{"alignment": "middle"}}},
			contains: []string{`"middle" not one of`},
		},
		{
			name:     "category not a mapping",
			raw:      map[string]any{"fonts": []any{"x"}},
			contains: []string{"fonts: expected a mapping"},
		},
		{
			name:     "style not a mapping",
			raw:      map[string]any{"paragraph": map[string]any{"A": "x"}},
			contains: []string{"paragraph.A: expected a mapping"},
		},
		{
			name:     "based_on not a string",
			raw:      map[string]any{"paragraph": map[string]any{"A": map[string]any{"based_on": 3}}},
			contains: []string{"paragraph.A.based_on"},
		},
		{
			name: "two default styles",
			raw: map[string]any{"paragraph": map[string]any{
				"A": map[string]any{"is_default": true},
				"B": map[string]any{"is_default": true},
			}},
			wantErr:  types.ErrDuplicateDefaultStyle,
			contains: []string{"A, B"},
		},
		{
			name: "alias names a rule style",
			raw: map[string]any{"paragraph": map[string]any{
				"A": map[string]any{"aliases": []any{"B"}},
				"B": map[string]any{},
			}},
			contains: []string{`"B" is itself a rule style`},
		},
		{
			name: "alias claimed twice",
			raw: map[string]any{"paragraph": map[string]any{
				"A": map[string]any{"aliases": "Body Text"},
				"B": map[string]any{"aliases": []any{"Body Text"}},
			}},
			contains: []string{`"Body Text" already an alias of A`},
		},
		{
			name: "every problem reported",
			raw: map[string]any{
				"fonts":   map[string]any{"colour": "red"},
				"section": map[string]any{"left_margin_cm": "wide"},
			},
			contains: []string{"fonts.colour", "section.left_margin_cm"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.raw)
			if err == nil {
				t.Fatal("Compile() error = nil, want error")
			}
			if !errors.Is(err, types.ErrInvalidRuleSpec) {
				t.Errorf("error %v does not wrap ErrInvalidRuleSpec", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error %v does not wrap %v", err, tt.wantErr)
			}
			for _, s := range tt.contains {
				if !strings.Contains(err.Error(), s) {
					t.Errorf("error %q does not mention %q", err, s)
				}
			}
		})
	}
}

func TestAttributes_Registry(t *testing.T) {
	attrs := Attributes()
	if !slices.IsSortedFunc(attrs, func(a, b Attribute) int { return strings.Compare(a.Name, b.Name) }) {
		t.Error("Attributes() not sorted by name")
	}
	for _, rule := range script.Rules {
		a, ok := LookupAttribute(rule)
		if !ok {
			t.Errorf("spacing rule %q not registered", rule)
			continue
		}
		if a.Scope != ScopeSpacing {
			t.Errorf("%s scope = %v, want spacing", rule, a.Scope)
		}
	}
	for _, a := range attrs {
		if strings.HasSuffix(a.Name, "_cm") || strings.HasSuffix(a.Name, "_pt") {
			if a.Type != FieldTypeNumeric {
				t.Errorf("%s has unit suffix but type %s", a.Name, a.Type)
			}
		}
	}
}
