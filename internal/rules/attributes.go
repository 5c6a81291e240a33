package rules

import (
	"sort"

	"github.com/solatis/formatkeeper/internal/script"
	"github.com/solatis/formatkeeper/internal/types"
)

// Scope says where an attribute may appear.
type Scope uint8

const (
	ScopeSection Scope = 1 << iota
	ScopeParagraph
	ScopeRun
	ScopeSpacing
)

// Attribute describes one recognized rule attribute.
type Attribute struct {
	Name  string
	Type  FieldType
	Scope Scope
	Enum  []string
}

// Attribute names understood by the evaluation engine.
const (
	AttrLeftMargin   = "left_margin_cm"
	AttrRightMargin  = "right_margin_cm"
	AttrTopMargin    = "top_margin_cm"
	AttrBottomMargin = "bottom_margin_cm"
	AttrPageWidth    = "page_width_cm"
	AttrPageHeight   = "page_height_cm"

	AttrAlignment         = "alignment"
	AttrFirstLineIndent   = "first_line_indent_pt"
	AttrFirstLineIndentCm = "first_line_indent_cm"
	AttrLeftIndent        = "left_indent_pt"
	AttrRightIndent       = "right_indent_pt"
	AttrLineSpacingRule   = "line_spacing_rule"
	AttrLineSpacingValue  = "line_spacing_value"
	AttrSpaceBefore       = "space_before_pt"
	AttrSpaceAfter        = "space_after_pt"
	AttrKeepWithNext      = "keep_with_next"
	AttrKeepTogether      = "keep_together"
	AttrWidowControl      = "widow_control"
	AttrPageBreakBefore   = "page_break_before"

	AttrFontSize    = "font_size_pt"
	AttrBold        = "font_bold"
	AttrItalic      = "font_italic"
	AttrChineseFont = "chinese_font"
	AttrWesternFont = "western_font"
)

var (
	alignmentEnum  = []string{"left", "center", "right", "justify", "distribute"}
	lineRuleEnum   = []string{"single", "one_point_five", "double", "multiple", "exactly", "at_least"}
	punctSpaceEnum = []string{"none", "any"}
)

var registry = map[string]Attribute{}

// attributeAliases are alternate spellings accepted in rule files. Older
// rule files write bold and italic without the font_ prefix.
var attributeAliases = map[string]string{
	"bold":   AttrBold,
	"italic": AttrItalic,
}

// CanonicalAttribute maps an accepted alias to its attribute name. Other
// names are returned unchanged.
func CanonicalAttribute(name string) string {
	if canonical, ok := attributeAliases[name]; ok {
		return canonical
	}
	return name
}

func register(scope Scope, typ FieldType, names ...string) {
	for _, n := range names {
		registry[n] = Attribute{Name: n, Type: typ, Scope: scope}
	}
}

func init() {
	register(ScopeSection, FieldTypeNumeric,
		AttrLeftMargin, AttrRightMargin, AttrTopMargin, AttrBottomMargin, AttrPageWidth, AttrPageHeight)

	register(ScopeParagraph, FieldTypeNumeric,
		AttrFirstLineIndent, AttrFirstLineIndentCm, AttrLeftIndent, AttrRightIndent,
		AttrLineSpacingValue, AttrSpaceBefore, AttrSpaceAfter)
	register(ScopeParagraph, FieldTypeBoolean,
		AttrKeepWithNext, AttrKeepTogether, AttrWidowControl, AttrPageBreakBefore)
	registry[AttrAlignment] = Attribute{Name: AttrAlignment, Type: FieldTypeText, Scope: ScopeParagraph, Enum: alignmentEnum}
	registry[AttrLineSpacingRule] = Attribute{Name: AttrLineSpacingRule, Type: FieldTypeText, Scope: ScopeParagraph, Enum: lineRuleEnum}

	register(ScopeRun, FieldTypeNumeric, AttrFontSize)
	register(ScopeRun, FieldTypeBoolean, AttrBold, AttrItalic)
	register(ScopeRun, FieldTypeText, AttrChineseFont, AttrWesternFont)

	register(ScopeSpacing, FieldTypeBoolean,
		script.RuleSpaceCNEN, script.RuleSpaceCNNumber, script.RuleSpaceENNumber,
		script.RuleFullWidthBrackets, script.RulePunctToWesternNum)
	registry[script.RuleChinesePunctSpace] = Attribute{
		Name: script.RuleChinesePunctSpace, Type: FieldTypeText, Scope: ScopeSpacing, Enum: punctSpaceEnum,
	}
}

// categoryScope is the scope each top-level category accepts. Style rules
// accept every non-section attribute.
var categoryScope = map[string]Scope{
	types.RuleCategoryFonts:     ScopeRun,
	types.RuleCategorySpacing:   ScopeSpacing,
	types.RuleCategorySection:   ScopeSection,
	types.RuleCategoryParagraph: ScopeParagraph | ScopeRun | ScopeSpacing,
}

// LookupAttribute returns the registry entry for name.
func LookupAttribute(name string) (Attribute, bool) {
	a, ok := registry[name]
	return a, ok
}

// Attributes returns every registered attribute sorted by name.
func Attributes() []Attribute {
	out := make([]Attribute, 0, len(registry))
	for _, a := range registry {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
