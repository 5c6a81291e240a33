package resolve

import (
	"fmt"
	"strings"

	"github.com/solatis/formatkeeper/internal/docx"
	"github.com/solatis/formatkeeper/internal/types"
)

// Property names a resolvable paragraph property.
type Property string

const (
	PropAlignment       Property = "alignment"
	PropFirstLineIndent Property = "first_line_indent"
	PropLeftIndent      Property = "left_indent"
	PropRightIndent     Property = "right_indent"
	PropSpaceBefore     Property = "space_before"
	PropSpaceAfter      Property = "space_after"
	PropLineSpacing     Property = "line_spacing"
	PropKeepWithNext    Property = "keep_with_next"
	PropKeepTogether    Property = "keep_together"
	PropWidowControl    Property = "widow_control"
	PropPageBreakBefore Property = "page_break_before"
)

// ParagraphProperties lists every Property in display order.
var ParagraphProperties = []Property{
	PropAlignment,
	PropFirstLineIndent,
	PropLeftIndent,
	PropRightIndent,
	PropSpaceBefore,
	PropSpaceAfter,
	PropLineSpacing,
	PropKeepWithNext,
	PropKeepTogether,
	PropWidowControl,
	PropPageBreakBefore,
}

// Resolved is a concrete property value and the level that supplied it.
// Lengths are float64 points.
type Resolved struct {
	Value any
	Level Level
}

func (r Resolved) String() string {
	return fmt.Sprintf("%v (%s)", r.Value, r.Level)
}

// Built-in fallbacks when no level defines a value.
const (
	fallbackWidowControl = true
)

// paragraphValue walks direct formatting, the paragraph style chain and
// document defaults for one field, falling back to def.
func paragraphValue[T any](r *Resolver, p *docx.Paragraph, get func(docx.ParagraphFormat) types.Opt[T], def T) (T, Level) {
	if v, ok := get(p.Format).Get(); ok {
		return v, LevelDirect
	}
	for i, s := range r.paragraphChain(p) {
		if v, ok := get(s.Paragraph).Get(); ok {
			if i == 0 {
				return v, LevelStyle
			}
			return v, LevelBaseStyle
		}
	}
	if v, ok := get(r.src.Defaults().Paragraph).Get(); ok {
		return v, LevelDocDefault
	}
	return def, LevelBuiltin
}

func lengthPoints(r *Resolver, p *docx.Paragraph, get func(docx.ParagraphFormat) types.Opt[docx.Length]) (float64, Level) {
	v, lvl := paragraphValue(r, p, get, 0)
	return v.Points(), lvl
}

// Alignment resolves the paragraph justification. Defaults to left.
func (r *Resolver) Alignment(p *docx.Paragraph) (docx.Alignment, Level) {
	return paragraphValue(r, p, func(f docx.ParagraphFormat) types.Opt[docx.Alignment] { return f.Alignment }, docx.AlignLeft)
}

// FirstLineIndent resolves the first-line indent in points. Hanging indents
// are negative.
func (r *Resolver) FirstLineIndent(p *docx.Paragraph) (float64, Level) {
	return lengthPoints(r, p, func(f docx.ParagraphFormat) types.Opt[docx.Length] { return f.FirstLineIndent })
}

// LeftIndent resolves the left indent in points.
func (r *Resolver) LeftIndent(p *docx.Paragraph) (float64, Level) {
	return lengthPoints(r, p, func(f docx.ParagraphFormat) types.Opt[docx.Length] { return f.LeftIndent })
}

// RightIndent resolves the right indent in points.
func (r *Resolver) RightIndent(p *docx.Paragraph) (float64, Level) {
	return lengthPoints(r, p, func(f docx.ParagraphFormat) types.Opt[docx.Length] { return f.RightIndent })
}

// SpaceBefore resolves the spacing before the paragraph in points.
func (r *Resolver) SpaceBefore(p *docx.Paragraph) (float64, Level) {
	return lengthPoints(r, p, func(f docx.ParagraphFormat) types.Opt[docx.Length] { return f.SpaceBefore })
}

// SpaceAfter resolves the spacing after the paragraph in points.
func (r *Resolver) SpaceAfter(p *docx.Paragraph) (float64, Level) {
	return lengthPoints(r, p, func(f docx.ParagraphFormat) types.Opt[docx.Length] { return f.SpaceAfter })
}

func (r *Resolver) KeepWithNext(p *docx.Paragraph) (bool, Level) {
	return paragraphValue(r, p, func(f docx.ParagraphFormat) types.Opt[bool] { return f.KeepWithNext }, false)
}

func (r *Resolver) KeepTogether(p *docx.Paragraph) (bool, Level) {
	return paragraphValue(r, p, func(f docx.ParagraphFormat) types.Opt[bool] { return f.KeepTogether }, false)
}

// WidowControl defaults to on, as in Word.
func (r *Resolver) WidowControl(p *docx.Paragraph) (bool, Level) {
	return paragraphValue(r, p, func(f docx.ParagraphFormat) types.Opt[bool] { return f.WidowControl }, fallbackWidowControl)
}

func (r *Resolver) PageBreakBefore(p *docx.Paragraph) (bool, Level) {
	return paragraphValue(r, p, func(f docx.ParagraphFormat) types.Opt[bool] { return f.PageBreakBefore }, false)
}

// Paragraph resolves prop for p. Unknown properties resolve to a nil value
// at LevelBuiltin.
func (r *Resolver) Paragraph(p *docx.Paragraph, prop Property) Resolved {
	var v any
	var lvl Level
	switch prop {
	case PropAlignment:
		v, lvl = r.Alignment(p)
	case PropFirstLineIndent:
		v, lvl = r.FirstLineIndent(p)
	case PropLeftIndent:
		v, lvl = r.LeftIndent(p)
	case PropRightIndent:
		v, lvl = r.RightIndent(p)
	case PropSpaceBefore:
		v, lvl = r.SpaceBefore(p)
	case PropSpaceAfter:
		v, lvl = r.SpaceAfter(p)
	case PropLineSpacing:
		v, lvl = r.LineSpacing(p)
	case PropKeepWithNext:
		v, lvl = r.KeepWithNext(p)
	case PropKeepTogether:
		v, lvl = r.KeepTogether(p)
	case PropWidowControl:
		v, lvl = r.WidowControl(p)
	case PropPageBreakBefore:
		v, lvl = r.PageBreakBefore(p)
	default:
		return Resolved{Level: LevelBuiltin}
	}
	return Resolved{Value: v, Level: lvl}
}

// LineRule is the effective line-spacing rule of a paragraph.
type LineRule uint8

const (
	LineSingle LineRule = iota
	LineOnePointFive
	LineDouble
	LineMultiple
	LineExactly
	LineAtLeast
)

var lineRuleNames = [...]string{"single", "one_point_five", "double", "multiple", "exactly", "at_least"}

func (l LineRule) String() string {
	if int(l) < len(lineRuleNames) {
		return lineRuleNames[l]
	}
	return "unknown"
}

// ParseLineRule maps a rule keyword to a LineRule.
func ParseLineRule(s string) (LineRule, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range lineRuleNames {
		if s == name {
			return LineRule(i), true
		}
	}
	return 0, false
}

// IsMultiplier reports whether the rule scales with font size.
func (l LineRule) IsMultiplier() bool { return l <= LineMultiple }

// SingleMultiplier is the multiplier of single spacing on every path.
const SingleMultiplier = 1.0

const autoLineUnits = 240.0

// LineSpacing is a normalized line spacing. Multiplier is set for
// multiplier rules; Points is the resulting line height in points.
type LineSpacing struct {
	Rule       LineRule
	Multiplier float64
	Points     float64
}

func (l LineSpacing) String() string {
	if l.Rule.IsMultiplier() {
		return fmt.Sprintf("%s %.2f (%.2f pt)", l.Rule, l.Multiplier, l.Points)
	}
	return fmt.Sprintf("%s %.2f pt", l.Rule, l.Points)
}

// LineSpacing resolves and normalizes the paragraph line spacing.
// Multiplier rules resolve to multiplier × the paragraph's font size.
func (r *Resolver) LineSpacing(p *docx.Paragraph) (LineSpacing, Level) {
	raw, lvl := paragraphValue(r, p,
		func(f docx.ParagraphFormat) types.Opt[docx.LineSpacing] { return f.LineSpacing },
		docx.LineSpacing{Rule: docx.LineAuto, Line: autoLineUnits})

	var ls LineSpacing
	switch raw.Rule {
	case docx.LineExact:
		ls = LineSpacing{Rule: LineExactly, Points: docx.Length(raw.Line).Points()}
		return ls, lvl
	case docx.LineAtLeast:
		ls = LineSpacing{Rule: LineAtLeast, Points: docx.Length(raw.Line).Points()}
		return ls, lvl
	}

	switch raw.Line {
	case 240:
		ls = LineSpacing{Rule: LineSingle, Multiplier: SingleMultiplier}
	case 360:
		ls = LineSpacing{Rule: LineOnePointFive, Multiplier: 1.5}
	case 480:
		ls = LineSpacing{Rule: LineDouble, Multiplier: 2.0}
	default:
		ls = LineSpacing{Rule: LineMultiple, Multiplier: float64(raw.Line) / autoLineUnits}
	}
	size, _ := r.ParagraphFontSize(p)
	ls.Points = ls.Multiplier * size
	return ls, lvl
}

// ParagraphFontSize resolves the font size governing line height: the
// paragraph style chain, then the default paragraph style chain, then
// document defaults, then types.DefaultFontSizePt.
func (r *Resolver) ParagraphFontSize(p *docx.Paragraph) (float64, Level) {
	chain := r.paragraphChain(p)
	for i, s := range chain {
		if v, ok := s.Run.Size.Get(); ok {
			if i == 0 {
				return v, LevelStyle
			}
			return v, LevelBaseStyle
		}
	}
	if def, ok := r.src.DefaultStyle(docx.StyleParagraph); ok && (len(chain) == 0 || chain[0].ID != def.ID) {
		for _, s := range r.chain(def.ID, docx.StyleParagraph) {
			if v, ok := s.Run.Size.Get(); ok {
				return v, LevelBaseStyle
			}
		}
	}
	if v, lvl, ok := r.defaultSize(); ok {
		return v, lvl
	}
	return types.DefaultFontSizePt, LevelBuiltin
}
