package docx

import (
	"fmt"
	"log/slog"

	"github.com/solatis/formatkeeper/internal/types"
)

// propReader converts w:pPr and w:rPr elements into partial formats.
// A malformed attribute is logged and left unset so the cascade continues
// at the next level.
type propReader struct {
	log   *slog.Logger
	theme themeFonts
}

func (pr *propReader) warn(where string, n *Node, err error) {
	pr.log.Warn("ignoring malformed attribute", "where", where, "element", n.String(), "error", err)
}

func (pr *propReader) onOff(n *Node, where string) types.Opt[bool] {
	if n == nil {
		return types.None[bool]()
	}
	v, err := parseOnOff(n)
	if err != nil {
		pr.warn(where, n, err)
		return types.None[bool]()
	}
	return types.Some(v)
}

func (pr *propReader) length(n *Node, attr, where string) types.Opt[Length] {
	s, ok := n.Attr(attr)
	if !ok {
		return types.None[Length]()
	}
	l, err := ParseTwips(s)
	if err != nil {
		pr.warn(where, n, err)
		return types.None[Length]()
	}
	return types.Some(l)
}

// paragraph reads a w:pPr element. A nil element yields an empty format.
func (pr *propReader) paragraph(ppr *Node, where string) ParagraphFormat {
	var f ParagraphFormat
	if ppr == nil {
		return f
	}

	if jc := ppr.Child("jc"); jc != nil {
		v, _ := jc.Val()
		if a, ok := jcAlignment[v]; ok {
			f.Alignment = types.Some(a)
		} else {
			pr.warn(where, jc, types.ErrCoercionFailed)
		}
	}

	if ind := ppr.Child("ind"); ind != nil {
		// hanging overrides firstLine when both are present.
		if h := pr.length(ind, "hanging", where); h.IsSet() {
			v, _ := h.Get()
			f.FirstLineIndent = types.Some(-v)
		} else {
			f.FirstLineIndent = pr.length(ind, "firstLine", where)
		}
		f.LeftIndent = pr.length(ind, "left", where).Else(pr.length(ind, "start", where))
		f.RightIndent = pr.length(ind, "right", where).Else(pr.length(ind, "end", where))
	}

	if sp := ppr.Child("spacing"); sp != nil {
		f.SpaceBefore = pr.length(sp, "before", where)
		f.SpaceAfter = pr.length(sp, "after", where)
		f.LineSpacing = pr.lineSpacing(sp, where)
	}

	f.KeepWithNext = pr.onOff(ppr.Child("keepNext"), where)
	f.KeepTogether = pr.onOff(ppr.Child("keepLines"), where)
	f.WidowControl = pr.onOff(ppr.Child("widowControl"), where)
	f.PageBreakBefore = pr.onOff(ppr.Child("pageBreakBefore"), where)
	return f
}

// lineSpacing reads w:line with its w:lineRule. An unknown rule makes the
// pair absent at this level, like any other malformed value.
func (pr *propReader) lineSpacing(sp *Node, where string) types.Opt[LineSpacing] {
	line := pr.length(sp, "line", where)
	v, ok := line.Get()
	if !ok {
		return types.None[LineSpacing]()
	}
	ls := LineSpacing{Rule: LineAuto, Line: int32(v)}
	rule, _ := sp.Attr("lineRule")
	switch rule {
	case "", "auto":
	case "exact":
		ls.Rule = LineExact
	case "atLeast":
		ls.Rule = LineAtLeast
	default:
		pr.warn(where, sp, fmt.Errorf("%w: lineRule %q", types.ErrCoercionFailed, rule))
		return types.None[LineSpacing]()
	}
	return types.Some(ls)
}

// run reads a w:rPr element. A nil element yields an empty format.
func (pr *propReader) run(rpr *Node, where string) RunFormat {
	var f RunFormat
	if rpr == nil {
		return f
	}
	if fonts := rpr.Child("rFonts"); fonts != nil {
		f.Fonts = FontSlots{
			ASCII:         pr.font(fonts, "ascii", "asciiTheme"),
			HighANSI:      pr.font(fonts, "hAnsi", "hAnsiTheme"),
			EastAsia:      pr.font(fonts, "eastAsia", "eastAsiaTheme"),
			ComplexScript: pr.font(fonts, "cs", "cstheme"),
		}
	}
	f.Size = pr.size(rpr.Child("sz"), where)
	f.SizeCS = pr.size(rpr.Child("szCs"), where)
	f.Bold = pr.onOff(rpr.Child("b"), where)
	f.Italic = pr.onOff(rpr.Child("i"), where)
	return f
}

// font resolves one rFonts slot. A theme reference wins over the literal
// name, matching how Word applies the pair.
func (pr *propReader) font(fonts *Node, slot, themeAttr string) types.Opt[string] {
	if ref, ok := fonts.Attr(themeAttr); ok {
		if name, ok := pr.theme.lookup(ref); ok {
			return types.Some(name)
		}
	}
	if name, ok := fonts.Attr(slot); ok && name != "" {
		return types.Some(name)
	}
	return types.None[string]()
}

func (pr *propReader) size(n *Node, where string) types.Opt[float64] {
	if n == nil {
		return types.None[float64]()
	}
	v, ok := n.Val()
	if !ok {
		return types.None[float64]()
	}
	pt, err := ParseHalfPoints(v)
	if err != nil {
		pr.warn(where, n, err)
		return types.None[float64]()
	}
	return types.Some(pt)
}
