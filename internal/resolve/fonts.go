package resolve

import (
	"strings"

	"github.com/solatis/formatkeeper/internal/docx"
	"github.com/solatis/formatkeeper/internal/types"
)

// defaultThemePart is where Word writes the theme. The raw lookup uses it
// for packages that do not link the theme from the main document, where
// theme references in the defaults parse to nothing.
const defaultThemePart = "word/theme/theme1.xml"

// defaultFontsPath is the raw path to w:rFonts of the default run
// properties in the styles part.
var defaultFontsPath = []string{"docDefaults", "rPrDefault", "rPr", "rFonts"}

// themeElements maps the slot suffix of a theme reference to the
// a:fontScheme child holding its typeface.
var themeElements = map[string]string{
	"Ascii":    "latin",
	"HAnsi":    "latin",
	"EastAsia": "ea",
	"Bidi":     "cs",
}

// runValue walks the run cascade for one scalar: direct run formatting, the
// character style chain, the paragraph style chain, document defaults.
// An unset result means no level defined the value.
func runValue[T any](r *Resolver, run *docx.Run, p *docx.Paragraph, get func(docx.RunFormat) types.Opt[T]) (types.Opt[T], Level) {
	if v := get(run.Format); v.IsSet() {
		return v, LevelDirect
	}
	for i, s := range r.characterChain(run) {
		if v := get(s.Run); v.IsSet() {
			if i == 0 {
				return v, LevelStyle
			}
			return v, LevelBaseStyle
		}
	}
	for _, s := range r.paragraphChain(p) {
		if v := get(s.Run); v.IsSet() {
			return v, LevelParagraphStyle
		}
	}
	if v := get(r.src.Defaults().Run); v.IsSet() {
		return v, LevelDocDefault
	}
	return types.None[T](), LevelBuiltin
}

// Fonts resolves the four font slots of run independently. A slot no level
// defines stays unset; slots are never filled from one another.
func (r *Resolver) Fonts(run *docx.Run, p *docx.Paragraph) docx.FontSlots {
	slot := func(get func(docx.FontSlots) types.Opt[string], attr string) types.Opt[string] {
		v, _ := runValue(r, run, p, func(f docx.RunFormat) types.Opt[string] { return get(f.Fonts) })
		if v.IsSet() {
			return v
		}
		if name, ok := r.rawThemeFont(attr); ok {
			return types.Some(name)
		}
		return v
	}
	return docx.FontSlots{
		ASCII:         slot(func(f docx.FontSlots) types.Opt[string] { return f.ASCII }, "asciiTheme"),
		HighANSI:      slot(func(f docx.FontSlots) types.Opt[string] { return f.HighANSI }, "hAnsiTheme"),
		EastAsia:      slot(func(f docx.FontSlots) types.Opt[string] { return f.EastAsia }, "eastAsiaTheme"),
		ComplexScript: slot(func(f docx.FontSlots) types.Opt[string] { return f.ComplexScript }, "cstheme"),
	}
}

// rawThemeFont follows the theme reference of a default font slot, such
// as w:eastAsiaTheme="minorEastAsia", into the raw theme part.
func (r *Resolver) rawThemeFont(themeAttr string) (string, bool) {
	ref, ok := r.src.RawAttr("", themeAttr, defaultFontsPath...)
	if !ok {
		return "", false
	}
	var kind string
	switch {
	case strings.HasPrefix(ref, "major"):
		kind = "majorFont"
	case strings.HasPrefix(ref, "minor"):
		kind = "minorFont"
	default:
		return "", false
	}
	elem, ok := themeElements[ref[len("major"):]]
	if !ok {
		return "", false
	}
	name, ok := r.src.RawAttr(defaultThemePart, "typeface", "themeElements", "fontScheme", kind, elem)
	if ok && name != "" {
		r.log.Debug("default font from unlinked theme part", "ref", ref, "font", name)
		return name, true
	}
	return "", false
}

// FontSize resolves the run font size in points, falling back to
// types.DefaultFontSizePt.
func (r *Resolver) FontSize(run *docx.Run, p *docx.Paragraph) (float64, Level) {
	v, lvl := runValue(r, run, p, func(f docx.RunFormat) types.Opt[float64] { return f.Size })
	if size, ok := v.Get(); ok {
		return size, lvl
	}
	if size, lvl, ok := r.defaultSize(); ok {
		return size, lvl
	}
	return types.DefaultFontSizePt, LevelBuiltin
}

// Bold resolves the run weight. Defaults to false.
func (r *Resolver) Bold(run *docx.Run, p *docx.Paragraph) (bool, Level) {
	v, lvl := runValue(r, run, p, func(f docx.RunFormat) types.Opt[bool] { return f.Bold })
	return v.Or(false), lvl
}

// Italic resolves the run slant. Defaults to false.
func (r *Resolver) Italic(run *docx.Run, p *docx.Paragraph) (bool, Level) {
	v, lvl := runValue(r, run, p, func(f docx.RunFormat) types.Opt[bool] { return f.Italic })
	return v.Or(false), lvl
}

// defaultSize reads the document default size: w:sz, then w:szCs.
func (r *Resolver) defaultSize() (float64, Level, bool) {
	d := r.src.Defaults().Run
	if v, ok := d.Size.Else(d.SizeCS).Get(); ok {
		return v, LevelDocDefault, true
	}
	return 0, LevelBuiltin, false
}
