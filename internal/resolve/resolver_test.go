package resolve

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/formatkeeper/internal/docx"
	"github.com/solatis/formatkeeper/internal/docx/docxtest"
	"github.com/solatis/formatkeeper/internal/types"
)

// fakeSource is an in-memory Source.
type fakeSource struct {
	styles   map[string]*docx.Style
	defaults docx.Defaults
	raw      map[string]string
}

func (f *fakeSource) Style(id string) (*docx.Style, bool) {
	s, ok := f.styles[id]
	return s, ok
}

func (f *fakeSource) DefaultStyle(t docx.StyleType) (*docx.Style, bool) {
	for _, s := range f.styles {
		if s.Default && s.Type == t {
			return s, true
		}
	}
	return nil, false
}

func (f *fakeSource) StyleCount() int { return len(f.styles) }
func (f *fakeSource) Defaults() docx.Defaults { return f.defaults }

func (f *fakeSource) RawAttr(part, attr string, path ...string) (string, bool) {
	v, ok := f.raw[strings.Join(append(path, attr), "/")]
	return v, ok
}

func openDoc(t *testing.T, styles, body string) (*docx.Document, *Resolver) {
	t.Helper()
	data := docxtest.Package{Styles: styles, Body: body}.Bytes(t)
	doc, err := docx.OpenReader(bytes.NewReader(data), int64(len(data)), "t.docx", nil)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	t.Cleanup(func() { _ = doc.Close() })
	return doc, New(doc, nil)
}

func TestParagraph_AbsenceVersusFalse(t *testing.T) {
	styles := docxtest.Style("paragraph", "Body", "Body", "", `<w:keepNext/>`, "")
	body := docxtest.Para(`<w:pStyle w:val="Body"/><w:keepNext w:val="0"/>`, docxtest.Run("", "x")) +
		docxtest.Para(`<w:pStyle w:val="Body"/>`, docxtest.Run("", "y"))
	doc, r := openDoc(t, styles, body)

	got, lvl := r.KeepWithNext(doc.Paragraphs()[0])
	if got != false || lvl != LevelDirect {
		t.Errorf("KeepWithNext(explicit false) = %v (%v), want false (direct)", got, lvl)
	}
	got, lvl = r.KeepWithNext(doc.Paragraphs()[1])
	if got != true || lvl != LevelStyle {
		t.Errorf("KeepWithNext(inherited) = %v (%v), want true (style)", got, lvl)
	}
}

func TestParagraph_CascadeLevels(t *testing.T) {
	styles := docxtest.DocDefaults(`<w:spacing w:after="200"/>`, "") +
		docxtest.DefaultStyle("Normal", "Normal", `<w:jc w:val="both"/>`, "") +
		docxtest.Style("paragraph", "Base", "Base", "Normal", `<w:ind w:firstLine="480"/>`, "") +
		docxtest.Style("paragraph", "Leaf", "Leaf", "Base", `<w:jc w:val="center"/>`, "")
	body := docxtest.Para(`<w:pStyle w:val="Leaf"/>`, docxtest.Run("", "x")) +
		docxtest.Para("", docxtest.Run("", "y"))
	doc, r := openDoc(t, styles, body)
	leaf, plain := doc.Paragraphs()[0], doc.Paragraphs()[1]

	tests := []struct {
		name      string
		p         *docx.Paragraph
		prop      Property
		wantValue any
		wantLevel Level
	}{
		{"own style", leaf, PropAlignment, docx.AlignCenter, LevelStyle},
		{"base style", leaf, PropFirstLineIndent, 24.0, LevelBaseStyle},
		{"doc default", leaf, PropSpaceAfter, 10.0, LevelDocDefault},
		{"builtin", leaf, PropSpaceBefore, 0.0, LevelBuiltin},
		{"builtin widow control", leaf, PropWidowControl, true, LevelBuiltin},
		{"unstyled uses default style", plain, PropAlignment, docx.AlignJustify, LevelStyle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Paragraph(tt.p, tt.prop)
			if got.Value != tt.wantValue || got.Level != tt.wantLevel {
				t.Errorf("Paragraph(%s) = %v, want %v (%s)", tt.prop, got, tt.wantValue, tt.wantLevel)
			}
		})
	}

	if name := r.StyleName(plain); name != "Normal" {
		t.Errorf("StyleName(unstyled) = %q, want Normal", name)
	}
}

func TestParagraph_StyleCycle(t *testing.T) {
	styles := docxtest.Style("paragraph", "A", "A", "B", "", "") +
		docxtest.Style("paragraph", "B", "B", "A", `<w:jc w:val="right"/>`, "")
	doc, r := openDoc(t, styles, docxtest.Para(`<w:pStyle w:val="A"/>`, docxtest.Run("", "x")))
	p := doc.Paragraphs()[0]

	got, lvl := r.Alignment(p)
	if got != docx.AlignRight || lvl != LevelBaseStyle {
		t.Errorf("Alignment() = %v (%v), want right (base-style)", got, lvl)
	}
	if n := len(r.chain("A", docx.StyleParagraph)); n != 2 {
		t.Errorf("chain(A) len = %d, want 2", n)
	}
	got, lvl = r.Alignment(p)
	if got != docx.AlignRight {
		t.Errorf("second Alignment() = %v (%v), want right", got, lvl)
	}
}

func TestParagraph_MissingStyles(t *testing.T) {
	styles := docxtest.DefaultStyle("Normal", "Normal", `<w:jc w:val="both"/>`, "") +
		docxtest.Style("paragraph", "Orphan", "Orphan", "Gone", `<w:ind w:firstLine="240"/>`, "")
	body := docxtest.Para(`<w:pStyle w:val="Orphan"/>`, docxtest.Run("", "x")) +
		docxtest.Para(`<w:pStyle w:val="Undefined"/>`, docxtest.Run("", "y"))
	doc, r := openDoc(t, styles, body)

	if v, _ := r.FirstLineIndent(doc.Paragraphs()[0]); v != 12 {
		t.Errorf("FirstLineIndent(orphan) = %v, want 12", v)
	}
	if v, _ := r.Alignment(doc.Paragraphs()[0]); v != docx.AlignLeft {
		t.Errorf("Alignment(orphan) = %v, want builtin left", v)
	}
	if v, lvl := r.Alignment(doc.Paragraphs()[1]); v != docx.AlignJustify || lvl != LevelStyle {
		t.Errorf("Alignment(undefined style) = %v (%v), want justify from default style", v, lvl)
	}
}

func TestLineSpacing(t *testing.T) {
	styles := docxtest.DocDefaults("", docxtest.Size(10.5)) +
		docxtest.Style("paragraph", "Big", "Big", "", "", docxtest.Size(12))
	tests := []struct {
		name       string
		ppr        string
		wantRule   LineRule
		wantMult   float64
		wantPoints float64
	}{
		{"default single", "", LineSingle, 1.0, 10.5},
		{"single with style size", `<w:pStyle w:val="Big"/><w:spacing w:line="240" w:lineRule="auto"/>`, LineSingle, 1.0, 12},
		{"one and a half", `<w:pStyle w:val="Big"/><w:spacing w:line="360"/>`, LineOnePointFive, 1.5, 18},
		{"double", `<w:spacing w:line="480" w:lineRule="auto"/>`, LineDouble, 2.0, 21},
		{"multiple", `<w:pStyle w:val="Big"/><w:spacing w:line="300" w:lineRule="auto"/>`, LineMultiple, 1.25, 15},
		{"word modern single is multiple", `<w:pStyle w:val="Big"/><w:spacing w:line="259" w:lineRule="auto"/>`, LineMultiple, 259.0 / 240, 259.0 / 240 * 12},
		{"exact", `<w:spacing w:line="400" w:lineRule="exact"/>`, LineExactly, 0, 20},
		{"at least", `<w:spacing w:line="300" w:lineRule="atLeast"/>`, LineAtLeast, 0, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, r := openDoc(t, styles, docxtest.Para(tt.ppr, docxtest.Run("", "x")))
			got, _ := r.LineSpacing(doc.Paragraphs()[0])
			if got.Rule != tt.wantRule ||
				math.Abs(got.Multiplier-tt.wantMult) > 1e-9 ||
				math.Abs(got.Points-tt.wantPoints) > 1e-9 {
				t.Errorf("LineSpacing() = %v, want %s x%.4f %.4f pt", got, tt.wantRule, tt.wantMult, tt.wantPoints)
			}
		})
	}
}

func TestLineSpacing_UnknownRuleFallsThrough(t *testing.T) {
	styles := docxtest.Style("paragraph", "Fixed", "Fixed", "", `<w:spacing w:line="400" w:lineRule="exact"/>`, "")
	doc, r := openDoc(t, styles, docxtest.Para(
		`<w:pStyle w:val="Fixed"/><w:spacing w:line="300" w:lineRule="bogus"/>`,
		docxtest.Run("", "x")))

	got, lvl := r.LineSpacing(doc.Paragraphs()[0])
	if got.Rule != LineExactly || math.Abs(got.Points-20) > 1e-9 || lvl != LevelStyle {
		t.Errorf("LineSpacing() = %v (%v), want exactly 20 pt from style", got, lvl)
	}
}

func TestParagraphFontSize_Fallback(t *testing.T) {
	doc, r := openDoc(t, "", docxtest.Para("", docxtest.Run("", "x")))
	if v, lvl := r.ParagraphFontSize(doc.Paragraphs()[0]); v != types.DefaultFontSizePt || lvl != LevelBuiltin {
		t.Errorf("ParagraphFontSize() = %v (%v), want %v (builtin)", v, lvl, types.DefaultFontSizePt)
	}
}

func TestFonts_PerSlotCascade(t *testing.T) {
	styles := docxtest.DocDefaults("", docxtest.Fonts("", "", "", "Arial")) +
		docxtest.DefaultStyle("Normal", "Normal", "", docxtest.Fonts("", "Cambria", "", "")) +
		docxtest.Style("character", "Emph", "Emph", "", "", docxtest.Fonts("", "", "黑体", "")+`<w:b/>`)
	body := docxtest.Para("",
		docxtest.Run(`<w:rStyle w:val="Emph"/>`+docxtest.Fonts("Times New Roman", "", "", "")+`<w:b w:val="0"/>`, "x"),
		docxtest.Run(`<w:rStyle w:val="Emph"/>`, "y"),
	)
	doc, r := openDoc(t, styles, body)
	p := doc.Paragraphs()[0]

	fonts := r.Fonts(&p.Runs[0], p)
	want := map[string]string{"ascii": "Times New Roman", "hAnsi": "Cambria", "eastAsia": "黑体", "cs": "Arial"}
	got := map[string]types.Opt[string]{"ascii": fonts.ASCII, "hAnsi": fonts.HighANSI, "eastAsia": fonts.EastAsia, "cs": fonts.ComplexScript}
	for slot, w := range want {
		if v, ok := got[slot].Get(); !ok || v != w {
			t.Errorf("Fonts().%s = %v, want %s", slot, got[slot], w)
		}
	}

	if b, lvl := r.Bold(&p.Runs[0], p); b || lvl != LevelDirect {
		t.Errorf("Bold(explicit false) = %v (%v), want false (direct)", b, lvl)
	}
	if b, lvl := r.Bold(&p.Runs[1], p); !b || lvl != LevelStyle {
		t.Errorf("Bold(char style) = %v (%v), want true (style)", b, lvl)
	}
	if i, lvl := r.Italic(&p.Runs[1], p); i || lvl != LevelBuiltin {
		t.Errorf("Italic() = %v (%v), want false (builtin)", i, lvl)
	}
}

func TestFonts_SlotsStayIndependent(t *testing.T) {
	doc, r := openDoc(t, "", docxtest.Para("", docxtest.Run(docxtest.Fonts("Times New Roman", "", "", ""), "x")))
	p := doc.Paragraphs()[0]
	fonts := r.Fonts(&p.Runs[0], p)
	if fonts.EastAsia.IsSet() || fonts.HighANSI.IsSet() || fonts.ComplexScript.IsSet() {
		t.Errorf("Fonts() = %+v, want only ascii set", fonts)
	}
}

func TestFonts_RawThemeFallback(t *testing.T) {
	src := &fakeSource{
		styles: map[string]*docx.Style{},
		raw: map[string]string{
			"docDefaults/rPrDefault/rPr/rFonts/eastAsiaTheme":   "minorEastAsia",
			"docDefaults/rPrDefault/rPr/rFonts/asciiTheme":      "majorHAnsi",
			"docDefaults/rPrDefault/rPr/rFonts/cstheme":         "minorBogus",
			"themeElements/fontScheme/minorFont/ea/typeface":    "宋体",
			"themeElements/fontScheme/majorFont/latin/typeface": "Cambria",
		},
	}
	r := New(src, nil)
	p := &docx.Paragraph{Runs: []docx.Run{{Text: "字"}}}
	fonts := r.Fonts(&p.Runs[0], p)

	if v, ok := fonts.EastAsia.Get(); !ok || v != "宋体" {
		t.Errorf("Fonts().EastAsia = %q, %v, want 宋体 from raw theme", v, ok)
	}
	if v, ok := fonts.ASCII.Get(); !ok || v != "Cambria" {
		t.Errorf("Fonts().ASCII = %q, %v, want Cambria from raw theme", v, ok)
	}
	if fonts.HighANSI.IsSet() || fonts.ComplexScript.IsSet() {
		t.Errorf("Fonts() = %+v, want hAnsi and cs unset", fonts)
	}
}

func TestFonts_UnlinkedThemePart(t *testing.T) {
	styles := docxtest.DocDefaults("", `<w:rFonts w:asciiTheme="minorHAnsi" w:hAnsiTheme="minorHAnsi"/>`)
	tests := []struct {
		name     string
		unlinked bool
	}{
		{name: "linked theme", unlinked: false},
		{name: "unlinked theme", unlinked: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := docxtest.Package{
				Styles:        styles,
				Body:          docxtest.Para("", docxtest.Run("", "text")),
				Theme:         docxtest.OfficeTheme,
				UnlinkedTheme: tt.unlinked,
			}.Bytes(t)
			doc, err := docx.OpenReader(bytes.NewReader(data), int64(len(data)), "t.docx", nil)
			if err != nil {
				t.Fatalf("OpenReader() error = %v", err)
			}
			defer doc.Close()
			p := doc.Paragraphs()[0]
			fonts := New(doc, nil).Fonts(&p.Runs[0], p)
			if v, ok := fonts.ASCII.Get(); !ok || v != "Calibri" {
				t.Errorf("Fonts().ASCII = %q, %v, want Calibri", v, ok)
			}
			if v, ok := fonts.HighANSI.Get(); !ok || v != "Calibri" {
				t.Errorf("Fonts().HighANSI = %q, %v, want Calibri", v, ok)
			}
		})
	}
}

func TestFontSize_DocDefaultsComplexScriptFallback(t *testing.T) {
	src := &fakeSource{
		styles:   map[string]*docx.Style{},
		defaults: docx.Defaults{Run: docx.RunFormat{SizeCS: types.Some(14.0)}},
	}
	r := New(src, nil)
	p := &docx.Paragraph{Runs: []docx.Run{{Text: "x"}}}
	if v, lvl := r.FontSize(&p.Runs[0], p); v != 14 || lvl != LevelDocDefault {
		t.Errorf("FontSize() = %v (%v), want 14 (doc-default)", v, lvl)
	}
}

// Property-based test: the first level holding a value wins, explicit false included
func TestParagraph_PropertyFirstDefinedWins(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	opt := func(set, v bool) types.Opt[bool] {
		if set {
			return types.Some(v)
		}
		return types.None[bool]()
	}

	properties.Property("keep_with_next resolves to the nearest defined level", prop.ForAll(
		func(levels []bool) bool {
			direct := opt(levels[0], levels[1])
			style := opt(levels[2], levels[3])
			base := opt(levels[4], levels[5])
			def := opt(levels[6], levels[7])

			src := &fakeSource{
				styles: map[string]*docx.Style{
					"S": {ID: "S", Type: docx.StyleParagraph, BasedOn: "B", Paragraph: docx.ParagraphFormat{KeepWithNext: style}},
					"B": {ID: "B", Type: docx.StyleParagraph, Paragraph: docx.ParagraphFormat{KeepWithNext: base}},
				},
				defaults: docx.Defaults{Paragraph: docx.ParagraphFormat{KeepWithNext: def}},
			}
			p := &docx.Paragraph{StyleID: "S", Format: docx.ParagraphFormat{KeepWithNext: direct}}
			got, _ := New(src, nil).KeepWithNext(p)

			want := direct.Else(style).Else(base).Else(def).Or(false)
			return got == want
		},
		gen.SliceOfN(8, gen.Bool()),
	))

	properties.TestingRun(t)
}

// Property-based test: style chains terminate for arbitrary based_on graphs
func TestChain_PropertyTerminates(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	ids := []string{"A", "B", "C", "D", "E"}
	properties.Property("chain length is bounded by style count", prop.ForAll(
		func(bases []int) bool {
			src := &fakeSource{styles: map[string]*docx.Style{}}
			for i, id := range ids {
				src.styles[id] = &docx.Style{ID: id, Type: docx.StyleParagraph, BasedOn: ids[bases[i]]}
			}
			r := New(src, nil)
			for _, id := range ids {
				if len(r.chain(id, docx.StyleParagraph)) > len(ids) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(len(ids), gen.IntRange(0, len(ids)-1)),
	))

	properties.TestingRun(t)
}
