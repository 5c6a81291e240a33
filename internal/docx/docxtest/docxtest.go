// Package docxtest builds minimal .docx packages in memory for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const ns = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const packageRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const (
	stylesRel = `<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>`
	themeRel  = `<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="theme/theme1.xml"/>`
)

// Package describes the parts of a test document. Body is the content of
// w:body; Styles is the content of w:styles; Theme is a complete theme part
// or empty to omit it. UnlinkedTheme stores the theme part without a
// relationship from the main document.
type Package struct {
	Body          string
	Styles        string
	Theme         string
	UnlinkedTheme bool
}

func (p Package) documentRels() string {
	rels := stylesRel
	if !p.UnlinkedTheme {
		rels += "\n" + themeRel
	}
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
` + rels + `
</Relationships>`
}

// Bytes returns the zipped package.
func (p Package) Bytes(t testing.TB) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := []struct{ name, body string }{
		{"[Content_Types].xml", contentTypes},
		{"_rels/.rels", packageRels},
		{"word/_rels/document.xml.rels", p.documentRels()},
		{"word/document.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			"<w:document " + ns + "><w:body>" + p.Body + "</w:body></w:document>"},
		{"word/styles.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			"<w:styles " + ns + ">" + p.Styles + "</w:styles>"},
	}
	if p.Theme != "" {
		files = append(files, struct{ name, body string }{"word/theme/theme1.xml", p.Theme})
	}
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			t.Fatalf("zip create %s: %v", f.name, err)
		}
		if _, err := w.Write([]byte(f.body)); err != nil {
			t.Fatalf("zip write %s: %v", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// Write stores the package as name under dir and returns its path.
func (p Package) Write(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, p.Bytes(t), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Para renders a w:p with optional w:pPr content.
func Para(ppr string, runs ...string) string {
	var b strings.Builder
	b.WriteString("<w:p>")
	if ppr != "" {
		b.WriteString("<w:pPr>" + ppr + "</w:pPr>")
	}
	for _, r := range runs {
		b.WriteString(r)
	}
	b.WriteString("</w:p>")
	return b.String()
}

// Run renders a w:r with optional w:rPr content and escaped text.
func Run(rpr, text string) string {
	var b strings.Builder
	b.WriteString("<w:r>")
	if rpr != "" {
		b.WriteString("<w:rPr>" + rpr + "</w:rPr>")
	}
	b.WriteString(`<w:t xml:space="preserve">`)
	_ = xml.EscapeText(&b, []byte(text))
	b.WriteString("</w:t></w:r>")
	return b.String()
}

// Style renders a w:style definition. An empty basedOn omits w:basedOn.
func Style(typ, id, name, basedOn, ppr, rpr string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<w:style w:type="%s" w:styleId="%s">`, typ, id)
	fmt.Fprintf(&b, `<w:name w:val="%s"/>`, name)
	if basedOn != "" {
		fmt.Fprintf(&b, `<w:basedOn w:val="%s"/>`, basedOn)
	}
	if ppr != "" {
		b.WriteString("<w:pPr>" + ppr + "</w:pPr>")
	}
	if rpr != "" {
		b.WriteString("<w:rPr>" + rpr + "</w:rPr>")
	}
	b.WriteString("</w:style>")
	return b.String()
}

// DefaultStyle renders a paragraph style marked w:default="1".
func DefaultStyle(id, name, ppr, rpr string) string {
	s := Style("paragraph", id, name, "", ppr, rpr)
	return strings.Replace(s, "<w:style ", `<w:style w:default="1" `, 1)
}

// DocDefaults renders w:docDefaults.
func DocDefaults(ppr, rpr string) string {
	return "<w:docDefaults><w:rPrDefault><w:rPr>" + rpr + "</w:rPr></w:rPrDefault>" +
		"<w:pPrDefault><w:pPr>" + ppr + "</w:pPr></w:pPrDefault></w:docDefaults>"
}

// SectPr renders a body-level section with margins in twips.
func SectPr(left, right, top, bottom int) string {
	return fmt.Sprintf(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/>`+
		`<w:pgMar w:top="%d" w:right="%d" w:bottom="%d" w:left="%d" w:header="851" w:footer="992" w:gutter="0"/></w:sectPr>`,
		top, right, bottom, left)
}

// Fonts renders w:rFonts with the four slots; empty slots are omitted.
func Fonts(ascii, hAnsi, eastAsia, cs string) string {
	var b strings.Builder
	b.WriteString("<w:rFonts")
	for _, a := range [][2]string{{"ascii", ascii}, {"hAnsi", hAnsi}, {"eastAsia", eastAsia}, {"cs", cs}} {
		if a[1] != "" {
			fmt.Fprintf(&b, ` w:%s="%s"`, a[0], a[1])
		}
	}
	b.WriteString("/>")
	return b.String()
}

// Size renders w:sz for a size in points.
func Size(pt float64) string {
	return fmt.Sprintf(`<w:sz w:val="%d"/>`, int(pt*2))
}

// OfficeTheme is a theme part with the default Office font scheme and an
// empty a:ea so the Hans script font applies.
const OfficeTheme = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="Office Theme">
<a:themeElements><a:fontScheme name="Office">
<a:majorFont><a:latin typeface="Calibri Light"/><a:ea typeface=""/><a:cs typeface=""/><a:font script="Hans" typeface="等线 Light"/></a:majorFont>
<a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface="Arial"/><a:font script="Hans" typeface="等线"/></a:minorFont>
</a:fontScheme></a:themeElements>
</a:theme>`
