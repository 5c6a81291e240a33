// Package docx reads the parts of a WordprocessingML (.docx) package needed
// for formatting checks: body paragraphs and runs, sections, styles,
// document defaults and theme fonts.
//
// Every formatting property is exposed as a partial value (types.Opt) so
// callers can tell "absent at this level" from an explicit off or zero.
// The raw XML of any part remains queryable through RawAttr.
package docx

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/solatis/formatkeeper/internal/types"
)

const (
	defaultMainPart = "word/document.xml"
	maxPartSize     = 64 << 20

	relOfficeDocument = "/officeDocument"
	relStyles         = "/styles"
	relTheme          = "/theme"
)

// Section is one w:sectPr. Margins and page size are partial because a
// section may omit w:pgMar or w:pgSz entirely.
type Section struct {
	Left, Right, Top, Bottom types.Opt[Length]
	PageWidth, PageHeight    types.Opt[Length]
}

// Run is one w:r, including runs nested in hyperlinks and insertions.
type Run struct {
	StyleID string
	Format  RunFormat
	Text    string
}

// Paragraph is one body-level w:p.
type Paragraph struct {
	StyleID string
	Format  ParagraphFormat
	Runs    []Run
	text    string
}

// Text is the concatenation of the run texts.
func (p *Paragraph) Text() string { return p.text }

// Len is the length of Text in code points.
func (p *Paragraph) Len() int { return utf8.RuneCountInString(p.text) }

// Document is an opened .docx package. It holds the underlying archive open
// until Close so raw parts stay queryable.
type Document struct {
	Name string

	zr     *zip.Reader
	closer io.Closer
	log    *slog.Logger

	mainPart   string
	stylesPart string

	sections   []Section
	paragraphs []*Paragraph
	sheet      styleSheet
	raw        map[string]*Node
}

// Open reads the document at path.
// Errors wrap types.ErrDocumentUnreadable.
func Open(path string, log *slog.Logger) (*Document, error) {
	zrc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrDocumentUnreadable, err)
	}
	doc, err := load(&zrc.Reader, path, log)
	if err != nil {
		zrc.Close()
		return nil, err
	}
	doc.closer = zrc
	return doc, nil
}

// OpenReader reads a document from r.
// Errors wrap types.ErrDocumentUnreadable.
func OpenReader(r io.ReaderAt, size int64, name string, log *slog.Logger) (*Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrDocumentUnreadable, err)
	}
	return load(zr, name, log)
}

// Close releases the archive. Safe to call more than once.
func (d *Document) Close() error {
	if d.closer == nil {
		return nil
	}
	err := d.closer.Close()
	d.closer = nil
	return err
}

func load(zr *zip.Reader, name string, log *slog.Logger) (*Document, error) {
	if log == nil {
		log = slog.Default()
	}
	d := &Document{
		Name: name,
		zr:   zr,
		log:  log.With("document", name),
		raw:  map[string]*Node{},
	}

	d.mainPart = d.relTarget("_rels/.rels", "", relOfficeDocument)
	if d.mainPart == "" {
		d.mainPart = defaultMainPart
	}
	body, err := d.part(d.mainPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrDocumentUnreadable, d.mainPart, err)
	}

	rels := relsPath(d.mainPart)
	pr := &propReader{log: d.log, theme: themeFonts{}}
	if themePart := d.relTarget(rels, d.mainPart, relTheme); themePart != "" {
		if root, err := d.part(themePart); err == nil {
			pr.theme = parseTheme(root)
		} else {
			d.log.Warn("theme part unreadable", "part", themePart, "error", err)
		}
	}

	d.stylesPart = d.relTarget(rels, d.mainPart, relStyles)
	if d.stylesPart == "" {
		d.stylesPart = "word/styles.xml"
	}
	stylesRoot, err := d.part(d.stylesPart)
	if err != nil {
		d.log.Warn("styles part unreadable, using built-in defaults", "part", d.stylesPart, "error", err)
		stylesRoot = nil
	}
	d.sheet = pr.styles(stylesRoot)

	d.readBody(pr, body.Child("body"))
	return d, nil
}

// part returns the parsed XML of a package part, cached per document.
func (d *Document) part(name string) (*Node, error) {
	if n, ok := d.raw[name]; ok {
		return n, nil
	}
	f, err := d.zr.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	n, err := parseNode(io.LimitReader(f, maxPartSize))
	if err != nil {
		return nil, err
	}
	d.raw[name] = n
	return n, nil
}

func relsPath(part string) string {
	dir, file := path.Split(part)
	return dir + "_rels/" + file + ".rels"
}

// relTarget finds the first relationship whose Type ends with typeSuffix and
// returns its target resolved against the directory of source.
func (d *Document) relTarget(rels, source, typeSuffix string) string {
	root, err := d.part(rels)
	if err != nil {
		return ""
	}
	for _, rel := range root.Nodes {
		typ, _ := rel.Attr("Type")
		if !strings.HasSuffix(typ, typeSuffix) {
			continue
		}
		target, _ := rel.Attr("Target")
		if mode, _ := rel.Attr("TargetMode"); mode == "External" || target == "" {
			continue
		}
		if strings.HasPrefix(target, "/") {
			return strings.TrimPrefix(target, "/")
		}
		return path.Join(path.Dir(source), target)
	}
	return ""
}

func (d *Document) readBody(pr *propReader, body *Node) {
	if body == nil {
		return
	}
	for i, n := range body.Nodes {
		switch n.Name {
		case "p":
			p := d.readParagraph(pr, n, i)
			d.paragraphs = append(d.paragraphs, p)
			if sect := n.Find("pPr", "sectPr"); sect != nil {
				d.sections = append(d.sections, d.readSection(pr, sect))
			}
		case "sectPr":
			d.sections = append(d.sections, d.readSection(pr, n))
		}
	}
}

func (d *Document) readParagraph(pr *propReader, n *Node, idx int) *Paragraph {
	p := &Paragraph{}
	where := fmt.Sprintf("paragraph %d", idx)
	if ppr := n.Child("pPr"); ppr != nil {
		p.StyleID, _ = ppr.Child("pStyle").Val()
		p.Format = pr.paragraph(ppr, where)
	}
	var text strings.Builder
	d.collectRuns(pr, n, where, p, &text)
	p.text = text.String()
	return p
}

// runContainers are inline wrappers whose runs belong to the paragraph text.
var runContainers = map[string]bool{
	"hyperlink":  true,
	"ins":        true,
	"smartTag":   true,
	"fldSimple":  true,
	"sdt":        true,
	"sdtContent": true,
	"customXml":  true,
	"moveTo":     true,
	"dir":        true,
	"bdo":        true,
}

func (d *Document) collectRuns(pr *propReader, n *Node, where string, p *Paragraph, text *strings.Builder) {
	for _, c := range n.Nodes {
		switch {
		case c.Name == "r":
			r := Run{}
			if rpr := c.Child("rPr"); rpr != nil {
				r.StyleID, _ = rpr.Child("rStyle").Val()
				r.Format = pr.run(rpr, where)
			}
			r.Text = runText(c)
			text.WriteString(r.Text)
			p.Runs = append(p.Runs, r)
		case runContainers[c.Name]:
			d.collectRuns(pr, c, where, p, text)
		}
	}
}

func runText(r *Node) string {
	var b strings.Builder
	for _, c := range r.Nodes {
		switch c.Name {
		case "t":
			b.WriteString(c.Text)
		case "tab", "ptab":
			b.WriteByte('\t')
		case "br", "cr":
			b.WriteByte('\n')
		case "noBreakHyphen":
			b.WriteByte('-')
		}
	}
	return b.String()
}

func (d *Document) readSection(pr *propReader, n *Node) Section {
	var s Section
	where := "sectPr"
	if mar := n.Child("pgMar"); mar != nil {
		s.Left = pr.length(mar, "left", where)
		s.Right = pr.length(mar, "right", where)
		s.Top = pr.length(mar, "top", where)
		s.Bottom = pr.length(mar, "bottom", where)
	}
	if sz := n.Child("pgSz"); sz != nil {
		s.PageWidth = pr.length(sz, "w", where)
		s.PageHeight = pr.length(sz, "h", where)
	}
	return s
}

// Sections returns the sections in document order.
func (d *Document) Sections() []Section { return d.sections }

// Paragraphs returns the body-level paragraphs in document order.
func (d *Document) Paragraphs() []*Paragraph { return d.paragraphs }

// Style looks up a style by ID.
func (d *Document) Style(id string) (*Style, bool) {
	s, ok := d.sheet.byID[id]
	return s, ok
}

// DefaultStyle returns the style marked w:default for the given type.
func (d *Document) DefaultStyle(t StyleType) (*Style, bool) {
	s, ok := d.sheet.defaults[t]
	return s, ok
}

// StyleCount is the number of defined styles.
func (d *Document) StyleCount() int { return len(d.sheet.byID) }

// Defaults returns the document-wide default formatting.
func (d *Document) Defaults() Defaults { return d.sheet.doc }

// RawAttr reads an attribute from the raw XML of a part. An empty part
// selects the styles part. path is relative to the part's root element.
func (d *Document) RawAttr(part, attr string, path ...string) (string, bool) {
	if part == "" {
		part = d.stylesPart
	}
	root, err := d.part(part)
	if err != nil {
		return "", false
	}
	return root.Find(path...).Attr(attr)
}
