package docx

import (
	"fmt"
	"strings"
)

// StyleType is the w:type of a style definition.
type StyleType uint8

const (
	StyleParagraph StyleType = iota + 1
	StyleCharacter
	StyleTable
	StyleNumbering
)

func (t StyleType) String() string {
	switch t {
	case StyleParagraph:
		return "paragraph"
	case StyleCharacter:
		return "character"
	case StyleTable:
		return "table"
	case StyleNumbering:
		return "numbering"
	default:
		return "unknown"
	}
}

func parseStyleType(s string) StyleType {
	switch s {
	case "", "paragraph":
		return StyleParagraph
	case "character":
		return StyleCharacter
	case "table":
		return StyleTable
	case "numbering":
		return StyleNumbering
	}
	return 0
}

// Style is one w:style definition. BasedOn holds a style ID.
type Style struct {
	ID        string
	Name      string
	Type      StyleType
	BasedOn   string
	Default   bool
	Paragraph ParagraphFormat
	Run       RunFormat
}

// builtinNames maps the lowercase names stored for built-in styles to the
// names Word shows.
var builtinNames = map[string]string{
	"caption": "Caption",
	"footer":  "Footer",
	"header":  "Header",
	"title":   "Title",
}

func init() {
	for i := 1; i <= 9; i++ {
		builtinNames[fmt.Sprintf("heading %d", i)] = fmt.Sprintf("Heading %d", i)
	}
}

// UIName converts a stored style name to its display name.
func UIName(name string) string {
	if ui, ok := builtinNames[strings.ToLower(name)]; ok {
		return ui
	}
	return name
}

type styleSheet struct {
	byID     map[string]*Style
	defaults map[StyleType]*Style
	doc      Defaults
}

// styles reads the styles part. A nil root yields an empty sheet.
func (pr *propReader) styles(root *Node) styleSheet {
	sheet := styleSheet{
		byID:     map[string]*Style{},
		defaults: map[StyleType]*Style{},
	}
	if root == nil {
		return sheet
	}

	if dd := root.Child("docDefaults"); dd != nil {
		sheet.doc.Paragraph = pr.paragraph(dd.Find("pPrDefault", "pPr"), "docDefaults")
		sheet.doc.Run = pr.run(dd.Find("rPrDefault", "rPr"), "docDefaults")
	}

	for _, n := range root.Nodes {
		if n.Name != "style" {
			continue
		}
		id, _ := n.Attr("styleId")
		if id == "" {
			continue
		}
		typ, _ := n.Attr("type")
		s := &Style{ID: id, Type: parseStyleType(typ)}
		if name, ok := n.Child("name").Val(); ok {
			s.Name = UIName(name)
		} else {
			s.Name = id
		}
		s.BasedOn, _ = n.Child("basedOn").Val()
		if d, ok := n.Attr("default"); ok {
			s.Default = d == "1" || d == "true" || d == "on"
		}
		where := "style " + id
		s.Paragraph = pr.paragraph(n.Child("pPr"), where)
		s.Run = pr.run(n.Child("rPr"), where)

		sheet.byID[id] = s
		if s.Default {
			if _, seen := sheet.defaults[s.Type]; !seen {
				sheet.defaults[s.Type] = s
			}
		}
	}
	return sheet
}
