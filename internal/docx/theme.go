package docx

import "strings"

// themeFonts holds the major and minor font schemes of the theme part,
// keyed by w:*Theme attribute value (e.g. "minorEastAsia").
type themeFonts map[string]string

func (t themeFonts) lookup(ref string) (string, bool) {
	name, ok := t[ref]
	return name, ok && name != ""
}

// parseTheme reads a:fontScheme. When a:ea is empty the Simplified Chinese
// script font is used for the East Asian slot.
func parseTheme(root *Node) themeFonts {
	t := themeFonts{}
	scheme := root.Find("themeElements", "fontScheme")
	if scheme == nil {
		return t
	}
	for _, kind := range []string{"major", "minor"} {
		f := scheme.Child(kind + "Font")
		if f == nil {
			continue
		}
		latin, _ := f.Child("latin").Attr("typeface")
		ea, _ := f.Child("ea").Attr("typeface")
		cs, _ := f.Child("cs").Attr("typeface")
		if ea == "" {
			for _, c := range f.Nodes {
				if script, _ := c.Attr("script"); c.Name == "font" && strings.EqualFold(script, "Hans") {
					ea, _ = c.Attr("typeface")
				}
			}
		}
		t[kind+"Ascii"] = latin
		t[kind+"HAnsi"] = latin
		t[kind+"EastAsia"] = ea
		t[kind+"Bidi"] = cs
	}
	return t
}
