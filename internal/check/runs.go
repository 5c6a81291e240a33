package check

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/solatis/formatkeeper/internal/docx"
	"github.com/solatis/formatkeeper/internal/report"
	"github.com/solatis/formatkeeper/internal/rules"
	"github.com/solatis/formatkeeper/internal/script"
	"github.com/solatis/formatkeeper/internal/types"
)

func (e *evaluation) checkRuns(ref report.Paragraph, p *docx.Paragraph, rs types.RuleSet) {
	offset := 0
	for i := range p.Runs {
		run := &p.Runs[i]
		n := utf8.RuneCountInString(run.Text)
		start := offset
		offset += n
		if strings.TrimSpace(run.Text) == "" {
			continue
		}

		idx := i
		loc := types.Location{Start: start, End: start + n}
		add := func(cat types.Category, attr, expected, actual string) {
			e.col.Add(ref, types.Diagnostic{
				Category: cat,
				RuleKey:  attr,
				Expected: expected,
				Actual:   actual,
				RunIndex: &idx,
				RunText:  report.Snippet(run.Text, types.RunSnippetRunes),
				Location: &loc,
			})
		}

		if want, ok := rs.Float(rules.AttrFontSize); ok {
			got, _ := e.res.FontSize(run, p)
			if !e.within(rules.AttrFontSize, want, got) {
				add(types.CategoryFont, rules.AttrFontSize, fmt.Sprintf("%.1f pt", want), fmt.Sprintf("%.1f pt", got))
			}
		}
		if want, ok := rs.Bool(rules.AttrBold); ok {
			if got, _ := e.res.Bold(run, p); got != want {
				add(types.CategoryFont, rules.AttrBold, strconv.FormatBool(want), strconv.FormatBool(got))
			}
		}
		if want, ok := rs.Bool(rules.AttrItalic); ok {
			if got, _ := e.res.Italic(run, p); got != want {
				add(types.CategoryFont, rules.AttrItalic, strconv.FormatBool(want), strconv.FormatBool(got))
			}
		}

		attr, want, got, ok := e.fontRule(run, p, rs)
		if ok && !SameFont(want, got.Or("")) {
			add(types.CategoryFont, attr, want, got.Or(notSet))
		}
	}
}

// fontRule picks the font attribute and slot governing run: East Asian for
// Chinese-dominant text, ASCII (then high ANSI) for everything else.
func (e *evaluation) fontRule(run *docx.Run, p *docx.Paragraph, rs types.RuleSet) (string, string, types.Opt[string], bool) {
	dominant := script.Dominant(script.Classes(run.Text))
	if dominant == script.Other {
		return "", "", types.None[string](), false
	}
	fonts := e.res.Fonts(run, p)
	if dominant == script.Chinese {
		want, ok := rs.String(rules.AttrChineseFont)
		return rules.AttrChineseFont, want, fonts.EastAsia, ok
	}
	want, ok := rs.String(rules.AttrWesternFont)
	return rules.AttrWesternFont, want, fonts.ASCII.Else(fonts.HighANSI), ok
}

// fontSuffix matches the cosmetic qualifiers Word appends to theme font
// names in its UI, e.g. "宋体 (正文)" or "Calibri (Headings)".
var fontSuffix = regexp.MustCompile(`\s*[(（]\s*(?:正文|标题|中文正文|中文标题|Body|Headings?|Body CS|Headings CS)\s*[)）]\s*$`)

// NormalizeFont folds a font name for comparison: compatibility
// normalization, trimmed cosmetic suffix, collapsed whitespace.
func NormalizeFont(name string) string {
	name = norm.NFKC.String(name)
	name = fontSuffix.ReplaceAllString(name, "")
	return strings.Join(strings.Fields(name), " ")
}

// SameFont reports whether two font names denote the same family.
func SameFont(a, b string) bool {
	return strings.EqualFold(NormalizeFont(a), NormalizeFont(b))
}
