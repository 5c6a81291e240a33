package check

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/solatis/formatkeeper/internal/docx"
	"github.com/solatis/formatkeeper/internal/report"
	"github.com/solatis/formatkeeper/internal/resolve"
	"github.com/solatis/formatkeeper/internal/rules"
	"github.com/solatis/formatkeeper/internal/types"
)

const pointsPerCm = 72 / 2.54

const notSet = "not set"

// section geometry attributes in report order.
var sectionChecks = []struct {
	attr string
	get  func(docx.Section) types.Opt[docx.Length]
}{
	{rules.AttrLeftMargin, func(s docx.Section) types.Opt[docx.Length] { return s.Left }},
	{rules.AttrRightMargin, func(s docx.Section) types.Opt[docx.Length] { return s.Right }},
	{rules.AttrTopMargin, func(s docx.Section) types.Opt[docx.Length] { return s.Top }},
	{rules.AttrBottomMargin, func(s docx.Section) types.Opt[docx.Length] { return s.Bottom }},
	{rules.AttrPageWidth, func(s docx.Section) types.Opt[docx.Length] { return s.PageWidth }},
	{rules.AttrPageHeight, func(s docx.Section) types.Opt[docx.Length] { return s.PageHeight }},
}

func (e *evaluation) checkSections(sections []docx.Section) {
	rs := e.repo.Spec().Section
	if len(rs) == 0 {
		return
	}
	for _, s := range sections {
		for _, sc := range sectionChecks {
			want, ok := rs.Float(sc.attr)
			if !ok {
				continue
			}
			actual := notSet
			if l, ok := sc.get(s).Get(); ok {
				cm := l.Centimeters()
				if e.within(sc.attr, want, cm) {
					continue
				}
				actual = fmt.Sprintf("%.2f cm", cm)
			}
			e.col.Add(report.Document, types.Diagnostic{
				Category: types.CategorySection,
				RuleKey:  sc.attr,
				Expected: fmt.Sprintf("%.2f cm", want),
				Actual:   actual,
			})
		}
	}
}

// firstLine is the span of the text up to the first line break.
func firstLine(text string) *types.Location {
	if text == "" {
		return nil
	}
	end := utf8.RuneCountInString(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		end = utf8.RuneCountInString(text[:i])
	}
	return &types.Location{Start: 0, End: end}
}

// pointChecks are the paragraph lengths compared in points.
var pointChecks = []struct {
	attr string
	get  func(*resolve.Resolver, *docx.Paragraph) (float64, resolve.Level)
}{
	{rules.AttrFirstLineIndent, (*resolve.Resolver).FirstLineIndent},
	{rules.AttrLeftIndent, (*resolve.Resolver).LeftIndent},
	{rules.AttrRightIndent, (*resolve.Resolver).RightIndent},
	{rules.AttrSpaceBefore, (*resolve.Resolver).SpaceBefore},
	{rules.AttrSpaceAfter, (*resolve.Resolver).SpaceAfter},
}

var flagChecks = []struct {
	attr string
	get  func(*resolve.Resolver, *docx.Paragraph) (bool, resolve.Level)
}{
	{rules.AttrKeepWithNext, (*resolve.Resolver).KeepWithNext},
	{rules.AttrKeepTogether, (*resolve.Resolver).KeepTogether},
	{rules.AttrWidowControl, (*resolve.Resolver).WidowControl},
	{rules.AttrPageBreakBefore, (*resolve.Resolver).PageBreakBefore},
}

func (e *evaluation) checkParagraph(ref report.Paragraph, p *docx.Paragraph, rs types.RuleSet) {
	loc := firstLine(ref.Text)
	add := func(attr, expected, actual string) {
		e.col.Add(ref, types.Diagnostic{
			Category: types.CategoryParagraph,
			RuleKey:  attr,
			Expected: expected,
			Actual:   actual,
			Location: loc,
		})
	}

	if want, ok := rs.String(rules.AttrAlignment); ok {
		got, _ := e.res.Alignment(p)
		if got.String() != want {
			add(rules.AttrAlignment, want, got.String())
		}
	}

	for _, pc := range pointChecks {
		want, ok := rs.Float(pc.attr)
		if !ok {
			continue
		}
		got, _ := pc.get(e.res, p)
		if !e.within(pc.attr, want, got) {
			add(pc.attr, fmt.Sprintf("%.1f pt", want), fmt.Sprintf("%.1f pt", got))
		}
	}

	if want, ok := rs.Float(rules.AttrFirstLineIndentCm); ok {
		pt, _ := e.res.FirstLineIndent(p)
		got := pt / pointsPerCm
		if !e.within(rules.AttrFirstLineIndentCm, want, got) {
			add(rules.AttrFirstLineIndentCm, fmt.Sprintf("%.2f cm", want), fmt.Sprintf("%.2f cm", got))
		}
	}

	e.checkLineSpacing(p, rs, add)

	for _, fc := range flagChecks {
		want, ok := rs.Bool(fc.attr)
		if !ok {
			continue
		}
		if got, _ := fc.get(e.res, p); got != want {
			add(fc.attr, strconv.FormatBool(want), strconv.FormatBool(got))
		}
	}
}

// checkLineSpacing compares the rule first. The value is only compared
// when the rule matches or no rule is expected: multiplier rules compare
// the multiplier, exact and at-least rules compare points.
func (e *evaluation) checkLineSpacing(p *docx.Paragraph, rs types.RuleSet, add func(attr, expected, actual string)) {
	wantRule, hasRule := rs.String(rules.AttrLineSpacingRule)
	wantValue, hasValue := rs.Float(rules.AttrLineSpacingValue)
	if !hasRule && !hasValue {
		return
	}
	got, _ := e.res.LineSpacing(p)

	if hasRule && got.Rule.String() != wantRule {
		add(rules.AttrLineSpacingRule, wantRule, got.Rule.String())
		return
	}
	if !hasValue {
		return
	}
	if got.Rule.IsMultiplier() {
		if !e.within(rules.AttrLineSpacingValue, wantValue, got.Multiplier) {
			add(rules.AttrLineSpacingValue, fmt.Sprintf("%.2f", wantValue), fmt.Sprintf("%.2f", got.Multiplier))
		}
		return
	}
	// Fixed heights are in points whatever the attribute name says.
	if !rules.WithinTolerance(wantValue, got.Points, e.tol.Points) {
		add(rules.AttrLineSpacingValue, fmt.Sprintf("%.1f pt", wantValue), fmt.Sprintf("%.1f pt", got.Points))
	}
}
