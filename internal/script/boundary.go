package script

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/solatis/formatkeeper/internal/types"
)

// Spacing rule keys.
const (
	RuleSpaceCNEN         = "require_space_between_cn_en"
	RuleSpaceCNNumber     = "require_space_between_cn_number"
	RuleSpaceENNumber     = "require_space_between_en_number"
	RuleChinesePunctSpace = "space_after_chinese_punctuation"
	RuleFullWidthBrackets = "no_space_around_full_width_brackets"
	RulePunctToWesternNum = "no_space_after_full_width_punctuation_to_en_num"
)

// Rules lists the spacing rule keys in evaluation order.
var Rules = []string{
	RuleSpaceCNEN,
	RuleSpaceCNNumber,
	RuleSpaceENNumber,
	RuleChinesePunctSpace,
	RuleFullWidthBrackets,
	RulePunctToWesternNum,
}

// Mode selects what a boundary match covers.
type Mode uint8

const (
	// Adjacent matches two characters with nothing between them; the
	// location covers both characters.
	Adjacent Mode = iota
	// Spaced matches a whitespace run; the location covers the whitespace.
	Spaced
)

// Boundary is one precompiled matcher for a script-class transition.
type Boundary struct {
	Rule     string
	Label    string
	Mode     Mode
	Expected string
	Actual   string

	enabled func(types.RuleSet) bool
	re      *regexp.Regexp
}

// Match is one boundary violation in a paragraph.
type Match struct {
	Boundary *Boundary
	Location types.Location
}

// Key is the rule key with its direction label, as reported in diagnostics.
func (b *Boundary) Key() string {
	if b.Label == "" {
		return b.Rule
	}
	return b.Rule + " (" + b.Label + ")"
}

const spaceRun = `[\s\p{Zs}]+`

var (
	classPattern = map[Class]string{
		Chinese: `[\p{Han}\p{Hiragana}\p{Katakana}\p{Hangul}\p{Bopomofo}]`,
		Western: `[\p{Latin}\p{Greek}\p{Cyrillic}]`,
		Numeral: `\p{Nd}`,
	}

	chinesePunct = buildClass(IsChinesePunct)
	openBracket  = buildClass(IsFullWidthOpen)
	closeBracket = buildClass(IsFullWidthClose)
	westernOrNum = `[\p{Latin}\p{Greek}\p{Cyrillic}\p{Nd}]`
)

var boundaries = buildBoundaries()

// punctRanges covers every block holding full-width punctuation.
var punctRanges = [][2]rune{
	{0x2000, 0x206F},
	{0x2E80, 0x30FF},
	{0xFE10, 0xFE6F},
	{0xFF00, 0xFFEF},
}

// buildClass renders the runes satisfying pred as a regexp character class.
func buildClass(pred func(rune) bool) string {
	var b strings.Builder
	b.WriteByte('[')
	for _, rg := range punctRanges {
		start := rune(-1)
		for r := rg[0]; r <= rg[1]+1; r++ {
			in := r <= rg[1] && pred(r)
			switch {
			case in && start < 0:
				start = r
			case !in && start >= 0:
				if start == r-1 {
					fmt.Fprintf(&b, `\x{%X}`, start)
				} else {
					fmt.Fprintf(&b, `\x{%X}-\x{%X}`, start, r-1)
				}
				start = -1
			}
		}
	}
	b.WriteByte(']')
	return b.String()
}

func requireSpace(rule string, left, right Class, label string) []*Boundary {
	l, r := classPattern[left], classPattern[right]
	enabled := func(rs types.RuleSet) bool {
		v, ok := rs.Bool(rule)
		return ok && v
	}
	forbidden := func(rs types.RuleSet) bool {
		v, ok := rs.Bool(rule)
		return ok && !v
	}
	rev := reverseLabel(label)
	return []*Boundary{
		{Rule: rule, Label: label, Mode: Adjacent, Expected: "space required", Actual: "no space",
			enabled: enabled, re: regexp.MustCompile(l + r)},
		{Rule: rule, Label: rev, Mode: Adjacent, Expected: "space required", Actual: "no space",
			enabled: enabled, re: regexp.MustCompile(r + l)},
		{Rule: rule, Label: label, Mode: Spaced, Expected: "no space", Actual: "space found",
			enabled: forbidden, re: regexp.MustCompile(l + "(" + spaceRun + ")" + r)},
		{Rule: rule, Label: rev, Mode: Spaced, Expected: "no space", Actual: "space found",
			enabled: forbidden, re: regexp.MustCompile(r + "(" + spaceRun + ")" + l)},
	}
}

func reverseLabel(label string) string {
	a, b, ok := strings.Cut(label, "->")
	if !ok {
		return label
	}
	return b + "->" + a
}

func flag(rule string) func(types.RuleSet) bool {
	return func(rs types.RuleSet) bool {
		v, ok := rs.Bool(rule)
		return ok && v
	}
}

func buildBoundaries() []*Boundary {
	var bs []*Boundary
	bs = append(bs, requireSpace(RuleSpaceCNEN, Chinese, Western, "cn->en")...)
	bs = append(bs, requireSpace(RuleSpaceCNNumber, Chinese, Numeral, "cn->num")...)
	bs = append(bs, requireSpace(RuleSpaceENNumber, Western, Numeral, "en->num")...)
	bs = append(bs,
		&Boundary{
			Rule: RuleChinesePunctSpace, Mode: Spaced, Expected: "no space", Actual: "space found",
			enabled: func(rs types.RuleSet) bool {
				v, ok := rs.String(RuleChinesePunctSpace)
				return ok && strings.EqualFold(v, "none")
			},
			re: regexp.MustCompile(chinesePunct + "(" + spaceRun + ")"),
		},
		&Boundary{
			Rule: RuleFullWidthBrackets, Label: "left", Mode: Spaced, Expected: "no space", Actual: "space found",
			enabled: flag(RuleFullWidthBrackets),
			re:      regexp.MustCompile(openBracket + "(" + spaceRun + ")"),
		},
		&Boundary{
			Rule: RuleFullWidthBrackets, Label: "right", Mode: Spaced, Expected: "no space", Actual: "space found",
			enabled: flag(RuleFullWidthBrackets),
			re:      regexp.MustCompile("(" + spaceRun + ")" + closeBracket),
		},
		&Boundary{
			Rule: RulePunctToWesternNum, Mode: Spaced, Expected: "no space", Actual: "space found",
			enabled: flag(RulePunctToWesternNum),
			re:      regexp.MustCompile(chinesePunct + "(" + spaceRun + ")" + westernOrNum),
		},
	)
	return bs
}

// Matchers is the set of boundaries enabled by one rule set.
type Matchers []*Boundary

// ForRules selects the precompiled boundaries enabled by rs.
func ForRules(rs types.RuleSet) Matchers {
	var m Matchers
	for _, b := range boundaries {
		if b.enabled(rs) {
			m = append(m, b)
		}
	}
	return m
}

// Find returns every violation in text, ordered by boundary then position.
// Locations are code point offsets.
func (m Matchers) Find(text string) []Match {
	if len(m) == 0 || text == "" {
		return nil
	}
	var offsets []int
	var out []Match
	for _, b := range m {
		for _, idx := range b.re.FindAllStringSubmatchIndex(text, -1) {
			if offsets == nil {
				offsets = runeOffsets(text)
			}
			start, end := idx[0], idx[1]
			if b.Mode == Spaced {
				start, end = idx[2], idx[3]
			}
			out = append(out, Match{
				Boundary: b,
				Location: types.Location{Start: offsets[start], End: offsets[end]},
			})
		}
	}
	return out
}

// runeOffsets maps each byte offset that starts a rune (and len(s)) to its
// code point index.
func runeOffsets(s string) []int {
	off := make([]int, len(s)+1)
	n := 0
	for i := range s {
		off[i] = n
		n++
	}
	off[len(s)] = utf8.RuneCountInString(s)
	return off
}
