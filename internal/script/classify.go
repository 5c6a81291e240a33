// Package script classifies characters by writing system and finds
// script-boundary spacing violations in paragraph text.
package script

import (
	"unicode"

	"golang.org/x/text/width"
)

// Class is the script category of a single character.
type Class uint8

const (
	Other Class = iota
	Chinese
	Western
	Numeral
	Punctuation
)

func (c Class) String() string {
	switch c {
	case Chinese:
		return "chinese"
	case Western:
		return "western"
	case Numeral:
		return "numeral"
	case Punctuation:
		return "punctuation"
	default:
		return "other"
	}
}

// cjkScripts are the scripts grouped under Chinese. Kana, Hangul and
// Bopomofo take East Asian fonts the same way Han does.
var cjkScripts = []*unicode.RangeTable{
	unicode.Han,
	unicode.Hiragana,
	unicode.Katakana,
	unicode.Hangul,
	unicode.Bopomofo,
}

var westernScripts = []*unicode.RangeTable{
	unicode.Latin,
	unicode.Greek,
	unicode.Cyrillic,
}

// Classify returns the script class of r.
func Classify(r rune) Class {
	switch {
	case unicode.In(r, cjkScripts...):
		return Chinese
	case unicode.Is(unicode.Nd, r):
		return Numeral
	case unicode.In(r, westernScripts...):
		return Western
	case unicode.IsPunct(r):
		return Punctuation
	default:
		return Other
	}
}

// IsFullWidth reports whether r occupies a full cell in East Asian layout.
// Ambiguous-width characters such as curly quotes are not full width.
func IsFullWidth(r rune) bool {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianFullwidth, width.EastAsianWide:
		return true
	}
	return false
}

// IsChinesePunct reports whether r is full-width punctuation.
func IsChinesePunct(r rune) bool {
	return unicode.IsPunct(r) && IsFullWidth(r)
}

// IsFullWidthOpen reports whether r is a full-width opening bracket.
func IsFullWidthOpen(r rune) bool {
	return unicode.Is(unicode.Ps, r) && IsFullWidth(r)
}

// IsFullWidthClose reports whether r is a full-width closing bracket.
func IsFullWidthClose(r rune) bool {
	return unicode.Is(unicode.Pe, r) && IsFullWidth(r)
}

// Set is the set of classes present in a piece of text.
type Set uint8

// Has reports whether c is in the set.
func (s Set) Has(c Class) bool { return s&(1<<c) != 0 }

// Add returns s with c included.
func (s Set) Add(c Class) Set { return s | 1<<c }

// Empty reports whether no class is present.
func (s Set) Empty() bool { return s == 0 }

// Classes returns the set of classes present in the non-whitespace
// characters of text.
func Classes(text string) Set {
	var s Set
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		s = s.Add(Classify(r))
	}
	return s
}

// Dominant is the script that selects the font rule for a run.
// Any Chinese character makes a run Chinese; other non-empty text is Western.
func Dominant(s Set) Class {
	switch {
	case s.Has(Chinese):
		return Chinese
	case s.Empty():
		return Other
	default:
		return Western
	}
}
