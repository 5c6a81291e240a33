package report

import (
	"strings"

	"github.com/solatis/formatkeeper/internal/types"
)

// ContextRunes is the number of characters shown on each side of a
// highlighted location.
const ContextRunes = 20

const (
	ellipsis        = "..."
	invalidPosition = "[invalid position]"
	blankContent    = "[blank]"
)

// Excerpt is a highlighted window into a paragraph's text.
type Excerpt struct {
	Lead    string // "..." when text precedes the window
	Before  string
	Mark    string
	After   string
	Trail   string // "..." when text follows the window
	Invalid bool
	Blank   bool
}

// Highlight cuts the window around loc with ContextRunes of context.
// Offsets beyond the text are clamped; a reversed range is Invalid.
func Highlight(text string, loc *types.Location) (Excerpt, bool) {
	if loc == nil || text == "" {
		return Excerpt{}, false
	}
	r := []rune(text)
	n := len(r)
	start := clamp(loc.Start, 0, n)
	end := clamp(loc.End, 0, n)
	if start > end {
		return Excerpt{Invalid: true}, true
	}
	from := max(0, start-ContextRunes)
	to := min(n, end+ContextRunes)

	ex := Excerpt{
		Before: string(r[from:start]),
		Mark:   string(r[start:end]),
		After:  string(r[end:to]),
	}
	if from > 0 {
		ex.Lead = ellipsis
	}
	if to < n {
		ex.Trail = ellipsis
	}
	if strings.TrimSpace(string(r[from:to])) == "" && (ex.Lead != "" || ex.Trail != "") && ex.Mark == "" {
		ex.Blank = true
	}
	return ex, true
}

// String renders the excerpt without markup.
func (e Excerpt) String() string {
	switch {
	case e.Invalid:
		return invalidPosition
	case e.Blank:
		return e.Lead + blankContent + e.Trail
	}
	return e.Lead + e.Before + e.Mark + e.After + e.Trail
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
