package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/solatis/formatkeeper/internal/types"
)

// ColorEnabled reports whether f is a terminal that should get color.
func ColorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the column count of f, or zero when f is not a
// terminal.
func TerminalWidth(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}

type textRenderer struct {
	width int

	header   *color.Color
	document *color.Color
	category *color.Color
	expected *color.Color
	actual   *color.Color
	mark     *color.Color
	faint    *color.Color
}

func newTextRenderer(opts Options) *textRenderer {
	r := &textRenderer{
		width:    opts.Width,
		header:   color.New(color.FgCyan, color.Bold),
		document: color.New(color.FgRed, color.Bold),
		category: color.New(color.FgYellow, color.Bold),
		expected: color.New(color.FgGreen),
		actual:   color.New(color.FgRed),
		mark:     color.New(color.BgYellow, color.FgBlack),
		faint:    color.New(color.Faint),
	}
	for _, c := range []*color.Color{r.header, r.document, r.category, r.expected, r.actual, r.mark, r.faint} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

func (r *textRenderer) Render(w io.Writer, runs []*types.CheckRun) error {
	tw := &errWriter{w: w}
	for _, run := range runs {
		r.renderRun(tw, run)
	}
	tw.printf("%s\n", Summarize(runs))
	return tw.err
}

func (r *textRenderer) renderRun(w *errWriter, run *types.CheckRun) {
	w.printf("%s %s\n", r.header.Sprint("==>"), run.Document)
	if len(run.Blocks) == 0 {
		w.printf("    %s\n\n", r.expected.Sprint("no formatting problems found"))
		return
	}
	for _, b := range run.Blocks {
		if b.ParaIndex == types.DocumentLevel {
			w.printf("  %s %s\n", r.document.Sprint("[document]"), r.truncate(b.Snippet, 14))
		} else {
			w.printf("  %s style %q: %s\n",
				r.header.Sprintf("paragraph %d", b.ParaIndex+1),
				b.StyleName,
				r.faint.Sprint(r.truncate(b.Snippet, 24+runewidth.StringWidth(b.StyleName))))
		}
		for i, d := range b.Details {
			r.renderDiagnostic(w, i, b, d)
		}
		w.printf("\n")
	}
}

func (r *textRenderer) renderDiagnostic(w *errWriter, i int, b types.ParagraphErrorBlock, d types.Diagnostic) {
	w.printf("    %d. %s %s\n", i+1, r.category.Sprintf("[%s]", d.Category), d.RuleKey)
	w.printf("       expected: %s\n", r.expected.Sprint(d.Expected))
	w.printf("       actual:   %s\n", r.actual.Sprint(d.Actual))
	if d.RunIndex != nil {
		w.printf("       run %d: %q\n", *d.RunIndex+1, d.RunText)
	}
	if ex, ok := Highlight(b.FullText, d.Location); ok {
		w.printf("       at [%d,%d): %s\n", d.Location.Start, d.Location.End, r.excerpt(ex))
	}
}

func (r *textRenderer) excerpt(ex Excerpt) string {
	if ex.Invalid || ex.Blank {
		return r.actual.Sprint(ex.String())
	}
	flat := func(s string) string { return strings.NewReplacer("\n", "⏎", "\t", "→").Replace(s) }
	mark := flat(ex.Mark)
	if mark == "" {
		mark = "|"
	}
	return ex.Lead + flat(ex.Before) + r.mark.Sprint(mark) + flat(ex.After) + ex.Trail
}

// truncate shortens s to the terminal width minus the prefix columns.
func (r *textRenderer) truncate(s string, prefix int) string {
	width := r.width - prefix
	if r.width <= 0 || width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, ellipsis)
}

// errWriter keeps the first write error so rendering code stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
