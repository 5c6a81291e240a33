// Package report aggregates diagnostics into paragraph blocks and renders
// them as text, JSON or HTML.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/solatis/formatkeeper/internal/types"
)

// Paragraph identifies the paragraph a diagnostic belongs to.
type Paragraph struct {
	Index int
	Style string
	Text  string
}

// Document is the Paragraph used for document-level diagnostics.
var Document = Paragraph{Index: types.DocumentLevel}

// Collector groups diagnostics by paragraph index. Not safe for concurrent
// use; each check owns one.
type Collector struct {
	blocks map[int]*types.ParagraphErrorBlock
	seen   map[int]map[string]bool
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{
		blocks: map[int]*types.ParagraphErrorBlock{},
		seen:   map[int]map[string]bool{},
	}
}

// Add appends d to the block of p, creating the block on first use.
// A diagnostic identical to one already in the block is dropped.
func (c *Collector) Add(p Paragraph, d types.Diagnostic) {
	b, ok := c.blocks[p.Index]
	if !ok {
		b = &types.ParagraphErrorBlock{
			ParaIndex: p.Index,
			StyleName: p.Style,
			Snippet:   Snippet(p.Text, types.SnippetRunes),
			FullText:  p.Text,
			Details:   []types.Diagnostic{},
		}
		c.blocks[p.Index] = b
		c.seen[p.Index] = map[string]bool{}
	}
	key := diagnosticKey(d)
	if c.seen[p.Index][key] {
		return
	}
	c.seen[p.Index][key] = true
	b.Details = append(b.Details, d)
}

// Fatal replaces everything collected with the single block describing a
// document that could not be read.
func (c *Collector) Fatal(name string, err error) {
	c.blocks = map[int]*types.ParagraphErrorBlock{}
	c.seen = map[int]map[string]bool{}
	c.blocks[types.DocumentLevel] = &types.ParagraphErrorBlock{
		ParaIndex: types.DocumentLevel,
		StyleName: "N/A",
		Snippet:   fmt.Sprintf("cannot open or read document %q", name),
		Details: []types.Diagnostic{{
			Category: types.CategoryDocument,
			RuleKey:  "file_access",
			Expected: "readable document",
			Actual:   fmt.Sprintf("failed: %v", err),
		}},
	}
}

// Len returns the number of blocks.
func (c *Collector) Len() int { return len(c.blocks) }

// Blocks materializes the blocks sorted by paragraph index.
func (c *Collector) Blocks() []types.ParagraphErrorBlock {
	out := make([]types.ParagraphErrorBlock, 0, len(c.blocks))
	for _, b := range c.blocks {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParaIndex < out[j].ParaIndex })
	return out
}

func diagnosticKey(d types.Diagnostic) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\x00%s\x00%s\x00%s", d.Category, d.RuleKey, d.Expected, d.Actual)
	if d.RunIndex != nil {
		fmt.Fprintf(&sb, "\x00r%d", *d.RunIndex)
	}
	if d.Location != nil {
		fmt.Fprintf(&sb, "\x00l%d:%d", d.Location.Start, d.Location.End)
	}
	return sb.String()
}

// Snippet returns the first n code points of text with line breaks and
// tabs flattened to spaces.
func Snippet(text string, n int) string {
	r := []rune(text)
	if len(r) > n {
		r = r[:n]
	}
	return strings.Map(func(c rune) rune {
		switch c {
		case '\n', '\r', '\t':
			return ' '
		}
		return c
	}, string(r))
}
