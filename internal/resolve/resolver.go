// Package resolve computes effective formatting values by walking the
// precedence cascade of a document: direct formatting, the assigned style,
// its based-on chain, document defaults, and finally built-in constants.
package resolve

import (
	"fmt"
	"log/slog"

	"github.com/solatis/formatkeeper/internal/docx"
	"github.com/solatis/formatkeeper/internal/types"
)

// Source is the read-only document view the resolver walks.
// *docx.Document satisfies it.
type Source interface {
	Style(id string) (*docx.Style, bool)
	DefaultStyle(t docx.StyleType) (*docx.Style, bool)
	StyleCount() int
	Defaults() docx.Defaults
	RawAttr(part, attr string, path ...string) (string, bool)
}

// Level identifies the cascade level that supplied a value.
type Level uint8

const (
	LevelDirect Level = iota
	LevelStyle
	LevelBaseStyle
	LevelParagraphStyle
	LevelDocDefault
	LevelBuiltin
)

func (l Level) String() string {
	switch l {
	case LevelDirect:
		return "direct"
	case LevelStyle:
		return "style"
	case LevelBaseStyle:
		return "base-style"
	case LevelParagraphStyle:
		return "paragraph-style"
	case LevelDocDefault:
		return "doc-default"
	default:
		return "builtin"
	}
}

// Resolver resolves properties for the nodes of one document. It caches
// style chains and is not safe for concurrent use.
type Resolver struct {
	src    Source
	log    *slog.Logger
	chains map[chainKey][]*docx.Style
	warned map[string]bool
}

type chainKey struct {
	id  string
	typ docx.StyleType
}

// New creates a resolver over src. A nil logger uses slog.Default().
func New(src Source, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		src:    src,
		log:    log,
		chains: map[chainKey][]*docx.Style{},
		warned: map[string]bool{},
	}
}

// chain returns the style with the given ID followed by its based-on
// ancestors, nearest first. Styles of another type are not followed. The
// walk stops at a missing base or a revisited style, visiting at most
// StyleCount styles.
func (r *Resolver) chain(id string, typ docx.StyleType) []*docx.Style {
	if id == "" {
		return nil
	}
	key := chainKey{id, typ}
	if c, ok := r.chains[key]; ok {
		return c
	}

	var out []*docx.Style
	seen := map[string]bool{}
	limit := r.src.StyleCount()
	cur := id
	for cur != "" && len(out) <= limit {
		if seen[cur] {
			r.log.Warn("style chain stopped", "style", id, "at", cur, "error", types.ErrStyleCycle)
			break
		}
		seen[cur] = true
		s, ok := r.src.Style(cur)
		if !ok {
			err := fmt.Errorf("%w: %q", types.ErrMissingBaseStyle, cur)
			r.log.Warn("style chain stopped", "style", id, "error", err)
			break
		}
		if s.Type != typ {
			r.log.Warn("style chain crosses style types", "style", id, "at", cur, "type", s.Type)
			break
		}
		out = append(out, s)
		cur = s.BasedOn
	}
	r.chains[key] = out
	return out
}

// ParagraphStyle returns the style assigned to p. A paragraph with no style,
// or with a style the document does not define, takes the default
// paragraph style.
func (r *Resolver) ParagraphStyle(p *docx.Paragraph) (*docx.Style, bool) {
	if p.StyleID != "" {
		if s, ok := r.src.Style(p.StyleID); ok && s.Type == docx.StyleParagraph {
			return s, true
		}
		if !r.warned[p.StyleID] {
			r.warned[p.StyleID] = true
			r.log.Warn("paragraph style not defined, using default", "style", p.StyleID)
		}
	}
	return r.src.DefaultStyle(docx.StyleParagraph)
}

// StyleName returns the display name of the style assigned to p, or the
// raw style ID when the document does not define it.
func (r *Resolver) StyleName(p *docx.Paragraph) string {
	if s, ok := r.ParagraphStyle(p); ok {
		return s.Name
	}
	if p.StyleID != "" {
		return p.StyleID
	}
	return "Normal"
}

func (r *Resolver) paragraphChain(p *docx.Paragraph) []*docx.Style {
	s, ok := r.ParagraphStyle(p)
	if !ok {
		return nil
	}
	return r.chain(s.ID, docx.StyleParagraph)
}

func (r *Resolver) characterChain(run *docx.Run) []*docx.Style {
	return r.chain(run.StyleID, docx.StyleCharacter)
}
