// Package types provides domain models shared across formatkeeper components.
//
// The diagnostic model (Diagnostic, Location, ParagraphErrorBlock) is the
// contract between the evaluation engine and every consumer: reporters, the
// history store, the result cache and the gRPC service. It carries JSON and
// msgpack tags so each consumer can persist it without a conversion layer.
//
// ID utilities in ids.go import uuid; everything else is standard library only.
package types

import "time"

// RunID represents a UUIDv7 check-run identifier.
// String alias enables type safety while maintaining JSON string serialization.
type RunID string

// Category groups diagnostics by the kind of check that produced them.
type Category string

const (
	CategorySection   Category = "section"
	CategoryParagraph Category = "paragraph"
	CategoryFont      Category = "font"
	CategorySpacing   Category = "spacing"
	CategoryDocument  Category = "document"
)

// DocumentLevel is the paragraph index of the block holding diagnostics that
// are not scoped to any paragraph (page margins, unreadable file).
const DocumentLevel = -1

// Location is a half-open [Start, End) range of code point offsets into a
// paragraph's full text.
type Location struct {
	Start int `json:"start" msgpack:"start"`
	End   int `json:"end" msgpack:"end"`
}

// Len returns the number of code points covered.
func (l Location) Len() int { return l.End - l.Start }

// Within reports whether the location satisfies 0 <= Start <= End <= n.
func (l Location) Within(n int) bool {
	return 0 <= l.Start && l.Start <= l.End && l.End <= n
}

// Diagnostic is one mismatch between expected and actual formatting.
// Immutable once appended to a block.
type Diagnostic struct {
	Category Category  `json:"category" msgpack:"category"`
	RuleKey  string    `json:"rule_key" msgpack:"rule_key"`
	Expected string    `json:"expected" msgpack:"expected"`
	Actual   string    `json:"actual" msgpack:"actual"`
	RunIndex *int      `json:"run_index,omitempty" msgpack:"run_index,omitempty"`
	RunText  string    `json:"run_text_snippet,omitempty" msgpack:"run_text_snippet,omitempty"`
	Location *Location `json:"location,omitempty" msgpack:"location,omitempty"`
}

// ParagraphErrorBlock groups the diagnostics of one paragraph.
// ParaIndex is DocumentLevel for document-scoped diagnostics.
type ParagraphErrorBlock struct {
	ParaIndex int          `json:"para_idx" msgpack:"para_idx"`
	StyleName string       `json:"style_name" msgpack:"style_name"`
	Snippet   string       `json:"text_snippet" msgpack:"text_snippet"`
	FullText  string       `json:"full_text" msgpack:"full_text"`
	Details   []Diagnostic `json:"details" msgpack:"details"`
}

// CheckRun is the result of checking one document, as persisted to the
// history store and returned by the service.
type CheckRun struct {
	ID             RunID                 `json:"run_id" msgpack:"run_id"`
	Document       string                `json:"document" msgpack:"document"`
	DocumentSHA256 string                `json:"document_sha256" msgpack:"document_sha256"`
	RulesSHA256    string                `json:"rules_sha256" msgpack:"rules_sha256"`
	StartedAt      time.Time             `json:"started_at" msgpack:"started_at"`
	Duration       time.Duration         `json:"duration_ns" msgpack:"duration_ns"`
	Blocks         []ParagraphErrorBlock `json:"blocks" msgpack:"blocks"`
}

// DiagnosticCount sums the diagnostics across all blocks.
func (r *CheckRun) DiagnosticCount() int {
	n := 0
	for _, b := range r.Blocks {
		n += len(b.Details)
	}
	return n
}

// Tolerances bound the numeric comparisons of the evaluation engine.
// A difference equal to the tolerance is accepted.
type Tolerances struct {
	Points      float64 `json:"pt" msgpack:"pt"`
	Centimeters float64 `json:"cm" msgpack:"cm"`
	Float       float64 `json:"float" msgpack:"float"`
}

// DefaultTolerances match the defaults of the check config section.
var DefaultTolerances = Tolerances{Points: 0.5, Centimeters: 0.01, Float: 0.01}

// Limits applied across the check pipeline.
const (
	// SnippetRunes is the length of the paragraph preview stored in a block.
	SnippetRunes = 40

	// RunSnippetRunes is the length of the run preview stored in a diagnostic.
	RunSnippetRunes = 20

	// DefaultFontSizePt is used when no cascade level defines a font size.
	DefaultFontSizePt = 11.0

	// MaxDocumentSize caps a document accepted over the network.
	MaxDocumentSize = 32 * 1024 * 1024
)
