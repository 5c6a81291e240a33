// Package check evaluates a document against a rule repository and
// produces paragraph-scoped diagnostic blocks.
package check

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/solatis/formatkeeper/internal/docx"
	"github.com/solatis/formatkeeper/internal/report"
	"github.com/solatis/formatkeeper/internal/resolve"
	"github.com/solatis/formatkeeper/internal/rules"
	"github.com/solatis/formatkeeper/internal/script"
	"github.com/solatis/formatkeeper/internal/types"
)

/*
 * Rule evaluation.
 *
 * One forward pass in document order:
 *   1. Section page geometry against the global section rules (para -1)
 *   2. Per paragraph: effective rules for its style; skip when empty
 *   3. Paragraph properties, located at the first line
 *   4. Run properties (size, weight, slant, font per dominant script),
 *      located at the run span
 *   5. Script boundary spacing over the full paragraph text
 *
 * An unreadable document yields exactly one block and nothing else. Every
 * other problem is a diagnostic or a log line.
 */

// Document is the read-only view the checker walks. *docx.Document
// satisfies it.
type Document interface {
	resolve.Source
	Sections() []docx.Section
	Paragraphs() []*docx.Paragraph
}

// ResultCache memoizes the blocks of a parsed document. *cache.Cache
// satisfies it.
type ResultCache interface {
	Get(documentSHA256, rulesSHA256 string, tol types.Tolerances) ([]types.ParagraphErrorBlock, bool)
	Put(documentSHA256, rulesSHA256 string, tol types.Tolerances, blocks []types.ParagraphErrorBlock) error
}

// Options configures a Checker.
type Options struct {
	// Tolerances defaults to types.DefaultTolerances when nil.
	Tolerances *types.Tolerances
	Logger     *slog.Logger
	Cache      ResultCache
}

// Checker evaluates documents against one rule repository. Safe for
// concurrent use; every check owns its own collector and resolver.
type Checker struct {
	repo  *rules.Repository
	tol   types.Tolerances
	log   *slog.Logger
	cache ResultCache
}

// New creates a checker.
func New(repo *rules.Repository, opts Options) *Checker {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	tol := types.DefaultTolerances
	if opts.Tolerances != nil {
		tol = *opts.Tolerances
	}
	return &Checker{repo: repo, tol: tol, log: log, cache: opts.Cache}
}

// Repository returns the rule repository the checker evaluates against.
func (c *Checker) Repository() *rules.Repository { return c.repo }

// Tolerances returns the comparison tolerances in effect.
func (c *Checker) Tolerances() types.Tolerances { return c.tol }

// CheckFile reads and checks the document at path. A document that cannot
// be read produces a run with a single file_access block, not an error.
// The error is non-nil only when ctx is done.
func (c *Checker) CheckFile(ctx context.Context, path string) (*types.CheckRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		run := c.newRun(path, nil)
		col := report.NewCollector()
		col.Fatal(path, fmt.Errorf("%w: %w", types.ErrDocumentUnreadable, err))
		run.Blocks = col.Blocks()
		return run, nil
	}
	return c.CheckBytes(ctx, path, data)
}

// CheckBytes checks an in-memory document. name is used for reporting.
func (c *Checker) CheckBytes(ctx context.Context, name string, data []byte) (*types.CheckRun, error) {
	run := c.newRun(name, data)
	start := time.Now()

	if c.cache != nil {
		if blocks, ok := c.cache.Get(run.DocumentSHA256, run.RulesSHA256, c.tol); ok {
			run.Blocks = blocks
			run.Duration = time.Since(start)
			c.log.Debug("cache hit", "document", name, "run_id", run.ID)
			return run, nil
		}
	}

	doc, err := docx.OpenReader(bytes.NewReader(data), int64(len(data)), filepath.Base(name), c.log)
	if err != nil {
		c.log.Warn("document unreadable", "document", name, "error", err)
		col := report.NewCollector()
		col.Fatal(name, err)
		run.Blocks = col.Blocks()
		run.Duration = time.Since(start)
		return run, nil
	}
	defer doc.Close()

	blocks, err := c.Check(ctx, doc)
	if err != nil {
		return nil, err
	}
	run.Blocks = blocks
	run.Duration = time.Since(start)
	if c.cache != nil {
		if err := c.cache.Put(run.DocumentSHA256, run.RulesSHA256, c.tol, blocks); err != nil {
			c.log.Warn("cache write failed", "document", name, "error", err)
		}
	}
	c.log.Debug("document checked",
		"document", name,
		"run_id", run.ID,
		"blocks", len(blocks),
		"diagnostics", run.DiagnosticCount(),
		"duration", run.Duration)
	return run, nil
}

func (c *Checker) newRun(name string, data []byte) *types.CheckRun {
	run := &types.CheckRun{
		ID:          types.NewRunID(),
		Document:    name,
		RulesSHA256: c.repo.Fingerprint(),
		StartedAt:   time.Now().UTC(),
		Blocks:      []types.ParagraphErrorBlock{},
	}
	if data != nil {
		run.DocumentSHA256 = DocumentDigest(data)
	}
	return run
}

// DocumentDigest is the hex sha256 of a document's bytes.
func DocumentDigest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Check evaluates an open document. The error is non-nil only when ctx is
// done; the document stays owned by the caller.
func (c *Checker) Check(ctx context.Context, doc Document) ([]types.ParagraphErrorBlock, error) {
	e := &evaluation{
		Checker: c,
		res:     resolve.New(doc, c.log),
		col:     report.NewCollector(),
	}

	e.checkSections(doc.Sections())

	for idx, p := range doc.Paragraphs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(p.Text()) == "" && len(p.Runs) == 0 {
			continue
		}
		style := e.res.StyleName(p)
		rs := c.repo.Effective(style)
		if len(rs) == 0 {
			c.log.Debug("paragraph skipped, no rules", "para", idx, "style", style)
			continue
		}
		ref := report.Paragraph{Index: idx, Style: style, Text: p.Text()}
		e.checkParagraph(ref, p, rs)
		e.checkRuns(ref, p, rs)
		e.checkSpacing(ref, p, rs)
	}
	return e.col.Blocks(), nil
}

// evaluation is the state of one Check call.
type evaluation struct {
	*Checker
	res *resolve.Resolver
	col *report.Collector
}

// within compares a numeric attribute using the tolerance of its unit.
func (e *evaluation) within(attr string, want, got float64) bool {
	return rules.WithinTolerance(want, got, rules.ToleranceFor(attr, e.tol))
}

func (e *evaluation) checkSpacing(ref report.Paragraph, p *docx.Paragraph, rs types.RuleSet) {
	for _, m := range script.ForRules(rs).Find(p.Text()) {
		loc := m.Location
		e.col.Add(ref, types.Diagnostic{
			Category: types.CategorySpacing,
			RuleKey:  m.Boundary.Key(),
			Expected: m.Boundary.Expected,
			Actual:   m.Boundary.Actual,
			Location: &loc,
		})
	}
}
