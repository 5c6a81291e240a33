// internal/rules/repository.go
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/solatis/formatkeeper/internal/types"
)

/*
 * Effective rule computation.
 *
 * Repository wraps an immutable RuleSpec and answers "which expected values
 * apply to paragraphs of style X". The result overlays, in order: the global
 * categories (fonts, spacing, section), the based_on chain from root to
 * leaf, and the style's own attributes. Later entries win.
 *
 * Name resolution before the chain walk:
 *   1. an exact rule style name
 *   2. an alias declared by a rule style, compared case-insensitively
 *   3. the built-in body style ("Normal", "正文") maps to the default style
 *
 * The chain walk visits at most len(Paragraph) styles, so a based_on cycle
 * stops the walk instead of looping. Results are memoized per style name;
 * the cache is the only mutable state and is guarded for concurrent checks.
 */

// fallbackDefaultStyles are tried in order when no style is marked
// is_default and the configured name is absent.
var fallbackDefaultStyles = []string{"论文正文", "Normal"}

// bodyStyleNames are the names Word uses for the built-in body style.
var bodyStyleNames = []string{"Normal", "正文"}

// Options configures a Repository.
type Options struct {
	// DefaultStyle is used when no style is marked is_default.
	DefaultStyle string
	Logger       *slog.Logger
}

// Repository computes effective rule sets from a RuleSpec.
// Safe for concurrent use.
type Repository struct {
	spec         *types.RuleSpec
	log          *slog.Logger
	defaultStyle string
	aliases      map[string]string
	fingerprint  string
	warnings     []error

	mu    sync.RWMutex
	cache map[string]types.RuleSet
}

// NewRepository wraps spec. spec must not be modified afterwards.
func NewRepository(spec *types.RuleSpec, opts Options) *Repository {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	r := &Repository{
		spec:    spec,
		log:     log,
		aliases: map[string]string{},
		cache:   map[string]types.RuleSet{},
	}
	for _, name := range spec.StyleNames() {
		rule := spec.Paragraph[name]
		if rule.IsDefault {
			r.defaultStyle = name
		}
		for _, a := range rule.Aliases {
			r.aliases[strings.ToLower(a)] = name
		}
	}
	if r.defaultStyle == "" {
		for _, name := range append([]string{opts.DefaultStyle}, fallbackDefaultStyles...) {
			if _, ok := spec.Paragraph[name]; ok && name != "" {
				r.defaultStyle = name
				break
			}
		}
	}
	r.warnings = r.checkChains()
	r.fingerprint = fingerprint(spec, r.defaultStyle)
	return r
}

// Spec returns the underlying rule specification.
func (r *Repository) Spec() *types.RuleSpec { return r.spec }

// DefaultStyle is the rule style substituted for the built-in body style.
// Empty when none is configured.
func (r *Repository) DefaultStyle() string { return r.defaultStyle }

// Fingerprint is a sha256 of the canonical specification and the resolved
// default style; both decide the effective rule sets.
func (r *Repository) Fingerprint() string { return r.fingerprint }

// Warnings lists dangling based_on references and cycles found at load.
func (r *Repository) Warnings() []error { return r.warnings }

// Canonical maps a document style name to the rule style that governs it:
// itself, the style declaring it as an alias, or the default style for the
// built-in body style. Returns false when no rule style applies.
func (r *Repository) Canonical(styleName string) (string, bool) {
	if _, ok := r.spec.Paragraph[styleName]; ok {
		return styleName, true
	}
	if owner, ok := r.aliases[strings.ToLower(styleName)]; ok {
		return owner, true
	}
	if isBodyStyle(styleName) && r.defaultStyle != "" {
		r.log.Debug("substituting default style", "style", styleName, "default", r.defaultStyle)
		return r.defaultStyle, true
	}
	return "", false
}

func isBodyStyle(name string) bool {
	for _, b := range bodyStyleNames {
		if strings.EqualFold(name, b) {
			return true
		}
	}
	return false
}

// Effective returns the merged rule set for styleName. An unmapped style
// yields only the global rules. The returned set is shared and must not be
// modified.
func (r *Repository) Effective(styleName string) types.RuleSet {
	r.mu.RLock()
	rs, ok := r.cache[styleName]
	r.mu.RUnlock()
	if ok {
		return rs
	}

	rs = r.compute(styleName)

	r.mu.Lock()
	r.cache[styleName] = rs
	r.mu.Unlock()
	return rs
}

func (r *Repository) compute(styleName string) types.RuleSet {
	out := types.RuleSet{}
	out.Merge(r.spec.Fonts)
	out.Merge(r.spec.Spacing)
	out.Merge(r.spec.Section)

	name, ok := r.Canonical(styleName)
	if !ok {
		r.log.Info("no paragraph rules for style", "style", styleName)
		return out
	}

	chain, err := r.chain(name)
	if err != nil {
		r.log.Warn("rule chain truncated", "style", name, "error", err)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		out.Merge(chain[i].Attributes)
	}
	return out
}

// chain returns the rule of name followed by its based_on ancestors. The
// error reports why the walk stopped early, if it did.
func (r *Repository) chain(name string) ([]*types.StyleRule, error) {
	var out []*types.StyleRule
	seen := map[string]bool{}
	cur := name
	for cur != "" && len(out) <= len(r.spec.Paragraph) {
		if seen[cur] {
			return out, fmt.Errorf("%w: %s revisits %q", types.ErrStyleCycle, name, cur)
		}
		seen[cur] = true
		rule, ok := r.spec.Paragraph[cur]
		if !ok {
			return out, fmt.Errorf("%w: %q (from %s)", types.ErrMissingBaseStyle, cur, name)
		}
		out = append(out, rule)
		cur = rule.BasedOn
	}
	return out, nil
}

func (r *Repository) checkChains() []error {
	var errs []error
	for _, name := range r.spec.StyleNames() {
		if _, err := r.chain(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// fingerprint hashes the JSON encoding of spec followed by the default
// style name; encoding/json sorts map keys so equal specs hash equally.
func fingerprint(spec *types.RuleSpec, defaultStyle string) string {
	data, err := json.Marshal(spec)
	if err != nil {
		return ""
	}
	h := sha256.New()
	h.Write(data)
	h.Write([]byte{0})
	h.Write([]byte(defaultStyle))
	return hex.EncodeToString(h.Sum(nil))
}
